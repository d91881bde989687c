package mocks

import (
	"context"

	"itinerary-server/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockCatalogStore is a mock type for the CatalogStore type
type MockCatalogStore struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, query
func (_m *MockCatalogStore) Search(ctx context.Context, query model.CatalogQuery) ([]model.CatalogEntry, error) {
	ret := _m.Called(ctx, query)

	var r0 []model.CatalogEntry
	if rf, ok := ret.Get(0).(func(context.Context, model.CatalogQuery) []model.CatalogEntry); ok {
		r0 = rf(ctx, query)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.CatalogEntry)
	}

	return r0, ret.Error(1)
}

// NewMockCatalogStore creates a new instance of MockCatalogStore.
func NewMockCatalogStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCatalogStore {
	m := &MockCatalogStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockExternalPlaceSearcher is a mock type for the ExternalPlaceSearcher type
type MockExternalPlaceSearcher struct {
	mock.Mock
}

// SearchText provides a mock function with given fields: ctx, query, language
func (_m *MockExternalPlaceSearcher) SearchText(ctx context.Context, query string, language string) ([]model.ExternalPlace, error) {
	ret := _m.Called(ctx, query, language)

	var r0 []model.ExternalPlace
	if rf, ok := ret.Get(0).(func(context.Context, string, string) []model.ExternalPlace); ok {
		r0 = rf(ctx, query, language)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.ExternalPlace)
	}

	return r0, ret.Error(1)
}

// Ready provides a mock function with given fields:
func (_m *MockExternalPlaceSearcher) Ready() error {
	ret := _m.Called()
	return ret.Error(0)
}

// NewMockExternalPlaceSearcher creates a new instance of MockExternalPlaceSearcher.
func NewMockExternalPlaceSearcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockExternalPlaceSearcher {
	m := &MockExternalPlaceSearcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// MockPhotoSearcher is a mock type for the PhotoSearcher type
type MockPhotoSearcher struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, query, n
func (_m *MockPhotoSearcher) Search(ctx context.Context, query string, n int) ([]string, error) {
	ret := _m.Called(ctx, query, n)

	var r0 []string
	if rf, ok := ret.Get(0).(func(context.Context, string, int) []string); ok {
		r0 = rf(ctx, query, n)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}

	return r0, ret.Error(1)
}

// NewMockPhotoSearcher creates a new instance of MockPhotoSearcher.
func NewMockPhotoSearcher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPhotoSearcher {
	m := &MockPhotoSearcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
