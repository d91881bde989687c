package mocks

import (
	"context"

	"itinerary-server/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockSessionStore is a mock type for the SessionStore type
type MockSessionStore struct {
	mock.Mock
}

// Save provides a mock function with given fields: ctx, itinerary
func (_m *MockSessionStore) Save(ctx context.Context, itinerary *model.Itinerary) (string, error) {
	ret := _m.Called(ctx, itinerary)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, *model.Itinerary) string); ok {
		r0 = rf(ctx, itinerary)
	} else {
		r0 = ret.String(0)
	}

	return r0, ret.Error(1)
}

// Load provides a mock function with given fields: ctx, id
func (_m *MockSessionStore) Load(ctx context.Context, id string) (*model.Itinerary, error) {
	ret := _m.Called(ctx, id)

	var r0 *model.Itinerary
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.Itinerary); ok {
		r0 = rf(ctx, id)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Itinerary)
	}

	return r0, ret.Error(1)
}

// SetVisibility provides a mock function with given fields: ctx, id, visibility
func (_m *MockSessionStore) SetVisibility(ctx context.Context, id string, visibility model.Visibility) (*model.Itinerary, error) {
	ret := _m.Called(ctx, id, visibility)

	var r0 *model.Itinerary
	if rf, ok := ret.Get(0).(func(context.Context, string, model.Visibility) *model.Itinerary); ok {
		r0 = rf(ctx, id, visibility)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Itinerary)
	}

	return r0, ret.Error(1)
}

// NewMockSessionStore creates a new instance of MockSessionStore.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
