package mocks

import (
	"context"

	"itinerary-server/internal/model"
	"itinerary-server/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockItineraryService is a mock type for the ItineraryService type
type MockItineraryService struct {
	mock.Mock
}

func (_m *MockItineraryService) itinerary(ret mock.Arguments) (*model.Itinerary, error) {
	var r0 *model.Itinerary
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Itinerary)
	}
	return r0, ret.Error(1)
}

// Generate provides a mock function with given fields: ctx, req
func (_m *MockItineraryService) Generate(ctx context.Context, req service.GenerateRequest) (*model.Itinerary, error) {
	return _m.itinerary(_m.Called(ctx, req))
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockItineraryService) Get(ctx context.Context, id string) (*model.Itinerary, error) {
	return _m.itinerary(_m.Called(ctx, id))
}

// Complete provides a mock function with given fields: ctx, id
func (_m *MockItineraryService) Complete(ctx context.Context, id string) (*model.Itinerary, error) {
	return _m.itinerary(_m.Called(ctx, id))
}

// Unlock provides a mock function with given fields: ctx, id
func (_m *MockItineraryService) Unlock(ctx context.Context, id string) (*model.Itinerary, error) {
	return _m.itinerary(_m.Called(ctx, id))
}

// NewMockItineraryService creates a new instance of MockItineraryService.
func NewMockItineraryService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockItineraryService {
	m := &MockItineraryService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
