package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"itinerary-server/internal/config"
	"itinerary-server/internal/handler"
	"itinerary-server/internal/mocks"
	"itinerary-server/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRouter_ItineraryRoutesAreMeasured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := mocks.NewMockItineraryService(t)
	svc.On("Get", mock.Anything, "it-1").
		Return(&model.Itinerary{ID: "it-1", Status: model.StatusPreview}, nil).Once()

	cfg := &config.Config{Env: "test", CORSAllowedOrigins: []string{"*"}}
	router := newRouter(cfg, handler.NewItineraryHandler(svc, zap.NewNop()), zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/itineraries/it-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `url="/api/v1/itineraries/it-1"`)
}
