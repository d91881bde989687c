package handler

import (
	"context"
	"errors"
	"net/http"

	"itinerary-server/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Коды ошибок API
const (
	ErrCodeValidation      = 4000
	ErrCodeNotFound        = 4040
	ErrCodeConflict        = 4090
	ErrCodeVersionConflict = 4091
	ErrCodeInternal        = 5000
	ErrCodePersistence     = 5020
	ErrCodeUnavailable     = 5030
	ErrCodeTimeout         = 5040
)

// ErrorResponse - тело ответа об ошибке
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp ErrorResponse

	switch {
	case errors.Is(err, model.ErrValidation):
		statusCode = http.StatusBadRequest
		errResp = ErrorResponse{Code: ErrCodeValidation, Message: err.Error()}
	case errors.Is(err, model.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = ErrorResponse{Code: ErrCodeNotFound, Message: "Itinerary not found"}
	case errors.Is(err, model.ErrInvalidTransition):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeConflict, Message: err.Error()}
	case errors.Is(err, model.ErrVersionConflict):
		statusCode = http.StatusConflict
		errResp = ErrorResponse{Code: ErrCodeVersionConflict, Message: "Itinerary was modified concurrently, retry the request"}
	case errors.Is(err, model.ErrConfiguration):
		statusCode = http.StatusServiceUnavailable
		errResp = ErrorResponse{Code: ErrCodeUnavailable, Message: "Itinerary generation is not configured"}
	case errors.Is(err, model.ErrPersistence):
		statusCode = http.StatusBadGateway
		errResp = ErrorResponse{Code: ErrCodePersistence, Message: "Session store is unavailable"}
	case errors.Is(err, context.DeadlineExceeded):
		statusCode = http.StatusGatewayTimeout
		errResp = ErrorResponse{Code: ErrCodeTimeout, Message: "Itinerary generation timed out"}
	default:
		zap.L().Error("Unhandled internal error in handleServiceError", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResp = ErrorResponse{Code: ErrCodeInternal, Message: "An unexpected internal error occurred"}
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, errResp)
}
