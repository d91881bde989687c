package handler

import (
	"context"
	"errors"
	"net/http"

	"itinerary-server/internal/model"
	"itinerary-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ItineraryService - операции оркестратора, доступные по HTTP
type ItineraryService interface {
	Generate(ctx context.Context, req service.GenerateRequest) (*model.Itinerary, error)
	Get(ctx context.Context, id string) (*model.Itinerary, error)
	Complete(ctx context.Context, id string) (*model.Itinerary, error)
	Unlock(ctx context.Context, id string) (*model.Itinerary, error)
}

// GenerateResponse - маршрут и предупреждение, если превью не удалось сохранить
type GenerateResponse struct {
	*model.Itinerary
	Warning string `json:"warning,omitempty"`
}

type ItineraryHandler struct {
	service ItineraryService
	logger  *zap.Logger
}

func NewItineraryHandler(service ItineraryService, logger *zap.Logger) *ItineraryHandler {
	return &ItineraryHandler{
		service: service,
		logger:  logger.Named("ItineraryHandler"),
	}
}

func (h *ItineraryHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/itineraries")
	{
		api.POST("", h.generate)
		api.GET("/:id", h.get)
		api.POST("/:id/complete", h.complete)
		api.POST("/:id/unlock", h.unlock)
	}
}

func (h *ItineraryHandler) generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeValidation, Message: "Invalid request body: " + err.Error()})
		return
	}

	it, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, model.ErrPersistence) && it != nil {
			h.logger.Warn("Returning unsaved preview", zap.String("city", it.City), zap.Error(err))
			c.JSON(http.StatusOK, GenerateResponse{Itinerary: it, Warning: "Preview could not be saved; complete and unlock are unavailable for it"})
			return
		}
		handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if req.PreviewOnly {
		status = http.StatusCreated
	}
	c.JSON(status, GenerateResponse{Itinerary: it})
}

func (h *ItineraryHandler) get(c *gin.Context) {
	h.byID(c, h.service.Get)
}

func (h *ItineraryHandler) complete(c *gin.Context) {
	h.byID(c, h.service.Complete)
}

func (h *ItineraryHandler) unlock(c *gin.Context) {
	h.byID(c, h.service.Unlock)
}

func (h *ItineraryHandler) byID(c *gin.Context, op func(context.Context, string) (*model.Itinerary, error)) {
	it, err := op(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}
