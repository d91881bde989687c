package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// ErrAIGenerationFailed - ошибка при генерации текста AI
	ErrAIGenerationFailed = errors.New("ошибка генерации текста AI")
	// ErrNotConfigured - для выбранного провайдера не хватает ключа или адреса
	ErrNotConfigured = errors.New("AI клиент не сконфигурирован")
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_ai_requests_total",
			Help: "Total number of requests to the AI API.",
		},
		[]string{"model", "status", "operation"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinerary_ai_request_duration_seconds",
			Help:    "Histogram of AI API request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model", "operation"},
	)
	aiTotalTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "itinerary_ai_total_tokens",
			Help:    "Histogram of total token counts (prompt + completion).",
			Buckets: prometheus.LinearBuckets(200, 200, 20),
		},
		[]string{"model", "operation"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itinerary_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"model"},
	)
)

// GenerationParams - параметры генерации.
// Указатели отличают 0 от отсутствия значения.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	// JSONMode просит провайдера вернуть JSON-объект
	JSONMode bool
}

// UsageInfo содержит информацию об использовании токенов и стоимости
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool // токены посчитаны локально через tiktoken
	EstimatedCostUSD float64
}

// AIClient - интерфейс для взаимодействия с языковой моделью
type AIClient interface {
	// GenerateText генерирует текст по системному промту и вводу пользователя.
	// operation - метка вызова для метрик и логов (например "describe").
	GenerateText(ctx context.Context, operation, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// Config - настройки AI клиента
type Config struct {
	ClientType     string // openai | ollama
	BaseURL        string
	Model          string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	BaseRetryDelay time.Duration
	// Цены за миллион токенов, для оценки стоимости
	InputPricePerMillion  float64
	OutputPricePerMillion float64
}

// NewAIClient создает клиента по типу из конфигурации и оборачивает его в повторные попытки.
func NewAIClient(cfg Config, logger *zap.Logger) (AIClient, error) {
	var (
		inner AIClient
		err   error
	)
	switch strings.ToLower(cfg.ClientType) {
	case "", "openai":
		inner, err = newOpenAIClient(cfg, logger)
	case "ollama":
		inner, err = newOllamaClient(cfg, logger)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.ClientType)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("AI client created",
		zap.String("type", cfg.ClientType),
		zap.String("model", cfg.Model),
		zap.String("base_url", cfg.BaseURL),
	)
	return NewRetryingClient(inner, cfg.MaxAttempts, cfg.BaseRetryDelay, logger), nil
}

func calculateCost(cfg Config, promptTokens, completionTokens int) float64 {
	return float64(promptTokens)*cfg.InputPricePerMillion/1_000_000.0 +
		float64(completionTokens)*cfg.OutputPricePerMillion/1_000_000.0
}

func observeSuccess(model, operation string, duration time.Duration, usage UsageInfo) {
	aiRequestsTotal.With(prometheus.Labels{"model": model, "status": "success", "operation": operation}).Inc()
	aiRequestDuration.With(prometheus.Labels{"model": model, "operation": operation}).Observe(duration.Seconds())
	if usage.TotalTokens > 0 {
		aiTotalTokens.With(prometheus.Labels{"model": model, "operation": operation}).Observe(float64(usage.TotalTokens))
	}
	if usage.EstimatedCostUSD > 0 {
		aiEstimatedCostUSD.With(prometheus.Labels{"model": model}).Add(usage.EstimatedCostUSD)
	}
}

func observeFailure(model, operation, status string) {
	aiRequestsTotal.With(prometheus.Labels{"model": model, "status": status, "operation": operation}).Inc()
}
