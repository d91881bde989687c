package ai

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// retryingClient повторяет неудачные запросы с экспоненциальной задержкой и джиттером ±10%.
type retryingClient struct {
	inner       AIClient
	maxAttempts int
	baseDelay   time.Duration
	logger      *zap.Logger
}

// NewRetryingClient оборачивает клиента повторными попытками.
func NewRetryingClient(inner AIClient, maxAttempts int, baseDelay time.Duration, logger *zap.Logger) AIClient {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &retryingClient{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger.Named("AIRetry"),
	}
}

func (r *retryingClient) GenerateText(ctx context.Context, operation, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		text, usage, err := r.inner.GenerateText(ctx, operation, systemPrompt, userInput, params)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err

		if errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
			break
		}
		if attempt == r.maxAttempts {
			break
		}

		delay := backoffDelay(r.baseDelay, attempt)
		r.logger.Warn("AI call failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.maxAttempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", UsageInfo{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", UsageInfo{}, lastErr
}

func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	jitter := delay * 0.1 * (rand.Float64()*2 - 1)
	return time.Duration(delay + jitter)
}
