package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaClient ходит в нативный API Ollama
type ollamaClient struct {
	client *api.Client
	cfg    Config
	logger *zap.Logger
}

func newOllamaClient(cfg Config, logger *zap.Logger) (*ollamaClient, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: не задан адрес Ollama", ErrNotConfigured)
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга Ollama Base URL '%s': %w", baseURL, err)
	}

	return &ollamaClient{
		client: api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout}),
		cfg:    cfg,
		logger: logger.Named("OllamaClient"),
	}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, operation, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usage := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		observeFailure(c.cfg.Model, operation, "error")
		return "", usage, fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	stream := false
	options := map[string]interface{}{}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.MaxTokens != nil {
		options["num_predict"] = *params.MaxTokens
	}
	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
	if params.JSONMode {
		req.Format = json.RawMessage(`"json"`)
	}

	requestCtx := ctx
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			c.logger.Warn("Ollama request timed out", zap.String("operation", operation), zap.Duration("timeout", c.cfg.Timeout))
		} else {
			c.logger.Warn("Ollama request failed", zap.String("operation", operation), zap.Error(err))
		}
		observeFailure(c.cfg.Model, operation, "error")
		return "", usage, fmt.Errorf("%w: %w", ErrAIGenerationFailed, err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		observeFailure(c.cfg.Model, operation, "error_empty_response")
		return "", usage, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	usage.PromptTokens = resp.PromptEvalCount
	usage.CompletionTokens = resp.EvalCount
	usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
	// Локальная модель, стоимость 0

	observeSuccess(c.cfg.Model, operation, duration, usage)
	return resp.Message.Content, usage, nil
}
