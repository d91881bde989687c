package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClient работает с любым OpenAI-совместимым API (OpenAI, OpenRouter, DeepSeek)
type openAIClient struct {
	client *openaigo.Client
	cfg    Config
	logger *zap.Logger
}

func newOpenAIClient(cfg Config, logger *zap.Logger) (*openAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: пустой API ключ", ErrNotConfigured)
	}
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &openAIClient{
		client: openaigo.NewClientWithConfig(openaiConfig),
		cfg:    cfg,
		logger: logger.Named("OpenAIClient"),
	}, nil
}

func (c *openAIClient) GenerateText(ctx context.Context, operation, systemPrompt, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usage := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		observeFailure(c.cfg.Model, operation, "error")
		return "", usage, fmt.Errorf("%w: системный промт пуст", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}

	req := openaigo.ChatCompletionRequest{
		Model:    c.cfg.Model,
		Messages: messages,
	}
	if params.Temperature != nil {
		req.Temperature = float32(*params.Temperature)
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	if params.JSONMode {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{Type: openaigo.ChatCompletionResponseFormatTypeJSONObject}
	}

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(startTime)

	if err != nil {
		c.logger.Warn("AI request failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		observeFailure(c.cfg.Model, operation, "error")
		return "", usage, fmt.Errorf("%w: %w", ErrAIGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		observeFailure(c.cfg.Model, operation, "error_empty_response")
		return "", usage, fmt.Errorf("%w: получен пустой ответ", ErrAIGenerationFailed)
	}

	text := resp.Choices[0].Message.Content
	if resp.Usage.TotalTokens > 0 {
		usage.PromptTokens = resp.Usage.PromptTokens
		usage.CompletionTokens = resp.Usage.CompletionTokens
		usage.TotalTokens = resp.Usage.TotalTokens
	} else {
		// Некоторые совместимые провайдеры не присылают usage
		usage = estimateUsage(c.cfg.Model, systemPrompt+userInput, text)
	}
	usage.EstimatedCostUSD = calculateCost(c.cfg, usage.PromptTokens, usage.CompletionTokens)

	observeSuccess(c.cfg.Model, operation, duration, usage)
	c.logger.Debug("AI response received",
		zap.String("operation", operation),
		zap.Duration("duration", duration),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Bool("estimated", usage.Estimated),
	)
	return text, usage, nil
}
