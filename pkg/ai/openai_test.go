package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newChatServer(t *testing.T, status int, body string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if capture != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(capture))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var captured map[string]interface{}
	srv := newChatServer(t, http.StatusOK, `{
		"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "test-model",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"title\":\"Тихий день\"}"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
	}`, &captured)

	client, err := NewAIClient(Config{
		ClientType:            "openai",
		BaseURL:               srv.URL,
		Model:                 "test-model",
		APIKey:                "test-key",
		Timeout:               5 * time.Second,
		MaxAttempts:           1,
		InputPricePerMillion:  1,
		OutputPricePerMillion: 2,
	}, zap.NewNop())
	require.NoError(t, err)

	temp := 0.4
	text, usage, err := client.GenerateText(context.Background(), "title", "system", "user", GenerationParams{Temperature: &temp, JSONMode: true})
	require.NoError(t, err)

	assert.Equal(t, `{"title":"Тихий день"}`, text)
	assert.Equal(t, 17, usage.TotalTokens)
	assert.False(t, usage.Estimated)
	assert.InDelta(t, (12*1.0+5*2.0)/1_000_000.0, usage.EstimatedCostUSD, 1e-12)

	assert.Equal(t, "test-model", captured["model"])
	format, ok := captured["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	messages := captured["messages"].([]interface{})
	assert.Len(t, messages, 2)
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)

	client, err := newOpenAIClient(Config{BaseURL: srv.URL, Model: "m", APIKey: "test-key", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.GenerateText(context.Background(), "intro", "system", "", GenerationParams{})
	assert.ErrorIs(t, err, ErrAIGenerationFailed)
}

func TestOpenAIClient_ServerError(t *testing.T) {
	srv := newChatServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil)

	client, err := newOpenAIClient(Config{BaseURL: srv.URL, Model: "m", APIKey: "test-key", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, _, err = client.GenerateText(context.Background(), "intro", "system", "user", GenerationParams{})
	assert.ErrorIs(t, err, ErrAIGenerationFailed)
}

func TestNewAIClient_Validation(t *testing.T) {
	_, err := NewAIClient(Config{ClientType: "openai"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewAIClient(Config{ClientType: "ollama"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewAIClient(Config{ClientType: "unknown-provider"}, zap.NewNop())
	assert.Error(t, err)

	client, err := NewAIClient(Config{ClientType: "ollama", BaseURL: "http://localhost:11434/v1", Model: "llama3"}, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
