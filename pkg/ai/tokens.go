package ai

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

var (
	encodingsMu sync.Mutex
	encodings   = map[string]*tiktoken.Tiktoken{}
)

// estimateUsage считает токены локально. Если токенизатор недоступен,
// возвращает грубую оценку: 4 символа на токен.
func estimateUsage(model, prompt, completion string) UsageInfo {
	usage := UsageInfo{Estimated: true}
	if enc := encodingFor(model); enc != nil {
		usage.PromptTokens = len(enc.Encode(prompt, nil, nil))
		usage.CompletionTokens = len(enc.Encode(completion, nil, nil))
	} else {
		usage.PromptTokens = len(prompt) / 4
		usage.CompletionTokens = len(completion) / 4
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

func encodingFor(model string) *tiktoken.Tiktoken {
	encodingsMu.Lock()
	defer encodingsMu.Unlock()

	if enc, ok := encodings[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Модели вроде deepseek/* tiktoken не знает
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		enc = nil
	}
	encodings[model] = enc
	return enc
}
