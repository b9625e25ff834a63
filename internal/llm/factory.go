package llm

import (
	"context"
	"fmt"
	"strings"
)

// NewProvider creates a provider from configuration. An empty provider name
// disables model analysis and returns nil.
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "huggingface", "hf":
		return NewHuggingFaceProvider(config)

	case "openai":
		return NewOpenAIProvider(config)

	case "gemini", "google":
		return NewGeminiProvider(ctx, config)

	case "ollama":
		return NewOllamaProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: huggingface, openai, gemini, ollama, anthropic)", config.Provider)
	}
}
