package llm

import (
	"context"
	"fmt"
	"strings"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/ports"
)

// NewOracle picks the chat backend named by cfg.Provider.
func NewOracle(ctx context.Context, cfg config.ClassifierConfig) (ports.Oracle, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewChatGPTClient(cfg.APIKey, cfg.Model, "", cfg.BaseURL, cfg.MaxTokens, cfg.Timeout), nil
	case "ollama":
		return NewChatGPTClient(ollamaKey(cfg.APIKey), cfg.Model, "", ollamaBaseURL(cfg.BaseURL), cfg.MaxTokens, cfg.Timeout), nil
	case "anthropic", "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, "")
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", cfg.Provider)
	}
}

// NewEmbedder picks the embedding backend for OpenAI-compatible and Gemini providers.
// The "remote" provider is served by the ML service client instead.
func NewEmbedder(ctx context.Context, cfg config.EmbedderConfig) (ports.Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewChatGPTClient(cfg.APIKey, "", cfg.Model, cfg.BaseURL, 0, cfg.Timeout), nil
	case "ollama":
		return NewChatGPTClient(ollamaKey(cfg.APIKey), "", cfg.Model, ollamaBaseURL(cfg.BaseURL), 0, cfg.Timeout), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, "", cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

// Ollama ignores the key but the client requires one.
func ollamaKey(key string) string {
	if key == "" {
		return "ollama"
	}
	return key
}

func ollamaBaseURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = strings.TrimRight(baseURL, "/") + "/v1"
	}
	return baseURL
}
