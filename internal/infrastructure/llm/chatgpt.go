package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"ConceptEnricher/internal/ports"
)

// ChatGPTClient talks to OpenAI-compatible APIs (OpenAI, Ollama) for chat and embeddings.
type ChatGPTClient struct {
	client         *openai.Client
	model          string
	embeddingModel string
	maxTokens      int
}

var _ ports.Oracle = (*ChatGPTClient)(nil)
var _ ports.Embedder = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client; an empty baseURL targets api.openai.com.
func NewChatGPTClient(apiKey, model, embeddingModel, baseURL string, maxTokens int, timeout time.Duration) *ChatGPTClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatGPTClient{
		client:         openai.NewClientWithConfig(cfg),
		model:          model,
		embeddingModel: embeddingModel,
		maxTokens:      maxTokens,
	}
}

// Generate sends the prompt as a single user message.
func (c *ChatGPTClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: 0,
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Embed requests embeddings for all texts in one call and returns them in input order.
func (c *ChatGPTClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	model := openai.EmbeddingModel(c.embeddingModel)
	if model == "" {
		model = openai.SmallEmbedding3
	}
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: model,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("create embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("create embeddings: missing vector %d", i)
		}
	}
	return out, nil
}
