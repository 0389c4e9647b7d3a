package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"ConceptEnricher/internal/ports"
)

// ClaudeClient is an Oracle backed by the Anthropic messages API. It has no embeddings.
type ClaudeClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

var _ ports.Oracle = (*ClaudeClient)(nil)

func NewClaudeClient(apiKey, model, baseURL string, maxTokens int) *ClaudeClient {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if maxTokens <= 0 {
		maxTokens = 16
	}
	return &ClaudeClient{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *ClaudeClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(c.model),
		Messages: []anthropic.Message{
			{
				Role: anthropic.RoleUser,
				Content: []anthropic.MessageContent{
					anthropic.NewTextMessageContent(prompt),
				},
			},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}

	if len(resp.Content) > 0 && resp.Content[0].Text != nil {
		return strings.TrimSpace(*resp.Content[0].Text), nil
	}
	return "", fmt.Errorf("create message: no text content")
}
