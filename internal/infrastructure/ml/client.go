package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// Client talks to an external ML service for keyphrase extraction and embeddings.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.Extractor = (*Client)(nil)
var _ ports.Embedder = (*Client)(nil)

// NewClient creates a reusable HTTP client. A non-positive timeout uses 15s.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Extract sends the article content for keyphrase scoring. Lower scores rank higher.
func (c *Client) Extract(ctx context.Context, text string, opts ports.ExtractOptions) ([]domain.CandidatePhrase, error) {
	payload := map[string]any{
		"text":           text,
		"maxTerms":       opts.MaxTerms,
		"spanWidth":      opts.SpanWidth,
		"dedupThreshold": opts.DedupThreshold,
	}

	var resp struct {
		Keyphrases []domain.CandidatePhrase `json:"keyphrases"`
	}
	if err := c.post(ctx, "/extract", payload, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.CandidatePhrase, 0, len(resp.Keyphrases))
	for _, kp := range resp.Keyphrases {
		if strings.TrimSpace(kp.Text) == "" {
			continue
		}
		out = append(out, kp)
		if opts.MaxTerms > 0 && len(out) == opts.MaxTerms {
			break
		}
	}
	return out, nil
}

// Embed requests one vector per text, in request order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	payload := map[string]any{"texts": texts}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.post(ctx, "/embed", payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %s: %s", path, resp.Status, strings.TrimSpace(string(snippet)))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
