package ml

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

func TestExtractPostsOptionsAndTrims(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"keyphrases":[{"phrase":"insulin receptor","score":0.01},{"phrase":"  ","score":0.02},{"phrase":"glucose","score":0.03},{"phrase":"liver","score":0.04}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "secret", time.Second)
	got, err := c.Extract(context.Background(), "some text", ports.ExtractOptions{MaxTerms: 2, SpanWidth: 2, DedupThreshold: 0.9})
	require.NoError(t, err)

	assert.Equal(t, []domain.CandidatePhrase{
		{Text: "insulin receptor", Score: 0.01},
		{Text: "glucose", Score: 0.03},
	}, got)
	assert.Equal(t, "some text", payload["text"])
	assert.EqualValues(t, 2, payload["maxTerms"])
	assert.EqualValues(t, 0.9, payload["dedupThreshold"])
}

func TestExtractNon200(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).Extract(context.Background(), "x", ports.ExtractOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req struct {
			Texts []string `json:"texts"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := map[string]any{"embeddings": make([][]float32, len(req.Texts))}
		for i := range req.Texts {
			resp["embeddings"].([][]float32)[i] = []float32{float32(i), 1}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	got, err := NewClient(server.URL, "", time.Second).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0, 1}, {1, 1}}, got)
}

func TestEmbedCountMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,2]]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}
