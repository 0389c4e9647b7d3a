package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/logging"
)

type call struct {
	query  string
	params map[string]any
}

type fakeExecutor struct {
	calls []call
	err   error
}

func (f *fakeExecutor) ExecuteQuery(_ context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	f.calls = append(f.calls, call{query: query, params: params})
	if f.err != nil {
		return nil, f.err
	}
	return &neo4j.EagerResult{}, nil
}

func (f *fakeExecutor) Close(context.Context) error { return nil }

func entry() domain.ConceptEntry {
	var links domain.ConceptLinks
	links.Set("insulin", domain.Link{URI: "http://dbpedia.org/resource/Insulin", Description: "A hormone."})
	links.Set("glucose", domain.Link{URI: "http://dbpedia.org/resource/Glucose", Description: domain.DescriptionUnavailable})
	return domain.ConceptEntry{ID: "elife-1", Title: "Sugar", Concepts: links}
}

func TestPublishConceptsMergesInOrder(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	sink := NewSink(exec, logging.Discard())

	require.NoError(t, sink.PublishConcepts(context.Background(), entry()))
	require.Len(t, exec.calls, 1)

	params := exec.calls[0].params
	assert.Equal(t, "elife-1", params["id"])
	assert.Equal(t, "Sugar", params["title"])
	links := params["links"].([]map[string]any)
	require.Len(t, links, 2)
	assert.Equal(t, "insulin", links[0]["phrase"])
	assert.Equal(t, "http://dbpedia.org/resource/Glucose", links[1]["uri"])
	assert.Contains(t, exec.calls[0].query, "MERGE (a)-[m:MENTIONS")
}

func TestPublishConceptsSkipsEmptyEntry(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	sink := NewSink(exec, nil)
	require.NoError(t, sink.PublishConcepts(context.Background(), domain.ConceptEntry{ID: "x"}))
	assert.Empty(t, exec.calls)
}

func TestPublishConceptsWrapsError(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{err: errors.New("unavailable")}
	sink := NewSink(exec, nil)
	err := sink.PublishConcepts(context.Background(), entry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elife-1")
	assert.Equal(t, "neo4j", sink.Name())
}

func TestEnsureSchemaToleratesFailures(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{err: errors.New("exists")}
	NewSink(exec, logging.Discard()).EnsureSchema(context.Background())
	assert.Len(t, exec.calls, len(schemaQueries))
}
