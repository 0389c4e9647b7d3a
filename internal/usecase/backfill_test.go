package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/logging"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
)

type mirroringSink struct {
	recordingSink
	mirrored  map[string]bool
	mirrorErr error
}

func (s *mirroringSink) MirroredArticles(_ context.Context, ids []string) (map[string]bool, error) {
	if s.mirrorErr != nil {
		return nil, s.mirrorErr
	}
	out := map[string]bool{}
	for _, id := range ids {
		if s.mirrored[id] {
			out[id] = true
		}
	}
	return out, nil
}

func backfillStore() *memoryStore {
	return &memoryStore{ledgers: domain.Ledgers{Concepts: []domain.ConceptEntry{
		conceptEntry("a1", "insulin", "u1", "Insulin is a hormone."),
		conceptEntry("a2", "glucose", "u2", "Glucose is a sugar."),
		conceptEntry("a3", "kinase", "u3", "Kinases add phosphate groups."),
	}}}
}

func TestBackfillSkipsMirroredArticles(t *testing.T) {
	t.Parallel()

	plain := &recordingSink{name: "kafka"}
	mirror := &mirroringSink{recordingSink: recordingSink{name: "postgres"}, mirrored: map[string]bool{"a2": true}}
	b := NewBackfiller(BackfillDeps{
		Store:  backfillStore(),
		Sinks:  []ports.ConceptSink{plain, mirror},
		Logger: logging.Discard(),
	})

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Entries: 3, Published: 5, AlreadyMirrored: 1}, res)
	assert.Len(t, plain.entries, 3)
	require.Len(t, mirror.entries, 2)
	assert.Equal(t, "a1", mirror.entries[0].ID)
	assert.Equal(t, "a3", mirror.entries[1].ID)
}

func TestBackfillCountsFailures(t *testing.T) {
	t.Parallel()

	m := metrics.New(nil)
	broken := &recordingSink{name: "neo4j", err: errors.New("offline")}
	b := NewBackfiller(BackfillDeps{Store: backfillStore(), Sinks: []ports.ConceptSink{broken}, Metrics: m})

	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Failed)
	assert.Zero(t, res.Published)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SinkFailuresTotal.WithLabelValues("neo4j")))
}

func TestBackfillMirrorQueryError(t *testing.T) {
	t.Parallel()

	mirror := &mirroringSink{recordingSink: recordingSink{name: "postgres"}, mirrorErr: errors.New("conn refused")}
	b := NewBackfiller(BackfillDeps{Store: backfillStore(), Sinks: []ports.ConceptSink{mirror}})

	_, err := b.Run(context.Background())
	assert.ErrorContains(t, err, "postgres")
	assert.Empty(t, mirror.entries)
}

func TestBackfillNothingToDo(t *testing.T) {
	t.Parallel()

	b := NewBackfiller(BackfillDeps{Store: &memoryStore{}, Sinks: []ports.ConceptSink{&recordingSink{name: "kafka"}}})
	res, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{}, res)

	_, err = NewBackfiller(BackfillDeps{}).Run(context.Background())
	assert.Error(t, err)
}
