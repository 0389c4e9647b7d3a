package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/logging"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishConcepts(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{}
	p := NewPublisher(writer, logging.Discard())
	p.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	var links domain.ConceptLinks
	links.Set("insulin", domain.Link{URI: "http://dbpedia.org/resource/Insulin", Description: "A hormone."})
	require.NoError(t, p.PublishConcepts(context.Background(), domain.ConceptEntry{ID: "a1", Title: "T", Concepts: links}))

	require.Len(t, writer.msgs, 1)
	assert.Equal(t, "a1", string(writer.msgs[0].Key))

	var got ConceptEvent
	require.NoError(t, json.Unmarshal(writer.msgs[0].Value, &got))
	assert.Equal(t, "a1", got.ArticleID)
	assert.Equal(t, "T", got.Title)
	_, err := uuid.Parse(got.EventID)
	assert.NoError(t, err)
	link, ok := got.Concepts.Get("insulin")
	require.True(t, ok)
	assert.Equal(t, "A hormone.", link.Description)
	assert.True(t, got.OccurredAt.Equal(p.now()))
}

func TestPublishConceptsError(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&recordingWriter{err: errors.New("leader not available")}, nil)
	err := p.PublishConcepts(context.Background(), domain.ConceptEntry{ID: "a1"})
	assert.ErrorContains(t, err, "leader not available")
	assert.Equal(t, "kafka", p.Name())
}

func TestNewKafkaWriter(t *testing.T) {
	t.Parallel()

	w := NewKafkaWriter(config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "concept.enriched"})
	assert.Equal(t, "concept.enriched", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, 3, w.MaxAttempts)
}
