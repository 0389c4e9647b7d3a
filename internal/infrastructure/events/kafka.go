// Package events publishes one "concept enriched" event per article to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// ConceptEvent is the JSON value of each message; the key is the article ID.
type ConceptEvent struct {
	EventID    string              `json:"eventId"`
	ArticleID  string              `json:"articleId"`
	Title      string              `json:"title"`
	Concepts   domain.ConceptLinks `json:"concepts"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a ports.ConceptSink backed by a Kafka topic.
type Publisher struct {
	writer MessageWriter
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.ConceptSink = (*Publisher)(nil)

// NewKafkaWriter builds a synchronous, hash-partitioned writer.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
}

func NewPublisher(writer MessageWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer: writer,
		now:    time.Now,
		logger: logger.With("component", "kafka-publisher"),
	}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) PublishConcepts(ctx context.Context, entry domain.ConceptEntry) error {
	event := ConceptEvent{
		EventID:    uuid.NewString(),
		ArticleID:  entry.ID,
		Title:      entry.Title,
		Concepts:   entry.Concepts,
		OccurredAt: p.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event value: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(entry.ID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish message", "article_id", entry.ID, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("message published", "article_id", entry.ID, "event_id", event.EventID, "value_size", len(value))
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
