package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
	"ConceptEnricher/internal/similarity"
)

const defaultEmbedBatch = 64

// SimilarityDeps wires the embedding stage.
type SimilarityDeps struct {
	Embedder  ports.Embedder
	Writers   []ports.ReportWriter
	Notifier  ports.Notifier
	Metrics   *metrics.Metrics
	BatchSize int
	Options   similarity.Options
	Logger    *slog.Logger
}

// SimilarityRunner embeds concept descriptions and computes similarity extremes.
type SimilarityRunner struct {
	embedder  ports.Embedder
	writers   []ports.ReportWriter
	notifier  ports.Notifier
	metrics   *metrics.Metrics
	batchSize int
	opts      similarity.Options
	logger    *slog.Logger
}

// NewSimilarityRunner builds the similarity stage.
func NewSimilarityRunner(deps SimilarityDeps) *SimilarityRunner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultEmbedBatch
	}
	return &SimilarityRunner{
		embedder:  deps.Embedder,
		writers:   deps.Writers,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		batchSize: batch,
		opts:      deps.Options,
		logger:    logger,
	}
}

// CollectConcepts flattens concept ledger entries into similarity inputs, in ledger order.
// Concepts without a usable description are left out.
func CollectConcepts(entries []domain.ConceptEntry) []domain.ResolvedConcept {
	var out []domain.ResolvedConcept
	seen := map[string]struct{}{}
	for _, entry := range entries {
		entry.Concepts.Each(func(phrase string, link domain.Link) {
			if !link.HasDescription() {
				return
			}
			c := domain.ResolvedConcept{ArticleID: entry.ID, Phrase: phrase, Link: link}
			if _, dup := seen[c.Identity()]; dup {
				return
			}
			seen[c.Identity()] = struct{}{}
			out = append(out, c)
		})
	}
	return out
}

// Run embeds every concept description and writes the similarity report for one partition.
func (r *SimilarityRunner) Run(ctx context.Context, partition string, entries []domain.ConceptEntry) (domain.SimilarityReport, error) {
	if r.embedder == nil {
		return domain.SimilarityReport{}, fmt.Errorf("similarity runner misconfigured: embedder is required")
	}
	logger := r.logger.With("partition", partition)

	concepts := CollectConcepts(entries)
	logger.Info("similarity started", "ledger_entries", len(entries), "concepts", len(concepts))

	vectors, err := r.embed(ctx, concepts, logger)
	if err != nil {
		return domain.SimilarityReport{}, err
	}

	ids := make([]string, len(concepts))
	for i, c := range concepts {
		ids[i] = c.Identity()
	}

	started := time.Now()
	rows, err := similarity.ComputeExtremes(ctx, ids, vectors, r.opts)
	if err != nil {
		return domain.SimilarityReport{}, fmt.Errorf("partition %s: %w", partition, err)
	}
	elapsed := time.Since(started)
	r.metrics.ObserveSimilarity(len(ids), elapsed)
	logger.Info("similarity computed", "concepts", len(ids), "elapsed", elapsed)

	report := domain.SimilarityReport{Partition: partition, Entries: rows}
	for _, w := range r.writers {
		if err := w.WriteReport(ctx, report); err != nil {
			return report, fmt.Errorf("write report: %w", err)
		}
	}

	if r.notifier != nil {
		msg := fmt.Sprintf("Similarity run\nPartition: %s\nConcepts: %d\nElapsed: %s", partition, len(ids), elapsed.Round(time.Millisecond))
		if err := r.notifier.PublishDigest(ctx, msg); err != nil {
			logger.Warn("similarity summary not delivered", "error", err)
		}
	}
	return report, nil
}

func (r *SimilarityRunner) embed(ctx context.Context, concepts []domain.ResolvedConcept, logger *slog.Logger) ([][]float32, error) {
	vectors := make([][]float32, 0, len(concepts))
	for lo := 0; lo < len(concepts); lo += r.batchSize {
		hi := min(lo+r.batchSize, len(concepts))
		texts := make([]string, 0, hi-lo)
		for _, c := range concepts[lo:hi] {
			texts = append(texts, c.Link.Description)
		}
		batch, err := r.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed concepts %d-%d: %w", lo, hi-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed concepts %d-%d: got %d vectors for %d texts", lo, hi-1, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
		logger.Debug("embedded batch", "from", lo, "to", hi-1)
	}
	return vectors, nil
}
