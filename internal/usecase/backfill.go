package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
)

// MirrorChecker is implemented by sinks that can report which articles they already hold.
type MirrorChecker interface {
	MirroredArticles(ctx context.Context, ids []string) (map[string]bool, error)
}

// BackfillDeps wires the ledger store and the sinks to replay into.
type BackfillDeps struct {
	Store   ports.LedgerStore
	Sinks   []ports.ConceptSink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// BackfillResult counts per-entry outcomes summed over all sinks.
type BackfillResult struct {
	Entries         int
	Published       int
	AlreadyMirrored int
	Failed          int
}

// Backfiller replays the concept ledger into sinks that were offline or added later.
type Backfiller struct {
	store   ports.LedgerStore
	sinks   []ports.ConceptSink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBackfiller(deps BackfillDeps) *Backfiller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backfiller{
		store:   deps.Store,
		sinks:   deps.Sinks,
		metrics: deps.Metrics,
		logger:  logger.With("component", "backfill"),
	}
}

// Run publishes every concept entry to every sink. Sinks implementing MirrorChecker
// only receive entries they do not hold yet. Publish failures are counted, not returned.
func (b *Backfiller) Run(ctx context.Context) (BackfillResult, error) {
	if b.store == nil {
		return BackfillResult{}, fmt.Errorf("backfill misconfigured: store is required")
	}
	ledgers, _, err := b.store.Load(ctx)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("load ledgers: %w", err)
	}

	result := BackfillResult{Entries: len(ledgers.Concepts)}
	if len(b.sinks) == 0 || len(ledgers.Concepts) == 0 {
		b.logger.Info("nothing to backfill", "entries", result.Entries, "sinks", len(b.sinks))
		return result, nil
	}

	ids := make([]string, 0, len(ledgers.Concepts))
	for _, e := range ledgers.Concepts {
		ids = append(ids, e.ID)
	}

	for _, sink := range b.sinks {
		log := b.logger.With("sink", sink.Name())
		mirrored := map[string]bool{}
		if checker, ok := sink.(MirrorChecker); ok {
			mirrored, err = checker.MirroredArticles(ctx, ids)
			if err != nil {
				return result, fmt.Errorf("sink %s: %w", sink.Name(), err)
			}
		}

		published, failed := b.replay(ctx, sink, ledgers.Concepts, mirrored, log)
		result.Published += published
		result.Failed += failed
		result.AlreadyMirrored += len(mirrored)
		log.Info("sink backfilled", "published", published, "failed", failed, "already_mirrored", len(mirrored))
	}
	return result, nil
}

func (b *Backfiller) replay(ctx context.Context, sink ports.ConceptSink, entries []domain.ConceptEntry, mirrored map[string]bool, log *slog.Logger) (int, int) {
	var published, failed int
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if mirrored[entry.ID] {
			continue
		}
		if err := sink.PublishConcepts(ctx, entry); err != nil {
			log.Warn("concept sink failed", "article", entry.ID, "error", err)
			b.metrics.ObserveSinkFailure(sink.Name())
			failed++
			continue
		}
		published++
	}
	return published, failed
}
