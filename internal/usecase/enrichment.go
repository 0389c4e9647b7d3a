package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
)

// ErrInvalidRange is returned for ranges that are malformed before clamping.
var ErrInvalidRange = errors.New("invalid article range")

// EnricherDeps wires all driven adapters into the enrichment orchestrator.
type EnricherDeps struct {
	Extractor  ports.Extractor
	Classifier ports.Classifier
	Resolver   ports.Resolver
	Store      ports.LedgerStore
	Sinks      []ports.ConceptSink
	Notifier   ports.Notifier
	Metrics    *metrics.Metrics
	Options    ports.ExtractOptions
	Logger     *slog.Logger
	Now        func() time.Time
}

// Enricher drives extraction, classification and resolution over a corpus range.
// It processes one article at a time and persists both ledgers after each one.
type Enricher struct {
	extractor  ports.Extractor
	classifier ports.Classifier
	resolver   ports.Resolver
	store      ports.LedgerStore
	sinks      []ports.ConceptSink
	notifier   ports.Notifier
	metrics    *metrics.Metrics
	opts       ports.ExtractOptions
	logger     *slog.Logger
	now        func() time.Time
}

// RangeRequest selects the articles of one run. Start and End are 1-based and inclusive.
type RangeRequest struct {
	Corpus   string
	Articles []domain.Article
	Start    int
	End      int
}

// RangeResult summarises a run and carries the resulting ledgers.
type RangeResult struct {
	RunID       string
	Start       int
	End         int
	Processed   int
	Skipped     int
	AlreadyDone int
	Phrases     int
	Relevant    int
	Resolved    int
	Ledgers     domain.Ledgers
}

// NewEnricher constructs the orchestration component.
func NewEnricher(deps EnricherDeps) *Enricher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Enricher{
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		resolver:   deps.Resolver,
		store:      deps.Store,
		sinks:      deps.Sinks,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		opts:       deps.Options,
		logger:     logger,
		now:        now,
	}
}

// ValidateRange rejects ranges that are malformed as given.
func ValidateRange(start, end int) error {
	if start < 1 {
		return fmt.Errorf("%w: start %d must be at least 1", ErrInvalidRange, start)
	}
	if end < start {
		return fmt.Errorf("%w: end %d precedes start %d", ErrInvalidRange, end, start)
	}
	return nil
}

// ClampRange fits 1-based inclusive bounds into a corpus of n articles.
// The result may have start > end, meaning there is nothing to do.
func ClampRange(start, end, n int) (int, int) {
	if start < 1 {
		start = 1
	}
	if end > n {
		end = n
	}
	return start, end
}

// ProcessRange loads the ledgers, enriches every article in the clamped range and
// persists both ledgers plus the checkpoint after each article. Collaborator failures
// degrade to "not relevant" or "no link"; only persistence failures and cancellation abort.
func (e *Enricher) ProcessRange(ctx context.Context, req RangeRequest) (RangeResult, error) {
	if e.extractor == nil || e.store == nil {
		return RangeResult{}, fmt.Errorf("enricher misconfigured: extractor and store are required")
	}

	ledgers, checkpoint, err := e.store.Load(ctx)
	if err != nil {
		return RangeResult{}, fmt.Errorf("load ledgers: %w", err)
	}

	start, end := ClampRange(req.Start, req.End, len(req.Articles))
	result := RangeResult{
		RunID:   uuid.NewString(),
		Start:   start,
		End:     end,
		Ledgers: ledgers,
	}
	logger := e.logger.With("run", result.RunID, "corpus", req.Corpus)
	logger.Info("enrichment started", "start", start, "end", end, "articles", len(req.Articles),
		"ledger_keyphrases", len(ledgers.Keyphrases), "ledger_concepts", len(ledgers.Concepts))

	for idx := start; idx <= end; idx++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("enrichment interrupted before article %d: %w", idx, err)
		}

		article := req.Articles[idx-1]
		alog := logger.With("index", idx, "article", article.ID)

		var concept *domain.ConceptEntry
		switch {
		case article.SkipReason() != "":
			alog.Warn("article skipped", "state", domain.StateSkipped, "reason", article.SkipReason())
			result.Skipped++
			e.metrics.ObserveArticle("skipped")
		case ledgers.Contains(article.ID):
			alog.Info("article already in ledger", "state", domain.StateSkipped)
			result.AlreadyDone++
			e.metrics.ObserveArticle("already_done")
		default:
			kp, entry, stats := e.enrichArticle(ctx, article, alog)
			if err := ctx.Err(); err != nil {
				return result, fmt.Errorf("enrichment interrupted during article %d: %w", idx, err)
			}
			ledgers.PutConcepts(entry)
			ledgers.PutKeyphrases(kp)
			if entry.Concepts.Len() > 0 {
				concept = &entry
			}
			result.Processed++
			result.Phrases += stats.phrases
			result.Relevant += stats.relevant
			result.Resolved += stats.resolved
			e.metrics.ObserveArticle("processed")
		}

		checkpoint = domain.Checkpoint{
			Corpus:    req.Corpus,
			LastIndex: idx,
			RunID:     result.RunID,
			UpdatedAt: e.now().UTC(),
		}
		if err := e.store.Save(ctx, ledgers, checkpoint); err != nil {
			return result, fmt.Errorf("persist ledgers after article %d: %w", idx, err)
		}
		result.Ledgers = ledgers
		alog.Debug("ledgers persisted", "state", domain.StatePersisted,
			"keyphrase_entries", len(ledgers.Keyphrases), "concept_entries", len(ledgers.Concepts))

		if concept != nil {
			e.publish(ctx, *concept, alog)
		}
	}

	logger.Info("enrichment finished",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"already_done", result.AlreadyDone,
		"phrases", result.Phrases,
		"relevant", result.Relevant,
		"resolved", result.Resolved)

	if e.notifier != nil {
		if err := e.notifier.PublishDigest(ctx, buildRangeDigest(req.Corpus, result)); err != nil {
			logger.Warn("run summary not delivered", "error", err)
		}
	}

	return result, nil
}

type articleStats struct {
	phrases  int
	relevant int
	resolved int
}

func (e *Enricher) enrichArticle(ctx context.Context, article domain.Article, log *slog.Logger) (domain.KeyphraseEntry, domain.ConceptEntry, articleStats) {
	var stats articleStats
	kp := domain.KeyphraseEntry{ID: article.ID, Title: article.Title, Keywords: []string{}}
	entry := domain.ConceptEntry{ID: article.ID, Title: article.Title}

	candidates, err := e.extractor.Extract(ctx, article.Content(), e.opts)
	if err != nil {
		log.Warn("keyphrase extraction failed", "error", err)
	}
	kp.Keywords = append(kp.Keywords, domain.Phrases(candidates)...)
	stats.phrases = len(kp.Keywords)
	log.Info("keyphrases extracted", "state", domain.StateExtracted, "phrases", stats.phrases)

	for _, phrase := range kp.Keywords {
		if !e.isRelevant(ctx, phrase, log) {
			continue
		}
		stats.relevant++

		link, ok := e.resolve(ctx, phrase, log)
		if !ok {
			continue
		}
		entry.Concepts.Set(phrase, link)
		stats.resolved++
	}
	log.Info("article enriched", "state", domain.StateResolved, "relevant", stats.relevant, "resolved", stats.resolved)

	return kp, entry, stats
}

func (e *Enricher) isRelevant(ctx context.Context, phrase string, log *slog.Logger) bool {
	if e.classifier == nil {
		return false
	}
	judgment, err := e.classifier.Classify(ctx, phrase)
	if err != nil {
		log.Warn("classification failed", "phrase", phrase, "error", err)
		e.metrics.ObserveClassification("error")
		return false
	}
	log.Debug("phrase classified", "phrase", phrase, "relevant", judgment.Relevant, "raw", judgment.Raw)
	if judgment.Relevant {
		e.metrics.ObserveClassification("relevant")
	} else {
		e.metrics.ObserveClassification("irrelevant")
	}
	return judgment.Relevant
}

func (e *Enricher) resolve(ctx context.Context, phrase string, log *slog.Logger) (domain.Link, bool) {
	if e.resolver == nil {
		return domain.Link{}, false
	}
	uri, found, err := e.resolver.Search(ctx, phrase)
	if err != nil {
		log.Warn("knowledge base search failed", "phrase", phrase, "error", err)
		e.metrics.ObserveResolution("error")
		return domain.Link{}, false
	}
	uri = strings.TrimSpace(uri)
	if !found || uri == "" {
		log.Debug("no knowledge base match", "phrase", phrase)
		e.metrics.ObserveResolution("not_found")
		return domain.Link{}, false
	}

	description, err := e.resolver.Describe(ctx, uri)
	if err != nil {
		log.Warn("description lookup failed", "phrase", phrase, "uri", uri, "error", err)
		description = domain.DescriptionUnavailable
	}
	if strings.TrimSpace(description) == "" {
		description = domain.DescriptionUnavailable
	}
	log.Debug("phrase resolved", "phrase", phrase, "uri", uri)
	e.metrics.ObserveResolution("resolved")
	return domain.Link{URI: uri, Description: description}, true
}

func (e *Enricher) publish(ctx context.Context, entry domain.ConceptEntry, log *slog.Logger) {
	for _, sink := range e.sinks {
		if err := sink.PublishConcepts(ctx, entry); err != nil {
			log.Warn("concept sink failed", "sink", sink.Name(), "error", err)
			e.metrics.ObserveSinkFailure(sink.Name())
		}
	}
}

func buildRangeDigest(corpus string, r RangeResult) string {
	return fmt.Sprintf("Enrichment run %s\nCorpus: %s\nRange: %d-%d\nProcessed: %d, skipped: %d, already done: %d\nPhrases: %d, relevant: %d, resolved: %d\nLedgers: %d keyphrase / %d concept entries",
		r.RunID, corpus, r.Start, r.End,
		r.Processed, r.Skipped, r.AlreadyDone,
		r.Phrases, r.Relevant, r.Resolved,
		len(r.Ledgers.Keyphrases), len(r.Ledgers.Concepts))
}
