package ports

import (
	"context"

	"ConceptEnricher/internal/domain"
)

// ExtractOptions carries the tuning knobs every extractor honours.
type ExtractOptions struct {
	MaxTerms       int
	SpanWidth      int
	DedupThreshold float64
}

// Extractor proposes ranked keyphrases for a text, best-scored first.
type Extractor interface {
	Extract(ctx context.Context, text string, opts ExtractOptions) ([]domain.CandidatePhrase, error)
}

// Oracle is a request/response text generator (LLM chat endpoint).
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether a phrase belongs to the target domain.
type Classifier interface {
	Classify(ctx context.Context, phrase string) (domain.RelevanceJudgment, error)
}

// Resolver looks phrases up in an external knowledge base.
// Search returns ok=false when nothing matched.
type Resolver interface {
	Search(ctx context.Context, phrase string) (uri string, ok bool, err error)
	Describe(ctx context.Context, uri string) (string, error)
}

// Embedder maps texts to fixed-length vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LedgerStore loads and saves complete ledger snapshots.
type LedgerStore interface {
	Load(ctx context.Context) (domain.Ledgers, domain.Checkpoint, error)
	Save(ctx context.Context, ledgers domain.Ledgers, checkpoint domain.Checkpoint) error
}

// CorpusSource loads a configured corpus by name.
type CorpusSource interface {
	Load(ctx context.Context, name string) ([]domain.Article, error)
}

// ConceptSink receives every persisted concept entry (graph, SQL mirror, event stream).
type ConceptSink interface {
	Name() string
	PublishConcepts(ctx context.Context, entry domain.ConceptEntry) error
}

// ReportWriter stores a finished similarity report.
type ReportWriter interface {
	WriteReport(ctx context.Context, report domain.SimilarityReport) error
}

// Notifier streams run summaries to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}
