package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/corpus"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/infrastructure/cache"
	corpusinfra "ConceptEnricher/internal/infrastructure/corpus"
	"ConceptEnricher/internal/infrastructure/dbpedia"
	"ConceptEnricher/internal/infrastructure/events"
	"ConceptEnricher/internal/infrastructure/extractor"
	"ConceptEnricher/internal/infrastructure/graph"
	"ConceptEnricher/internal/infrastructure/llm"
	"ConceptEnricher/internal/infrastructure/ml"
	"ConceptEnricher/internal/infrastructure/storage"
	"ConceptEnricher/internal/infrastructure/telegram"
	"ConceptEnricher/internal/logging"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
	"ConceptEnricher/internal/resilience"
	"ConceptEnricher/internal/similarity"
	"ConceptEnricher/internal/usecase"
)

// ErrCorpusNotFound is re-exported for the CLI exit path.
var ErrCorpusNotFound = corpusinfra.ErrCorpusNotFound

// Application wires configs to use cases. Adapters are built per command so that
// a report command never needs model credentials.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	source  *corpusinfra.Source
	backend cache.Backend
	closers []func(context.Context) error
}

// New builds the shared pieces: metrics and corpus source.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := corpus.NewRegistry(
		corpusinfra.NewElifeReader(baseLogger),
		corpusinfra.NewArxivReader(nil),
	)

	return &Application{
		cfg:     cfg,
		logger:  baseLogger,
		metrics: metrics.New(nil),
		source:  corpusinfra.NewSource(registry, cfg.Corpora, baseLogger.With("component", "source")),
	}
}

// StartMetrics exposes /metrics when enabled; the server stops on Close.
func (a *Application) StartMetrics() {
	if !a.cfg.Metrics.Enabled {
		return
	}
	shutdown := metrics.StartServer(a.metrics, a.cfg.Metrics.Port, a.logger.With("component", "metrics"))
	a.closers = append(a.closers, shutdown)
}

// Close releases every adapter opened by previous commands, newest first.
func (a *Application) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// EnrichRequest selects a corpus and a 1-based inclusive range. End 0 means "to the end".
type EnrichRequest struct {
	Corpus string
	Start  int
	End    int
	Resume bool
}

// Enrich runs the enrichment orchestrator over one corpus range.
func (a *Application) Enrich(ctx context.Context, req EnrichRequest) (usecase.RangeResult, error) {
	articles, err := a.source.Load(ctx, req.Corpus)
	if err != nil {
		return usecase.RangeResult{}, err
	}
	store, err := a.ledgerStore(req.Corpus)
	if err != nil {
		return usecase.RangeResult{}, err
	}

	start, end := req.Start, req.End
	if end == 0 {
		end = len(articles)
	}
	if req.Resume {
		_, checkpoint, err := store.Load(ctx)
		if err != nil {
			return usecase.RangeResult{}, fmt.Errorf("load checkpoint: %w", err)
		}
		if checkpoint.Corpus == req.Corpus && checkpoint.LastIndex+1 > start {
			start = checkpoint.LastIndex + 1
			a.logger.Info("resuming from checkpoint", "corpus", req.Corpus, "start", start, "run", checkpoint.RunID)
		}
		if start > end {
			a.logger.Info("nothing left to enrich", "corpus", req.Corpus, "last_index", checkpoint.LastIndex)
			return usecase.RangeResult{Start: start, End: end}, nil
		}
	}
	if err := usecase.ValidateRange(start, end); err != nil {
		return usecase.RangeResult{}, err
	}

	enricher, err := a.buildEnricher(ctx, store)
	if err != nil {
		return usecase.RangeResult{}, err
	}
	return enricher.ProcessRange(ctx, usecase.RangeRequest{
		Corpus:   req.Corpus,
		Articles: articles,
		Start:    start,
		End:      end,
	})
}

// Similarity embeds the concepts of the given concept ledgers (or the corpus ledger) and
// writes the extremes report. The partition defaults to the corpus name.
func (a *Application) Similarity(ctx context.Context, corpus string, ledgerPaths []string, partition string) (domain.SimilarityReport, error) {
	if partition == "" {
		partition = corpus
	}
	if partition == "" {
		partition = "all"
	}
	entries, err := a.conceptEntries(ctx, corpus, ledgerPaths)
	if err != nil {
		return domain.SimilarityReport{}, err
	}

	embedder, err := a.buildEmbedder(ctx)
	if err != nil {
		return domain.SimilarityReport{}, err
	}

	writers := []ports.ReportWriter{storage.NewJSONReportWriter(a.cfg.Similarity.ReportPath)}
	if a.cfg.Similarity.ParquetPath != "" {
		writers = append(writers, storage.NewParquetReportWriter(a.cfg.Similarity.ParquetPath))
	}

	runner := usecase.NewSimilarityRunner(usecase.SimilarityDeps{
		Embedder:  embedder,
		Writers:   writers,
		Notifier:  a.buildNotifier(),
		Metrics:   a.metrics,
		BatchSize: a.cfg.Embedder.BatchSize,
		Options: similarity.Options{
			Parallelism: a.cfg.Similarity.Parallelism,
			MaxConcepts: a.cfg.Similarity.MaxConcepts,
		},
		Logger: a.logger.With("component", "similarity"),
	})
	return runner.Run(ctx, partition, entries)
}

// MissingKeywords compares a reference keyphrase ledger with this run's keyphrase ledger,
// or with its concept ledger when against is "concepts".
func (a *Application) MissingKeywords(ctx context.Context, corpus, referencePath, against string) ([]domain.MissingKeywords, error) {
	var reference []domain.KeyphraseEntry
	if err := storage.ReadJSON(referencePath, &reference); err != nil {
		return nil, fmt.Errorf("read reference ledger: %w", err)
	}
	ledgers, err := a.loadLedgers(ctx, corpus)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(against) {
	case "", "keyphrases":
		return usecase.MissingKeywords(reference, ledgers.Keyphrases), nil
	case "concepts":
		return usecase.MissingConcepts(reference, ledgers.Concepts), nil
	default:
		return nil, fmt.Errorf("unknown comparison target %q (want keyphrases or concepts)", against)
	}
}

// Select returns the concept entries for ids and writes them to out when set.
func (a *Application) Select(ctx context.Context, corpus string, ids []string, out string) ([]domain.ConceptEntry, error) {
	ledgers, err := a.loadLedgers(ctx, corpus)
	if err != nil {
		return nil, err
	}
	selected, missing := usecase.SelectEntries(ids, ledgers.Concepts)
	if len(missing) > 0 {
		a.logger.Warn("ids not found in concept ledger", "ids", strings.Join(missing, ","))
	}
	if out != "" {
		if selected == nil {
			selected = []domain.ConceptEntry{}
		}
		if err := storage.WriteJSON(out, selected); err != nil {
			return nil, fmt.Errorf("write selection: %w", err)
		}
	}
	return selected, nil
}

// Backfill replays the corpus concept ledger into every configured sink.
func (a *Application) Backfill(ctx context.Context, corpus string) (usecase.BackfillResult, error) {
	store, err := a.ledgerStore(corpus)
	if err != nil {
		return usecase.BackfillResult{}, err
	}
	sinks, err := a.buildSinks(ctx)
	if err != nil {
		return usecase.BackfillResult{}, err
	}
	if len(sinks) == 0 {
		return usecase.BackfillResult{}, fmt.Errorf("no sinks configured")
	}
	return usecase.NewBackfiller(usecase.BackfillDeps{
		Store:   store,
		Sinks:   sinks,
		Metrics: a.metrics,
		Logger:  a.logger,
	}).Run(ctx)
}

// ledgerStore returns the store under <ledger.dir>/<corpus>. An empty corpus means ledger.dir itself.
func (a *Application) ledgerStore(corpus string) (*storage.JSONLedgerStore, error) {
	cfg := a.cfg.Ledger
	if corpus != "" {
		if _, ok := a.cfg.Corpus(corpus); !ok {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, corpus)
		}
		cfg.Dir = filepath.Join(cfg.Dir, corpus)
	}
	return storage.NewJSONLedgerStore(cfg, a.logger.With("component", "ledger", "corpus", corpus)), nil
}

func (a *Application) loadLedgers(ctx context.Context, corpus string) (domain.Ledgers, error) {
	store, err := a.ledgerStore(corpus)
	if err != nil {
		return domain.Ledgers{}, err
	}
	ledgers, _, err := store.Load(ctx)
	if err != nil {
		return domain.Ledgers{}, fmt.Errorf("load ledgers: %w", err)
	}
	return ledgers, nil
}

func (a *Application) conceptEntries(ctx context.Context, corpus string, paths []string) ([]domain.ConceptEntry, error) {
	if len(paths) == 0 {
		ledgers, err := a.loadLedgers(ctx, corpus)
		if err != nil {
			return nil, err
		}
		return ledgers.Concepts, nil
	}
	var all []domain.ConceptEntry
	for _, p := range paths {
		var entries []domain.ConceptEntry
		if err := storage.ReadJSON(p, &entries); err != nil {
			return nil, fmt.Errorf("read concept ledger %s: %w", p, err)
		}
		all = append(all, entries...)
	}
	return all, nil
}

func (a *Application) buildEnricher(ctx context.Context, store ports.LedgerStore) (*usecase.Enricher, error) {
	ext, err := a.buildExtractor()
	if err != nil {
		return nil, err
	}
	classifier, err := a.buildClassifier(ctx)
	if err != nil {
		return nil, err
	}
	resolver, err := a.buildResolver(ctx)
	if err != nil {
		return nil, err
	}
	sinks, err := a.buildSinks(ctx)
	if err != nil {
		return nil, err
	}

	return usecase.NewEnricher(usecase.EnricherDeps{
		Extractor:  ext,
		Classifier: classifier,
		Resolver:   resolver,
		Store:      store,
		Sinks:      sinks,
		Notifier:   a.buildNotifier(),
		Metrics:    a.metrics,
		Options: ports.ExtractOptions{
			MaxTerms:       a.cfg.Extractor.MaxTerms,
			SpanWidth:      a.cfg.Extractor.SpanWidth,
			DedupThreshold: a.cfg.Extractor.DedupThreshold,
		},
		Logger: a.logger.With("component", "enricher"),
	}), nil
}

func (a *Application) buildExtractor() (ports.Extractor, error) {
	switch strings.ToLower(a.cfg.Extractor.Provider) {
	case "", "yake":
		return extractor.NewYake(a.logger), nil
	case "remote":
		if a.cfg.Extractor.Endpoint == "" {
			return nil, fmt.Errorf("extractor.endpoint is required for the remote extractor")
		}
		return ml.NewClient(a.cfg.Extractor.Endpoint, a.cfg.Extractor.APIKey, a.cfg.Extractor.Timeout), nil
	default:
		return nil, fmt.Errorf("unsupported extractor provider: %s", a.cfg.Extractor.Provider)
	}
}

func (a *Application) buildClassifier(ctx context.Context) (ports.Classifier, error) {
	cc := a.cfg.Classifier
	oracle, err := llm.NewOracle(ctx, cc)
	if err != nil {
		return nil, err
	}
	if closer, ok := oracle.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
	}

	guarded := resilience.NewGuardedOracle(oracle, resilience.Guard{
		Name:    "classifier",
		Breaker: resilience.NewBreaker("classifier", cc.Breaker, a.logger, a.metrics),
		Retry:   resilience.RetryConfig{Retries: cc.Retries, Logger: a.logger},
	})
	classifier := llm.NewPromptClassifier(guarded, cc.Prompt, cc.AffirmativeToken, a.logger.With("component", "classifier"))

	return cache.NewCachedClassifier(classifier, a.cacheBackend(ctx), a.cfg.Cache.TTL, a.metrics, a.logger), nil
}

func (a *Application) buildResolver(ctx context.Context) (ports.Resolver, error) {
	rc := a.cfg.Resolver
	if rc.SearchURL == "" {
		return nil, fmt.Errorf("resolver.searchUrl is required")
	}
	resolver := resilience.NewGuardedResolver(
		dbpedia.NewResolver(rc, &http.Client{Timeout: rc.Timeout}, a.logger),
		resilience.Guard{
			Name:    "resolver",
			Breaker: resilience.NewBreaker("resolver", rc.Breaker, a.logger, a.metrics),
			Retry:   resilience.RetryConfig{Retries: rc.Retries, Logger: a.logger},
		},
	)
	return cache.NewCachedResolver(resolver, a.cacheBackend(ctx), a.cfg.Cache.TTL, a.metrics, a.logger), nil
}

func (a *Application) buildEmbedder(ctx context.Context) (ports.Embedder, error) {
	ec := a.cfg.Embedder
	if strings.EqualFold(ec.Provider, "remote") {
		if ec.BaseURL == "" {
			return nil, fmt.Errorf("embedder.baseUrl is required for the remote embedder")
		}
		return ml.NewClient(ec.BaseURL, ec.APIKey, ec.Timeout), nil
	}
	embedder, err := llm.NewEmbedder(ctx, ec)
	if err != nil {
		return nil, err
	}
	if closer, ok := embedder.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func(context.Context) error { return closer.Close() })
	}
	return embedder, nil
}

// cacheBackend returns the shared response cache: Redis when configured and reachable,
// otherwise an in-process map that lives for one command.
func (a *Application) cacheBackend(ctx context.Context) cache.Backend {
	if a.backend != nil {
		return a.backend
	}
	a.backend = cache.NewMemoryBackend()
	if a.cfg.Cache.RedisAddr == "" {
		return a.backend
	}
	redis, err := cache.NewRedisBackend(ctx, a.cfg.Cache)
	if err != nil {
		a.logger.Warn("redis unavailable, using in-memory cache", "addr", a.cfg.Cache.RedisAddr, "error", err)
		return a.backend
	}
	a.closers = append(a.closers, func(context.Context) error { return redis.Close() })
	a.backend = redis
	return a.backend
}

// buildSinks opens every configured mirror. A sink that cannot connect is a startup error.
func (a *Application) buildSinks(ctx context.Context) ([]ports.ConceptSink, error) {
	var sinks []ports.ConceptSink

	if dsn := a.cfg.Database.DSN; dsn != "" {
		db, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return db.Close() })
		repo := storage.NewPostgresRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		sinks = append(sinks, repo)
	}

	if a.cfg.Graph.URI != "" {
		sink, err := graph.Connect(ctx, a.cfg.Graph, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		sink.EnsureSchema(ctx)
		sinks = append(sinks, sink)
	}

	if len(a.cfg.Kafka.Brokers) > 0 {
		publisher := events.NewPublisher(events.NewKafkaWriter(a.cfg.Kafka), a.logger)
		a.closers = append(a.closers, func(context.Context) error { return publisher.Close() })
		sinks = append(sinks, publisher)
	}

	return sinks, nil
}

func (a *Application) buildNotifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		return nil
	}
	return telegram.NewNotifier(tg.BotToken, tg.ChatID)
}

// Corpora lists configured corpus names.
func (a *Application) Corpora() []string {
	return a.source.Names()
}
