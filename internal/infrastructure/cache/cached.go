package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/metrics"
	"ConceptEnricher/internal/ports"
	"ConceptEnricher/internal/textnorm"
)

const keyPrefix = "concept-enricher:"

// memo is the shared read-through logic. Failed computations are never stored.
type memo struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func newMemo(backend Backend, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger, component string) *memo {
	if logger == nil {
		logger = slog.Default()
	}
	return &memo{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With("component", component),
	}
}

// phraseKey folds case and Unicode form; URIs are case-sensitive and use rawKey.
func phraseKey(namespace, phrase string) string {
	return rawKey(namespace, textnorm.Fold(phrase))
}

func rawKey(namespace, input string) string {
	hash := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%s%s:%x", keyPrefix, namespace, hash[:16])
}

func (c *memo) get(ctx context.Context, namespace, key string, v any) bool {
	data, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		ok = false
	}
	if ok {
		if err := json.Unmarshal([]byte(data), v); err != nil {
			c.logger.Error("cache unmarshal failed", "key", key, "error", err)
			ok = false
		}
	}
	c.metrics.ObserveCache(namespace, ok)
	return ok
}

func (c *memo) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// getOrCompute stores a computed value only when keep is nil or approves it.
func getOrCompute[T any](ctx context.Context, c *memo, namespace, key string, compute func() (T, error), keep func(T) bool) (T, error) {
	var cached T
	if c.get(ctx, namespace, key, &cached) {
		return cached, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		var again T
		if c.get(ctx, namespace, key, &again) {
			return again, nil
		}
		result, err := compute()
		if err != nil {
			return result, err
		}
		if keep == nil || keep(result) {
			c.set(ctx, key, result)
		}
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return val.(T), nil
}

// CachedClassifier memoises relevance verdicts per normalised phrase.
type CachedClassifier struct {
	inner ports.Classifier
	memo  *memo
}

var _ ports.Classifier = (*CachedClassifier)(nil)

func NewCachedClassifier(inner ports.Classifier, backend Backend, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *CachedClassifier {
	return &CachedClassifier{inner: inner, memo: newMemo(backend, ttl, m, logger, "classifier-cache")}
}

func (c *CachedClassifier) Classify(ctx context.Context, phrase string) (domain.RelevanceJudgment, error) {
	judgment, err := getOrCompute(ctx, c.memo, "classify", phraseKey("classify", phrase), func() (domain.RelevanceJudgment, error) {
		return c.inner.Classify(ctx, phrase)
	}, answered)
	if err != nil {
		return domain.RelevanceJudgment{Phrase: phrase}, err
	}
	judgment.Phrase = phrase
	return judgment, nil
}

// answered reports whether the judgment came from a non-blank reply.
func answered(j domain.RelevanceJudgment) bool {
	return strings.TrimSpace(j.Raw) != ""
}

type searchResult struct {
	URI   string `json:"uri"`
	Found bool   `json:"found"`
}

// CachedResolver memoises lookups and abstracts. A miss is a valid answer and is cached too.
type CachedResolver struct {
	inner ports.Resolver
	memo  *memo
}

var _ ports.Resolver = (*CachedResolver)(nil)

func NewCachedResolver(inner ports.Resolver, backend Backend, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{inner: inner, memo: newMemo(backend, ttl, m, logger, "resolver-cache")}
}

func (c *CachedResolver) Search(ctx context.Context, phrase string) (string, bool, error) {
	res, err := getOrCompute(ctx, c.memo, "search", phraseKey("search", phrase), func() (searchResult, error) {
		uri, ok, err := c.inner.Search(ctx, phrase)
		return searchResult{URI: uri, Found: ok}, err
	}, nil)
	if err != nil {
		return "", false, err
	}
	return res.URI, res.Found, nil
}

func (c *CachedResolver) Describe(ctx context.Context, uri string) (string, error) {
	return getOrCompute(ctx, c.memo, "describe", rawKey("describe", uri), func() (string, error) {
		return c.inner.Describe(ctx, uri)
	}, nil)
}
