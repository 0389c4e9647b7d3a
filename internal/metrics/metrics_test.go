package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndExpose(t *testing.T) {
	t.Parallel()

	m := New(nil)
	m.ObserveArticle("processed")
	m.ObserveArticle("processed")
	m.ObserveClassification("relevant")
	m.ObserveResolution("not_found")
	m.ObserveCache("resolver", true)
	m.SetBreakerState("classifier", 1)
	m.ObserveSimilarity(42, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ArticlesTotal.WithLabelValues("processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("classifier")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.SimilarityConcepts))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "enrichment_articles_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveArticle("processed")
		m.ObserveClassification("error")
		m.ObserveResolution("resolved")
		m.ObserveSinkFailure("neo4j")
		m.ObserveCache("classifier", false)
		m.SetBreakerState("resolver", 0)
		m.ObserveSimilarity(3, time.Millisecond)
	})
}
