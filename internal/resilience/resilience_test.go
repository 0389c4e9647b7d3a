package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/logging"
)

var errBoom = errors.New("boom")

func fastRetry(retries int) RetryConfig {
	return RetryConfig{Retries: retries, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Logger: logging.Discard()}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := Retry(context.Background(), "op", fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errBoom
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetryIsCapped(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Retry(context.Background(), "op", fastRetry(50), func() (int, error) {
		calls++
		return 0, errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, MaxRetries+1, calls)
}

func TestRetryZeroMeansSingleAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Retry(context.Background(), "op", fastRetry(0), func() (int, error) {
		calls++
		return 0, errBoom
	})
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Retry(ctx, "op", fastRetry(3), func() (int, error) {
		calls++
		return 0, errBoom
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBreakerOpensAndFailsFast(t *testing.T) {
	t.Parallel()

	b := NewBreaker("oracle", config.BreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		ReadyToTripRatio: 0.5,
	}, logging.Discard(), nil)
	require.NotNil(t, b)

	for i := 0; i < 3; i++ {
		_, err := Execute(b, func() (string, error) { return "", errBoom })
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, "open", b.State())

	called := false
	_, err := Execute(b, func() (string, error) {
		called = true
		return "x", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.False(t, called)
}

func TestDisabledBreakerPassesThrough(t *testing.T) {
	t.Parallel()

	b := NewBreaker("off", config.BreakerConfig{}, nil, nil)
	assert.Nil(t, b)
	assert.Equal(t, "disabled", b.State())
	got, err := Execute(b, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

type flakyResolver struct {
	searchFails int
	searches    int
}

func (f *flakyResolver) Search(_ context.Context, phrase string) (string, bool, error) {
	f.searches++
	if f.searches <= f.searchFails {
		return "", false, errBoom
	}
	return "uri:" + phrase, true, nil
}

func (f *flakyResolver) Describe(_ context.Context, uri string) (string, error) {
	return "about " + uri, nil
}

func TestGuardedResolverRetries(t *testing.T) {
	t.Parallel()

	inner := &flakyResolver{searchFails: 1}
	r := NewGuardedResolver(inner, Guard{Name: "dbpedia", Retry: fastRetry(2)})

	uri, ok, err := r.Search(context.Background(), "insulin")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "uri:insulin", uri)
	assert.Equal(t, 2, inner.searches)

	desc, err := r.Describe(context.Background(), uri)
	require.NoError(t, err)
	assert.Equal(t, "about uri:insulin", desc)
}

type stubOracle struct{ reply string }

func (s stubOracle) Generate(context.Context, string) (string, error) { return s.reply, nil }

func TestGuardedOracle(t *testing.T) {
	t.Parallel()

	o := NewGuardedOracle(stubOracle{reply: "yes"}, Guard{Name: "openai"})
	got, err := o.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "yes", got)
}
