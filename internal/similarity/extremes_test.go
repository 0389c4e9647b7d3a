package similarity

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioVectors() ([]string, [][]float32) {
	by := math.Sqrt(1 - 0.81)
	cy := 0.41 / by
	cz := math.Sqrt(1 - 0.01 - cy*cy)
	return []string{"A", "B", "C"}, [][]float32{
		{1, 0, 0},
		{0.9, float32(by), 0},
		{0.1, float32(cy), float32(cz)},
	}
}

func TestComputeExtremesScenario(t *testing.T) {
	t.Parallel()

	ids, vecs := scenarioVectors()
	entries, err := ComputeExtremes(context.Background(), ids, vecs, Options{Parallelism: 2})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	want := []struct {
		id, most, least string
		mostScore       float64
		leastScore      float64
	}{
		{"A", "B", "C", 0.9, 0.1},
		{"B", "A", "C", 0.9, 0.5},
		{"C", "B", "A", 0.5, 0.1},
	}
	for i, w := range want {
		got := entries[i]
		assert.Equal(t, w.id, got.Identity)
		require.NotNil(t, got.MostSimilar)
		require.NotNil(t, got.LeastSimilar)
		assert.Equal(t, w.most, got.MostSimilar.Identity, "most similar of %s", w.id)
		assert.InDelta(t, w.mostScore, got.MostSimilar.Score, 1e-5)
		assert.Equal(t, w.least, got.LeastSimilar.Identity, "least similar of %s", w.id)
		assert.InDelta(t, w.leastScore, got.LeastSimilar.Score, 1e-5)
	}
}

func TestComputeExtremesPreconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("single concept", func(t *testing.T) {
		_, err := ComputeExtremes(ctx, []string{"A"}, [][]float32{{1, 2}}, Options{})
		assert.ErrorIs(t, err, ErrTooFewConcepts)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ComputeExtremes(ctx, nil, nil, Options{})
		assert.ErrorIs(t, err, ErrTooFewConcepts)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := ComputeExtremes(ctx, []string{"A", "B"}, [][]float32{{1}}, Options{})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := ComputeExtremes(ctx, []string{"A", "B"}, [][]float32{{1, 0}, {1, 0, 0}}, Options{})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("ceiling", func(t *testing.T) {
		ids := []string{"A", "B", "C"}
		vecs := [][]float32{{1}, {2}, {3}}
		_, err := ComputeExtremes(ctx, ids, vecs, Options{MaxConcepts: 2})
		assert.ErrorIs(t, err, ErrTooManyConcepts)
	})
}

func TestComputeExtremesTieKeepsFirst(t *testing.T) {
	t.Parallel()

	ids := []string{"A", "B", "C", "D"}
	vecs := [][]float32{{1, 0}, {1, 0}, {1, 0}, {2, 0}}

	entries, err := ComputeExtremes(context.Background(), ids, vecs, Options{Parallelism: 1})
	require.NoError(t, err)

	assert.Equal(t, "B", entries[0].MostSimilar.Identity)
	assert.Equal(t, "B", entries[0].LeastSimilar.Identity)
	assert.Equal(t, "A", entries[1].MostSimilar.Identity)
	assert.Equal(t, "A", entries[3].MostSimilar.Identity)
}

func TestComputeExtremesZeroNorm(t *testing.T) {
	t.Parallel()

	ids := []string{"zero", "pos", "neg"}
	vecs := [][]float32{{0, 0}, {1, 0}, {-1, 0}}

	entries, err := ComputeExtremes(context.Background(), ids, vecs, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0.0, entries[0].MostSimilar.Score)
	assert.Equal(t, "pos", entries[0].MostSimilar.Identity)
	assert.Equal(t, "zero", entries[1].MostSimilar.Identity)
	assert.Equal(t, 0.0, entries[1].MostSimilar.Score)
	assert.Equal(t, "neg", entries[1].LeastSimilar.Identity)
	assert.InDelta(t, -1.0, entries[1].LeastSimilar.Score, 1e-9)
	for _, e := range entries {
		assert.False(t, math.IsNaN(e.MostSimilar.Score))
		assert.False(t, math.IsNaN(e.LeastSimilar.Score))
	}
}

func TestComputeExtremesProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	const n, dim = 60, 16
	ids := make([]string, n)
	vecs := make([][]float32, n)
	for i := range vecs {
		ids[i] = "c" + strconv.Itoa(i)
		vecs[i] = make([]float32, dim)
		for k := range vecs[i] {
			vecs[i][k] = float32(rng.NormFloat64())
		}
	}

	serial, err := ComputeExtremes(context.Background(), ids, vecs, Options{Parallelism: 1})
	require.NoError(t, err)
	parallel, err := ComputeExtremes(context.Background(), ids, vecs, Options{Parallelism: 7})
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)

	for i, e := range serial {
		assert.Equal(t, ids[i], e.Identity)
		assert.NotEqual(t, e.Identity, e.MostSimilar.Identity)
		assert.NotEqual(t, e.Identity, e.LeastSimilar.Identity)
		for j := range vecs {
			if j == i {
				continue
			}
			score := Cosine(vecs[i], vecs[j])
			assert.GreaterOrEqual(t, e.MostSimilar.Score, score)
			assert.LessOrEqual(t, e.LeastSimilar.Score, score)
		}
	}
}

func TestComputeExtremesDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	ids, vecs := scenarioVectors()
	before := make([][]float32, len(vecs))
	for i, v := range vecs {
		before[i] = append([]float32(nil), v...)
	}

	_, err := ComputeExtremes(context.Background(), ids, vecs, Options{})
	require.NoError(t, err)
	assert.Equal(t, before, vecs)
	assert.Equal(t, []string{"A", "B", "C"}, ids)
}

func TestComputeExtremesCancelled(t *testing.T) {
	t.Parallel()

	ids, vecs := scenarioVectors()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, err := ComputeExtremes(ctx, ids, vecs, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, entries)
}
