// Package similarity finds, for every concept, its most and least similar peer by cosine similarity.
//
// The comparison is all-pairs, O(N²·D). Rows are independent and are spread over a bounded
// worker pool; each worker owns a contiguous block of rows and writes only to those slots.
// Memory stays O(N·D) for the input plus O(N) for norms and results, no N×N matrix is built.
// DefaultMaxConcepts caps N so a single run stays within minutes on commodity hardware
// (20k concepts × 384 dims is roughly 1.5e11 multiply-adds).
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"ConceptEnricher/internal/domain"
)

// DefaultMaxConcepts is the ceiling applied when Options.MaxConcepts is zero.
const DefaultMaxConcepts = 20000

var (
	ErrTooFewConcepts    = errors.New("similarity: at least two concepts are required")
	ErrTooManyConcepts   = errors.New("similarity: concept count exceeds configured ceiling")
	ErrLengthMismatch    = errors.New("similarity: identities and vectors differ in length")
	ErrDimensionMismatch = errors.New("similarity: vectors differ in dimensionality")
)

// Options tunes a run.
type Options struct {
	// Parallelism is the number of concurrent row workers; <=0 means runtime.NumCPU().
	Parallelism int
	// MaxConcepts bounds N; <=0 means DefaultMaxConcepts.
	MaxConcepts int
}

// ComputeExtremes returns one entry per identity, in input order, with its best and worst neighbour.
// Ties keep the first neighbour encountered in index order. Pairs involving a zero-norm vector score 0.
// Inputs are not modified. A cancelled context discards the whole result.
func ComputeExtremes(ctx context.Context, identities []string, vectors [][]float32, opts Options) ([]domain.SimilarityEntry, error) {
	n := len(identities)
	if n != len(vectors) {
		return nil, fmt.Errorf("%w: %d identities, %d vectors", ErrLengthMismatch, n, len(vectors))
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewConcepts, n)
	}
	limit := opts.MaxConcepts
	if limit <= 0 {
		limit = DefaultMaxConcepts
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyConcepts, n, limit)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: %q has %d, expected %d", ErrDimensionMismatch, identities[i], len(v), dim)
		}
	}

	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = norm(v)
	}

	workers := opts.Parallelism
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}

	entries := make([]domain.SimilarityEntry, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				entries[i] = row(i, identities, vectors, norms)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute extremes: %w", err)
	}
	return entries, nil
}

func row(i int, identities []string, vectors [][]float32, norms []float64) domain.SimilarityEntry {
	var (
		most, least   domain.Neighbor
		maxSet, lsSet bool
	)
	for j := range vectors {
		if j == i {
			continue
		}
		score := cosine(vectors[i], vectors[j], norms[i], norms[j])
		if !maxSet || score > most.Score {
			most = domain.Neighbor{Identity: identities[j], Score: score}
			maxSet = true
		}
		if !lsSet || score < least.Score {
			least = domain.Neighbor{Identity: identities[j], Score: score}
			lsSet = true
		}
	}
	return domain.SimilarityEntry{
		Identity:     identities[i],
		MostSimilar:  &most,
		LeastSimilar: &least,
	}
}

// Cosine is the cosine similarity of a and b, 0 when either has zero norm.
func Cosine(a, b []float32) float64 {
	return cosine(a, b, norm(a), norm(b))
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for k := range a {
		dot += float64(a[k]) * float64(b[k])
	}
	return dot / (na * nb)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
