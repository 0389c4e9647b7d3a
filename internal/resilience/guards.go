package resilience

import (
	"context"

	"ConceptEnricher/internal/ports"
)

// Guard bundles the breaker and retry policy applied to one collaborator.
type Guard struct {
	Name    string
	Breaker *Breaker
	Retry   RetryConfig
}

func run[T any](ctx context.Context, g Guard, op string, fn func() (T, error)) (T, error) {
	return Execute(g.Breaker, func() (T, error) {
		return Retry(ctx, g.Name+"."+op, g.Retry, fn)
	})
}

// GuardedOracle applies a Guard to every Generate call.
type GuardedOracle struct {
	next  ports.Oracle
	guard Guard
}

var _ ports.Oracle = (*GuardedOracle)(nil)

func NewGuardedOracle(next ports.Oracle, guard Guard) *GuardedOracle {
	return &GuardedOracle{next: next, guard: guard}
}

func (o *GuardedOracle) Generate(ctx context.Context, prompt string) (string, error) {
	return run(ctx, o.guard, "generate", func() (string, error) {
		return o.next.Generate(ctx, prompt)
	})
}

// GuardedResolver applies a Guard to Search and Describe.
type GuardedResolver struct {
	next  ports.Resolver
	guard Guard
}

var _ ports.Resolver = (*GuardedResolver)(nil)

func NewGuardedResolver(next ports.Resolver, guard Guard) *GuardedResolver {
	return &GuardedResolver{next: next, guard: guard}
}

type searchResult struct {
	uri string
	ok  bool
}

func (r *GuardedResolver) Search(ctx context.Context, phrase string) (string, bool, error) {
	res, err := run(ctx, r.guard, "search", func() (searchResult, error) {
		uri, ok, err := r.next.Search(ctx, phrase)
		return searchResult{uri: uri, ok: ok}, err
	})
	return res.uri, res.ok, err
}

func (r *GuardedResolver) Describe(ctx context.Context, uri string) (string, error) {
	return run(ctx, r.guard, "describe", func() (string, error) {
		return r.next.Describe(ctx, uri)
	})
}
