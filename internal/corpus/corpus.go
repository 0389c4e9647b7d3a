package corpus

import (
	"context"
	"errors"
	"fmt"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/domain"
)

// ErrUnknownReader is returned when a corpus names a reader nobody registered.
var ErrUnknownReader = errors.New("unknown corpus reader")

// Reader turns one configured corpus into an ordered article list (elife JSON, arXiv listing, etc.).
// Order matters: enrichment ranges index into it.
type Reader interface {
	Name() string
	Read(ctx context.Context, src config.CorpusConfig) ([]domain.Article, error)
}

// Registry keeps a mapping from reader names to their implementations.
type Registry struct {
	readers map[string]Reader
}

// NewRegistry builds a registry holding the given readers.
func NewRegistry(readers ...Reader) *Registry {
	r := &Registry{readers: map[string]Reader{}}
	for _, reader := range readers {
		r.Register(reader)
	}
	return r
}

// Register adds or replaces a reader implementation.
func (r *Registry) Register(reader Reader) {
	if r.readers == nil {
		r.readers = map[string]Reader{}
	}
	r.readers[reader.Name()] = reader
}

// Resolve returns a reader by name.
func (r *Registry) Resolve(name string) (Reader, error) {
	if reader, ok := r.readers[name]; ok {
		return reader, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownReader, name)
}
