package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/corpus"
	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// ErrCorpusNotFound covers both an unconfigured corpus name and a missing corpus file.
var ErrCorpusNotFound = errors.New("corpus not found")

// Source implements ports.CorpusSource via registered readers.
type Source struct {
	registry *corpus.Registry
	corpora  []config.CorpusConfig
	logger   *slog.Logger
}

var _ ports.CorpusSource = (*Source)(nil)

// NewSource wires the reader registry with config-defined corpora.
func NewSource(reg *corpus.Registry, corpora []config.CorpusConfig, log *slog.Logger) *Source {
	return &Source{
		registry: reg,
		corpora:  corpora,
		logger:   log,
	}
}

// Load reads the corpus configured under name.
func (s *Source) Load(ctx context.Context, name string) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("corpus registry is not configured")
	}

	var src *config.CorpusConfig
	for i := range s.corpora {
		if s.corpora[i].Name == name {
			src = &s.corpora[i]
			break
		}
	}
	if src == nil {
		return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, name)
	}

	s.debug("load corpus", "corpus", src.Name, "reader", src.Reader, "path", src.Path)
	reader, err := s.registry.Resolve(src.Reader)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", src.Name, err)
	}

	articles, err := reader.Read(ctx, *src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorpusNotFound, src.Name, err)
	}
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", src.Name, err)
	}

	for i := range articles {
		if articles[i].Source == "" {
			articles[i].Source = src.Name
		}
	}
	s.debug("corpus ready", "corpus", src.Name, "count", len(articles))
	return articles, nil
}

// Names lists the configured corpora.
func (s *Source) Names() []string {
	names := make([]string, 0, len(s.corpora))
	for _, c := range s.corpora {
		names = append(names, c.Name)
	}
	return names
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
