// Package corpus holds the readers that load article collections and the
// source that picks a configured collection by name.
package corpus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/corpus"
	"ConceptEnricher/internal/domain"
)

const untitled = "Untitled"

// ElifeReader loads an eLife-style JSON array of {id, title, sections}.
type ElifeReader struct {
	logger *slog.Logger
}

var _ corpus.Reader = (*ElifeReader)(nil)

func NewElifeReader(logger *slog.Logger) *ElifeReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &ElifeReader{logger: logger.With("component", "elife-reader")}
}

func (r *ElifeReader) Name() string {
	return "elife"
}

type elifeEntry struct {
	ID       json.RawMessage `json:"id"`
	Title    json.RawMessage `json:"title"`
	Sections json.RawMessage `json:"sections"`
}

// Read keeps every array element, including undecodable ones, so corpus indices stay stable.
func (r *ElifeReader) Read(ctx context.Context, src config.CorpusConfig) ([]domain.Article, error) {
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", src.Path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", src.Path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("corpus %s: top-level value is not a list of articles", src.Path)
	}

	var articles []domain.Article
	malformed := 0
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("corpus %s entry %d: %w", src.Path, len(articles), err)
		}
		article := parseElifeEntry(raw, len(articles))
		article.Source = src.Name
		if article.Malformed {
			malformed++
		}
		articles = append(articles, article)
	}

	r.logger.Debug("corpus loaded", "corpus", src.Name, "articles", len(articles), "malformed", malformed)
	return articles, nil
}

func parseElifeEntry(raw json.RawMessage, index int) domain.Article {
	fallbackID := fmt.Sprintf("article-%d", index)
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Article{ID: fallbackID, Title: untitled, Malformed: true}
	}

	var entry elifeEntry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return domain.Article{ID: fallbackID, Title: untitled, Malformed: true}
	}

	id := scalarText(entry.ID)
	if id == "" {
		id = fallbackID
	}
	title := scalarText(entry.Title)
	if title == "" {
		title = untitled
	}
	return domain.Article{
		ID:       id,
		Title:    title,
		Sections: parseSections(entry.Sections),
	}
}

// scalarText renders a JSON string or number as text; anything else is empty.
func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// parseSections keeps list-shaped sections and their string segments; other shapes are dropped.
func parseSections(raw json.RawMessage) [][]string {
	var sections []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &sections) != nil {
		return nil
	}
	out := make([][]string, 0, len(sections))
	for _, sec := range sections {
		var segments []json.RawMessage
		if json.Unmarshal(sec, &segments) != nil {
			continue
		}
		texts := make([]string, 0, len(segments))
		for _, seg := range segments {
			var s string
			if json.Unmarshal(seg, &s) == nil {
				texts = append(texts, s)
			}
		}
		out = append(out, texts)
	}
	return out
}
