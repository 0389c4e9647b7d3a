package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

var errTransport = errors.New("transport failure")

// mockExtractor returns canned phrases keyed by the article content.
type mockExtractor struct {
	byContent map[string][]string
	err       error
	calls     int
}

func (m *mockExtractor) Extract(_ context.Context, text string, _ ports.ExtractOptions) ([]domain.CandidatePhrase, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.CandidatePhrase
	for i, p := range m.byContent[text] {
		out = append(out, domain.CandidatePhrase{Text: p, Score: float64(i) / 10})
	}
	return out, nil
}

// mockClassifier answers with canned raw oracle replies and applies the yes-token heuristic.
type mockClassifier struct {
	replies map[string]string
	failing map[string]bool
	calls   int
}

func (m *mockClassifier) Classify(_ context.Context, phrase string) (domain.RelevanceJudgment, error) {
	m.calls++
	if m.failing[phrase] {
		return domain.RelevanceJudgment{Phrase: phrase}, errTransport
	}
	raw := m.replies[phrase]
	return domain.RelevanceJudgment{
		Phrase:   phrase,
		Raw:      raw,
		Relevant: strings.Contains(strings.ToLower(raw), "yes"),
	}, nil
}

type mockResolver struct {
	uris         map[string]string
	descriptions map[string]string
	searchErr    map[string]bool
	describeErr  map[string]bool
	searches     int
	describes    int
}

func (m *mockResolver) Search(_ context.Context, phrase string) (string, bool, error) {
	m.searches++
	if m.searchErr[phrase] {
		return "", false, errTransport
	}
	uri, ok := m.uris[phrase]
	return uri, ok, nil
}

func (m *mockResolver) Describe(_ context.Context, uri string) (string, error) {
	m.describes++
	if m.describeErr[uri] {
		return "", errTransport
	}
	return m.descriptions[uri], nil
}

// memoryStore keeps snapshots in memory and counts saves.
type memoryStore struct {
	mu         sync.Mutex
	ledgers    domain.Ledgers
	checkpoint domain.Checkpoint
	saves      int
	failAfter  int
}

func (s *memoryStore) Load(context.Context) (domain.Ledgers, domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgers.Clone(), s.checkpoint, nil
}

func (s *memoryStore) Save(_ context.Context, l domain.Ledgers, c domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.saves >= s.failAfter {
		return errors.New("disk full")
	}
	s.saves++
	s.ledgers = l.Clone()
	s.checkpoint = c
	return nil
}

type recordingSink struct {
	name    string
	err     error
	entries []domain.ConceptEntry
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) PublishConcepts(_ context.Context, entry domain.ConceptEntry) error {
	s.entries = append(s.entries, entry)
	return s.err
}

type recordingNotifier struct {
	digests []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.digests = append(n.digests, digest)
	return nil
}

type mockEmbedder struct {
	vectors map[string][]float32
	calls   [][]string
	err     error
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectors[t]
	}
	return out, nil
}

type recordingReportWriter struct {
	reports []domain.SimilarityReport
}

func (w *recordingReportWriter) WriteReport(_ context.Context, r domain.SimilarityReport) error {
	w.reports = append(w.reports, r)
	return nil
}

func article(id, title string, paragraphs ...string) domain.Article {
	sections := [][]string{}
	if len(paragraphs) > 0 {
		sections = append(sections, paragraphs)
	}
	return domain.Article{ID: id, Title: title, Sections: sections}
}
