package domain

import "strings"

// Article is an immutable corpus entry: an identifier, a title and ordered text segments.
// Sections mirror the source layout: each section is a list of paragraphs.
type Article struct {
	ID       string
	Title    string
	Sections [][]string
	URL      string
	Source   string
	// Malformed marks corpus entries that could not be decoded as an article.
	// They keep their position so range indices stay stable.
	Malformed bool
}

// Content joins every non-blank segment with single spaces.
func (a Article) Content() string {
	var parts []string
	for _, section := range a.Sections {
		for _, segment := range section {
			if s := strings.TrimSpace(segment); s != "" {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// SkipReason reports why an article cannot be processed, or "" when it can.
func (a Article) SkipReason() string {
	switch {
	case a.Malformed:
		return "malformed entry"
	case len(a.Sections) == 0:
		return "missing sections"
	case a.Content() == "":
		return "empty content"
	default:
		return ""
	}
}

// ProcessingState tracks an article through the enrichment pipeline.
type ProcessingState string

const (
	StatePending    ProcessingState = "pending"
	StateExtracted  ProcessingState = "extracted"
	StateClassified ProcessingState = "classified"
	StateResolved   ProcessingState = "resolved"
	StatePersisted  ProcessingState = "persisted"
	StateSkipped    ProcessingState = "skipped"
)
