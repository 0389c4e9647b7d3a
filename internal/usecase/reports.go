package usecase

import (
	"fmt"
	"strings"

	"ConceptEnricher/internal/domain"
)

// MissingKeywords compares reference keywords with the extracted keywords of each processed article.
// Entries follow the reference order; Found is false when the article has no keyphrase entry.
func MissingKeywords(reference, processed []domain.KeyphraseEntry) []domain.MissingKeywords {
	byID := make(map[string]map[string]struct{}, len(processed))
	for _, p := range processed {
		if _, ok := byID[p.ID]; ok {
			continue
		}
		set := make(map[string]struct{}, len(p.Keywords))
		for _, kw := range p.Keywords {
			set[kw] = struct{}{}
		}
		byID[p.ID] = set
	}
	return compareKeywords(reference, func(id string) (func(string) bool, bool) {
		set, ok := byID[id]
		return func(kw string) bool { _, has := set[kw]; return has }, ok
	})
}

// MissingConcepts compares reference keywords with the resolved concepts of each article.
// Found is false when the article has no concept entry.
func MissingConcepts(reference []domain.KeyphraseEntry, concepts []domain.ConceptEntry) []domain.MissingKeywords {
	byID := make(map[string]domain.ConceptEntry, len(concepts))
	for _, c := range concepts {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}
	return compareKeywords(reference, func(id string) (func(string) bool, bool) {
		entry, ok := byID[id]
		return func(kw string) bool { _, linked := entry.Concepts.Get(kw); return linked }, ok
	})
}

func compareKeywords(reference []domain.KeyphraseEntry, lookup func(id string) (func(string) bool, bool)) []domain.MissingKeywords {
	out := make([]domain.MissingKeywords, 0, len(reference))
	for _, ref := range reference {
		has, ok := lookup(ref.ID)
		report := domain.MissingKeywords{ID: ref.ID, Found: ok, Missing: []string{}}
		if ok {
			seen := map[string]struct{}{}
			for _, kw := range ref.Keywords {
				if _, dup := seen[kw]; dup {
					continue
				}
				seen[kw] = struct{}{}
				if !has(kw) {
					report.Missing = append(report.Missing, kw)
				}
			}
		}
		out = append(out, report)
	}
	return out
}

// FormatMissingKeywords renders the comparison as a plain-text report.
func FormatMissingKeywords(reports []domain.MissingKeywords) string {
	var b strings.Builder
	for _, r := range reports {
		if !r.Found {
			fmt.Fprintf(&b, "Article ID: %s not found in ledger.\n\n", r.ID)
			continue
		}
		fmt.Fprintf(&b, "Article ID: %s\nMissing Keywords: %s\nNumber of Missing Keywords: %d\n\n",
			r.ID, strings.Join(r.Missing, ", "), len(r.Missing))
	}
	return b.String()
}

// SelectEntries returns the concept entries whose ids are listed, in the order of ids.
// Unknown ids are reported back so callers can log them.
func SelectEntries(ids []string, concepts []domain.ConceptEntry) ([]domain.ConceptEntry, []string) {
	byID := make(map[string]domain.ConceptEntry, len(concepts))
	for _, c := range concepts {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}

	var (
		selected []domain.ConceptEntry
		missing  []string
	)
	for _, id := range ids {
		if entry, ok := byID[id]; ok {
			selected = append(selected, entry)
			continue
		}
		missing = append(missing, id)
	}
	return selected, missing
}
