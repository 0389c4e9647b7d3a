package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ConceptEnricher/internal/domain"
)

func TestMissingKeywords(t *testing.T) {
	t.Parallel()

	reference := []domain.KeyphraseEntry{
		{ID: "1", Keywords: []string{"insulin", "glucose", "insulin", "cells"}},
		{ID: "9", Keywords: []string{"anything"}},
	}
	processed := []domain.KeyphraseEntry{
		{ID: "1", Keywords: []string{"insulin", "glucose uptake", "cells"}},
		{ID: "1", Keywords: []string{"glucose"}},
	}

	got := MissingKeywords(reference, processed)
	assert.Equal(t, []domain.MissingKeywords{
		{ID: "1", Found: true, Missing: []string{"glucose"}},
		{ID: "9", Found: false, Missing: []string{}},
	}, got)

	text := FormatMissingKeywords(got)
	assert.Contains(t, text, "Missing Keywords: glucose\n")
	assert.Contains(t, text, "Number of Missing Keywords: 1")
	assert.Contains(t, text, "Article ID: 9 not found")
}

func TestMissingConcepts(t *testing.T) {
	t.Parallel()

	reference := []domain.KeyphraseEntry{
		{ID: "1", Keywords: []string{"insulin", "glucose", "insulin", "cells"}},
		{ID: "2", Keywords: []string{"kinase"}},
	}
	concepts := []domain.ConceptEntry{conceptEntry("1", "insulin", "u1", "hormone")}

	got := MissingConcepts(reference, concepts)
	assert.Equal(t, []domain.MissingKeywords{
		{ID: "1", Found: true, Missing: []string{"glucose", "cells"}},
		{ID: "2", Found: false, Missing: []string{}},
	}, got)
	assert.Contains(t, FormatMissingKeywords(got), "Missing Keywords: glucose, cells")
}

func TestSelectEntries(t *testing.T) {
	t.Parallel()

	concepts := []domain.ConceptEntry{
		conceptEntry("1", "a", "u", "d"),
		conceptEntry("2", "b", "u", "d"),
		conceptEntry("3", "c", "u", "d"),
	}

	selected, missing := SelectEntries([]string{"3", "7", "1"}, concepts)
	assert.Equal(t, []string{"3", "1"}, []string{selected[0].ID, selected[1].ID})
	assert.Len(t, selected, 2)
	assert.Equal(t, []string{"7"}, missing)
}
