package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleContentAndSkipReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		article Article
		content string
		reason  string
	}{
		{"joined", Article{Sections: [][]string{{"Alpha  ", "beta"}, {"", "gamma"}}}, "Alpha beta gamma", ""},
		{"no sections", Article{}, "", "missing sections"},
		{"blank segments", Article{Sections: [][]string{{" ", "\n"}}}, "", "empty content"},
		{"malformed", Article{Malformed: true, Sections: [][]string{{"x"}}}, "x", "malformed entry"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.content, tc.article.Content())
			assert.Equal(t, tc.reason, tc.article.SkipReason())
		})
	}
}

func TestConceptLinksPreserveOrder(t *testing.T) {
	t.Parallel()

	var links ConceptLinks
	links.Set("zeta", Link{URI: "z", Description: "last letter"})
	links.Set("alpha", Link{URI: "a", Description: "first letter"})
	links.Set("zeta", Link{URI: "z2", Description: "replaced"})

	raw, err := json.Marshal(ConceptEntry{ID: "1", Title: "t", Concepts: links})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","title":"t","concepts":{"zeta":{"uri":"z2","description":"replaced"},"alpha":{"uri":"a","description":"first letter"}}}`, string(raw))
	assert.Less(t, strings.Index(string(raw), "zeta"), strings.Index(string(raw), "alpha"))

	var decoded ConceptEntry
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"zeta", "alpha"}, decoded.Concepts.Phrases())
	link, ok := decoded.Concepts.Get("zeta")
	require.True(t, ok)
	assert.Equal(t, "z2", link.URI)
}

func TestConceptLinksRejectsNonObject(t *testing.T) {
	t.Parallel()

	var links ConceptLinks
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &links))
	require.NoError(t, json.Unmarshal([]byte(`null`), &links))
	assert.Equal(t, 0, links.Len())
}

func TestLinkHasDescription(t *testing.T) {
	t.Parallel()

	assert.True(t, Link{Description: "text"}.HasDescription())
	assert.False(t, Link{Description: "  "}.HasDescription())
	assert.False(t, Link{Description: DescriptionUnavailable}.HasDescription())
}

func TestLedgersContainsAndClone(t *testing.T) {
	t.Parallel()

	l := Ledgers{Keyphrases: []KeyphraseEntry{{ID: "a"}}}
	assert.True(t, l.Contains("a"))
	assert.False(t, l.Contains("b"))

	c := l.Clone()
	c.Keyphrases = append(c.Keyphrases, KeyphraseEntry{ID: "b"})
	assert.Len(t, l.Keyphrases, 1)
}

func TestLedgersPutReplacesByID(t *testing.T) {
	t.Parallel()

	var first, second ConceptLinks
	first.Set("insulin", Link{URI: "u1"})
	second.Set("kinase", Link{URI: "u2"})

	var l Ledgers
	l.PutConcepts(ConceptEntry{ID: "a1", Concepts: first})
	l.PutConcepts(ConceptEntry{ID: "a2", Concepts: first})
	l.PutConcepts(ConceptEntry{ID: "a1", Concepts: second})
	require.Len(t, l.Concepts, 2)
	assert.Equal(t, "a1", l.Concepts[0].ID)
	assert.Equal(t, []string{"kinase"}, l.Concepts[0].Concepts.Phrases())

	l.PutConcepts(ConceptEntry{ID: "a1"})
	require.Len(t, l.Concepts, 1)
	assert.Equal(t, "a2", l.Concepts[0].ID)
	l.PutConcepts(ConceptEntry{ID: "a3"})
	assert.Len(t, l.Concepts, 1)

	l.PutKeyphrases(KeyphraseEntry{ID: "a1", Keywords: []string{"x"}})
	l.PutKeyphrases(KeyphraseEntry{ID: "a1", Keywords: []string{"y"}})
	require.Len(t, l.Keyphrases, 1)
	assert.Equal(t, []string{"y"}, l.Keyphrases[0].Keywords)
}
