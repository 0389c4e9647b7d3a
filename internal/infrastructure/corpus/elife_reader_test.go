package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/config"
	"ConceptEnricher/internal/corpus"
	"ConceptEnricher/internal/logging"
)

func writeCorpus(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestElifeReaderRead(t *testing.T) {
	t.Parallel()

	path := writeCorpus(t, `[
		{"id": "elife-1", "title": "Insulin", "sections": [["Insulin regulates glucose.", " "], ["Second section."]]},
		"not an article",
		{"id": 4242, "sections": [["Numeric id."], "bad section", [1, "kept"]]},
		{"title": "No id", "sections": []},
		{"id": "elife-5", "title": "No sections"}
	]`)

	articles, err := NewElifeReader(logging.Discard()).Read(context.Background(), config.CorpusConfig{Name: "elife-train", Path: path})
	require.NoError(t, err)
	require.Len(t, articles, 5)

	assert.Equal(t, "elife-1", articles[0].ID)
	assert.Equal(t, "Insulin regulates glucose. Second section.", articles[0].Content())
	assert.Equal(t, "elife-train", articles[0].Source)
	assert.Empty(t, articles[0].SkipReason())

	assert.True(t, articles[1].Malformed)
	assert.Equal(t, "article-1", articles[1].ID)
	assert.Equal(t, "malformed entry", articles[1].SkipReason())

	assert.Equal(t, "4242", articles[2].ID)
	assert.Equal(t, "Untitled", articles[2].Title)
	assert.Equal(t, [][]string{{"Numeric id."}, {"kept"}}, articles[2].Sections)

	assert.Equal(t, "article-3", articles[3].ID)
	assert.Equal(t, "missing sections", articles[3].SkipReason())

	assert.Equal(t, "missing sections", articles[4].SkipReason())
}

func TestElifeReaderErrors(t *testing.T) {
	t.Parallel()

	r := NewElifeReader(nil)
	ctx := context.Background()

	_, err := r.Read(ctx, config.CorpusConfig{Path: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = r.Read(ctx, config.CorpusConfig{Path: writeCorpus(t, `{"id": "x"}`)})
	assert.ErrorContains(t, err, "not a list")

	_, err = r.Read(ctx, config.CorpusConfig{Path: writeCorpus(t, `[{"id": "x"}, {`)})
	assert.Error(t, err)
}

func TestSourceLoad(t *testing.T) {
	t.Parallel()

	path := writeCorpus(t, `[{"id": "a", "sections": [["text"]]}]`)
	reg := corpus.NewRegistry(NewElifeReader(nil), NewArxivReader(nil))
	src := NewSource(reg, []config.CorpusConfig{
		{Name: "train", Reader: "elife", Path: path},
		{Name: "gone", Reader: "elife", Path: filepath.Join(t.TempDir(), "nope.json")},
		{Name: "odd", Reader: "pubmed", Path: path},
	}, logging.Discard())
	ctx := context.Background()

	articles, err := src.Load(ctx, "train")
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "train", articles[0].Source)

	_, err = src.Load(ctx, "validation")
	assert.ErrorIs(t, err, ErrCorpusNotFound)

	_, err = src.Load(ctx, "gone")
	assert.ErrorIs(t, err, ErrCorpusNotFound)

	_, err = src.Load(ctx, "odd")
	assert.ErrorIs(t, err, corpus.ErrUnknownReader)

	assert.Equal(t, []string{"train", "gone", "odd"}, src.Names())
}
