package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ConceptEnricher/internal/domain"
)

func sampleReport() domain.SimilarityReport {
	return domain.SimilarityReport{
		Partition: "val",
		Entries: []domain.SimilarityEntry{
			{Identity: "1:a", MostSimilar: &domain.Neighbor{Identity: "2:b", Score: 0.9}, LeastSimilar: &domain.Neighbor{Identity: "3:c", Score: 0.1}},
			{Identity: "2:b"},
		},
	}
}

func TestJSONReportWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, NewJSONReportWriter(path).WriteReport(context.Background(), sampleReport()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "1:a", got[0]["identity"])
	assert.Nil(t, got[1]["most_similar"])
	assert.Contains(t, got[1], "least_similar")
}

func TestParquetReportWriter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.parquet")
	require.NoError(t, NewParquetReportWriter(path).WriteReport(context.Background(), sampleReport()))

	rows, err := parquet.ReadFile[ParquetSimilarityRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "val", rows[0].Partition)
	require.NotNil(t, rows[0].MostSimilar)
	assert.Equal(t, "2:b", *rows[0].MostSimilar)
	assert.InDelta(t, 0.1, *rows[0].LeastScore, 1e-12)
	assert.Nil(t, rows[1].MostSimilar)
}
