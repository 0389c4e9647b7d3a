package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"ConceptEnricher/internal/domain"
	"ConceptEnricher/internal/ports"
)

// JSONReportWriter stores the report as an ordered JSON list of entries.
type JSONReportWriter struct {
	path string
}

var _ ports.ReportWriter = (*JSONReportWriter)(nil)

func NewJSONReportWriter(path string) *JSONReportWriter {
	return &JSONReportWriter{path: path}
}

func (w *JSONReportWriter) WriteReport(_ context.Context, report domain.SimilarityReport) error {
	entries := report.Entries
	if entries == nil {
		entries = []domain.SimilarityEntry{}
	}
	return WriteJSON(w.path, entries)
}

// ParquetSimilarityRow is the flat parquet schema of one report entry.
type ParquetSimilarityRow struct {
	Partition    string   `parquet:"partition"`
	Identity     string   `parquet:"identity"`
	MostSimilar  *string  `parquet:"most_similar,optional"`
	MostScore    *float64 `parquet:"most_score,optional"`
	LeastSimilar *string  `parquet:"least_similar,optional"`
	LeastScore   *float64 `parquet:"least_score,optional"`
}

// ParquetReportWriter exports the report for columnar analysis.
type ParquetReportWriter struct {
	path string
}

var _ ports.ReportWriter = (*ParquetReportWriter)(nil)

func NewParquetReportWriter(path string) *ParquetReportWriter {
	return &ParquetReportWriter{path: path}
}

func (w *ParquetReportWriter) WriteReport(_ context.Context, report domain.SimilarityReport) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", w.path, err)
	}
	if err := parquet.WriteFile(w.path, toParquetRows(report)); err != nil {
		return fmt.Errorf("write parquet %s: %w", w.path, err)
	}
	return nil
}

func toParquetRows(report domain.SimilarityReport) []ParquetSimilarityRow {
	rows := make([]ParquetSimilarityRow, 0, len(report.Entries))
	for _, e := range report.Entries {
		row := ParquetSimilarityRow{Partition: report.Partition, Identity: e.Identity}
		if e.MostSimilar != nil {
			id, score := e.MostSimilar.Identity, e.MostSimilar.Score
			row.MostSimilar, row.MostScore = &id, &score
		}
		if e.LeastSimilar != nil {
			id, score := e.LeastSimilar.Identity, e.LeastSimilar.Score
			row.LeastSimilar, row.LeastScore = &id, &score
		}
		rows = append(rows, row)
	}
	return rows
}
