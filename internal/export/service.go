package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
)

const (
	DocumentsSheet = "Documents"
	PagesSheet     = "Pages"
	BatchSheet     = "Batch"

	// longest text excerpt written to a cell
	excerptLen = 140
)

var documentHeaders = []string{
	"Document ID",
	"Source Path",
	"Method",
	"Scanned",
	"Pages",
	"Failed Pages",
	"Characters",
	"Words",
	"Avg Confidence",
	"Engine",
	"Language",
	"Preset",
	"Duration (ms)",
	"Created At",
}

var pageHeaders = []string{
	"Document ID",
	"Page",
	"Characters",
	"Words",
	"Confidence",
	"Engine",
	"Error",
	"Text",
}

// Service produces XLSX workbooks from extraction results.
type Service struct {
	results repository.ResultRepository
	logger  *slog.Logger
}

func NewService(results repository.ResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{results: results, logger: logger}
}

// ExportRecentXLSX loads the most recent stored documents (up to limit) and exports them.
func (s *Service) ExportRecentXLSX(ctx context.Context, limit int) ([]byte, error) {
	if s.results == nil {
		return nil, common.NewValidationError("export requires a result repository")
	}
	rows, err := s.results.ListDocuments(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	docs := make([]*pipeline.DocumentResult, 0, len(rows))
	for _, r := range rows {
		d, err := s.results.GetDocument(ctx, r.ID)
		if err != nil {
			s.logger.Warn("export.skip_document", "document_id", r.ID, "error", err)
			continue
		}
		docs = append(docs, d)
	}
	return s.DocumentsXLSX(docs)
}

// DocumentsXLSX writes one summary row per document and one row per page.
func (s *Service) DocumentsXLSX(docs []*pipeline.DocumentResult) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeDocuments(f, docs); err != nil {
		return nil, err
	}
	// drop the default sheet once ours exist
	_ = f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex(DocumentsSheet)
	f.SetActiveSheet(idx)

	out, err := finish(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "documents", len(docs), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

// BatchXLSX is DocumentsXLSX plus a sheet with the batch totals.
func (s *Service) BatchXLSX(batch *pipeline.BatchResult) ([]byte, error) {
	if batch == nil {
		return nil, common.NewValidationError("batch is required")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeDocuments(f, batch.Documents); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(BatchSheet); err != nil {
		return nil, err
	}
	summary := [][2]any{
		{"Batch ID", batch.ID},
		{"Documents", batch.BatchSize},
		{"Total Pages", batch.TotalPages},
		{"Total Characters", batch.TotalCharacters},
		{"Avg Confidence", batch.AverageConfidence},
		{"Merged", batch.Merged},
	}
	for i, kv := range summary {
		_ = f.SetCellValue(BatchSheet, cell(1, i+1), kv[0])
		_ = f.SetCellValue(BatchSheet, cell(2, i+1), kv[1])
	}
	_ = f.SetColWidth(BatchSheet, "A", "A", 20)
	_ = f.SetColWidth(BatchSheet, "B", "B", 40)
	_ = f.DeleteSheet("Sheet1")
	idx, _ := f.GetSheetIndex(BatchSheet)
	f.SetActiveSheet(idx)

	out, err := finish(f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "batch_id", batch.ID, "documents", len(batch.Documents))
	return out, nil
}

func writeDocuments(f *excelize.File, docs []*pipeline.DocumentResult) error {
	for _, name := range []string{DocumentsSheet, PagesSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}
	writeHeader(f, DocumentsSheet, documentHeaders)
	writeHeader(f, PagesSheet, pageHeaders)

	row, pageRow := 2, 2
	for _, d := range docs {
		if d == nil {
			continue
		}
		values := []any{
			d.ID, d.SourcePath, d.ProcessingMethod, d.IsScanned, d.PageCount, d.FailedPages(),
			d.TotalCharacters, d.TotalWords, d.AverageConfidence, d.Engine, d.Language, d.Preset,
			d.Duration.Milliseconds(), "",
		}
		if !d.CreatedAt.IsZero() {
			values[len(values)-1] = d.CreatedAt.UTC().Format(time.RFC3339)
		}
		for col, v := range values {
			_ = f.SetCellValue(DocumentsSheet, cell(col+1, row), v)
		}
		row++

		for _, p := range d.Pages {
			pv := []any{d.ID, p.PageNumber, p.CharacterCount, p.WordCount, p.Confidence, p.Engine, p.Error,
				excerpt(p.Text, excerptLen)}
			for col, v := range pv {
				_ = f.SetCellValue(PagesSheet, cell(col+1, pageRow), v)
			}
			pageRow++
		}
	}

	_ = f.SetColWidth(DocumentsSheet, "A", "A", 38) // id
	_ = f.SetColWidth(DocumentsSheet, "B", "B", 60) // path
	_ = f.SetColWidth(DocumentsSheet, "C", "C", 24)
	_ = f.SetColWidth(DocumentsSheet, "N", "N", 22)
	_ = f.SetColWidth(PagesSheet, "A", "A", 38)
	_ = f.SetColWidth(PagesSheet, "G", "G", 32)
	_ = f.SetColWidth(PagesSheet, "H", "H", 80)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		_ = f.SetCellValue(sheet, cell(i+1, 1), h)
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func finish(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// excerpt flattens text to one line and cuts it at n runes.
func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Open reads a workbook produced by this package; used by callers that re-import exports.
func Open(data []byte) (*excelize.File, error) {
	return excelize.OpenReader(bytes.NewReader(data))
}
