package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pipeline"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func doc(id string) *pipeline.DocumentResult {
	return &pipeline.DocumentResult{
		ID:                id,
		SourcePath:        "/inbox/" + id + ".pdf",
		ProcessingMethod:  "ocr_pipeline",
		IsScanned:         true,
		PageCount:         2,
		TotalCharacters:   12,
		AverageConfidence: 44.5,
		Pages: []ocr.PageResult{
			{PageNumber: 1, Text: "Patient\n  Jane   Doe", CharacterCount: 12, Confidence: 89, Engine: "tesseract"},
			ocr.FailedPage(2, "", "tesseract", "eng", errors.New("blank page")),
		},
		CreatedAt: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC),
	}
}

func TestDocumentsXLSX(t *testing.T) {
	svc := NewService(nil, quiet)
	data, err := svc.DocumentsXLSX([]*pipeline.DocumentResult{doc("a"), nil, doc("b")})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := Open(data)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rows, _ := f.GetRows(DocumentsSheet)
	if len(rows) != 3 || rows[0][0] != "Document ID" || rows[2][0] != "b" {
		t.Fatalf("document rows = %v", rows)
	}
	if rows[1][5] != "1" || rows[1][13] != "2026-05-04T08:00:00Z" {
		t.Fatalf("row = %v", rows[1])
	}
	pages, _ := f.GetRows(PagesSheet)
	if len(pages) != 5 {
		t.Fatalf("page rows = %d", len(pages))
	}
	if pages[1][7] != "Patient Jane Doe" || pages[2][6] != "blank page" {
		t.Fatalf("pages = %v", pages[1:3])
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Fatalf("default sheet left behind")
	}
}

func TestBatchXLSX(t *testing.T) {
	batch := pipeline.SummarizeBatch([]*pipeline.DocumentResult{doc("a")})
	batch.ID = "batch-9"
	data, err := NewService(nil, quiet).BatchXLSX(&batch)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, _ := Open(data)
	v, _ := f.GetCellValue(BatchSheet, "B1")
	if v != "batch-9" {
		t.Fatalf("batch id cell = %q", v)
	}
	if _, err := NewService(nil, quiet).BatchXLSX(nil); err == nil {
		t.Fatalf("expected error for nil batch")
	}
}

func TestExportRecentFromRepository(t *testing.T) {
	ctx := context.Background()
	store, err := repository.OpenSQLite(ctx, ":memory:", quiet)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	for _, id := range []string{"x", "y"} {
		if _, err := store.SaveDocument(ctx, doc(id)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	data, err := NewService(store, quiet).ExportRecentXLSX(ctx, 10)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, _ := Open(data)
	rows, _ := f.GetRows(DocumentsSheet)
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
}

func TestExcerpt(t *testing.T) {
	if got := excerpt("a  b\n\nc", 10); got != "a b c" {
		t.Fatalf("excerpt = %q", got)
	}
	if got := excerpt(strings.Repeat("é", 5), 3); got != "éé…" {
		t.Fatalf("excerpt = %q", got)
	}
}
