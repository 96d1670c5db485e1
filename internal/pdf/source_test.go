package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakePoppler emulates the poppler tools for documents described by pages.
type fakePoppler struct {
	mu    sync.Mutex
	pages map[string]int    // path -> page count
	info  map[string]string // path -> stderr that makes pdfinfo fail
	text  map[int]string
	calls []string
}

func (f *fakePoppler) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	f.mu.Unlock()
	fail := errors.New("exit status 1")
	switch name {
	case "pdfinfo":
		path := args[0]
		if stderr, ok := f.info[path]; ok {
			return nil, []byte(stderr), fail
		}
		n := f.pageCount(path)
		return []byte(fmt.Sprintf("Title:          Intake form\nProducer:       scanner\nPages:          %d\nEncrypted:      no\n", n)), nil, nil
	case "pdftotext":
		page, _ := strconv.Atoi(args[6])
		return []byte(f.text[page]), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		img := image.NewGray(image.Rect(0, 0, 17, 22))
		out, err := os.Create(prefix + ".png")
		if err != nil {
			return nil, nil, err
		}
		defer out.Close()
		return nil, nil, png.Encode(out, img)
	case "pdfseparate":
		n := f.pageCount(args[0])
		for i := 1; i <= n; i++ {
			if err := os.WriteFile(fmt.Sprintf(args[1], i), []byte("%PDF 1"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "pdfunite":
		out := args[len(args)-1]
		total := 0
		for _, in := range args[:len(args)-1] {
			total += f.pageCount(in)
		}
		f.mu.Lock()
		f.pages[out] = total
		f.mu.Unlock()
		return nil, nil, os.WriteFile(out, []byte("%PDF merged"), 0o644)
	}
	return nil, nil, fmt.Errorf("unexpected command %s", name)
}

func (f *fakePoppler) pageCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.pages[path]; ok {
		return n
	}
	return 1
}

func setup(t *testing.T, docs map[string]int) (*Poppler, *fakePoppler, string) {
	t.Helper()
	dir := t.TempDir()
	f := &fakePoppler{pages: map[string]int{}, info: map[string]string{}, text: map[int]string{}}
	for name, n := range docs {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("%PDF-1.7"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		f.pages[p] = n
	}
	return NewPoppler(Config{WorkDir: dir}, f, quiet), f, dir
}

func TestOpen(t *testing.T) {
	p, f, dir := setup(t, map[string]int{"ok.pdf": 4, "empty.pdf": 0, "locked.pdf": 2, "broken.pdf": 1})
	f.info[filepath.Join(dir, "locked.pdf")] = "Command Line Error: Incorrect password\n"
	f.info[filepath.Join(dir, "broken.pdf")] = "Syntax Error: Couldn't find trailer dictionary\n"

	doc, err := p.Open(context.Background(), filepath.Join(dir, "ok.pdf"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if doc.Pages != 4 || p.PageCount(doc) != 4 || doc.Title != "Intake form" || doc.Encrypted {
		t.Fatalf("doc = %+v", doc)
	}

	cases := []struct {
		name string
		want error
	}{
		{"missing.pdf", common.ErrNotFound},
		{"empty.pdf", common.ErrEmptyDocument},
		{"locked.pdf", common.ErrPasswordProtected},
		{"broken.pdf", common.ErrCorrupted},
	}
	for _, tc := range cases {
		_, err := p.Open(context.Background(), filepath.Join(dir, tc.name))
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
	for _, name := range []string{"empty.pdf", "locked.pdf", "broken.pdf"} {
		_, err := p.Open(context.Background(), filepath.Join(dir, name))
		if common.KindOf(err) != common.KindDocument {
			t.Fatalf("%s: kind = %s", name, common.KindOf(err))
		}
	}
}

func TestParseInfoMetadata(t *testing.T) {
	out := strings.Join([]string{
		"Title:          Discharge summary",
		"Author:         Ward 3",
		"Subject:        Patient record",
		"Keywords:       medical, discharge",
		"Creator:        Writer",
		"Producer:       LibreOffice 7.5",
		"CreationDate:   Mon Mar  4 10:12:00 2024 UTC",
		"ModDate:        Tue Mar  5 08:00:00 2024 UTC",
		"Pages:          2",
		"Encrypted:      yes (print:yes copy:no change:no addNotes:no)",
		"Page size:      595.276 x 841.89 pts (A4)",
		"PDF version:    1.7",
	}, "\n")
	doc := parseInfo("a.pdf", out)
	want := Metadata{
		Author:       "Ward 3",
		Subject:      "Patient record",
		Keywords:     "medical, discharge",
		Creator:      "Writer",
		CreationDate: "Mon Mar  4 10:12:00 2024 UTC",
		ModDate:      "Tue Mar  5 08:00:00 2024 UTC",
		Version:      "1.7",
		PageWidth:    595.276,
		PageHeight:   841.89,
	}
	if doc.Metadata != want {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}
	if doc.Pages != 2 || !doc.Encrypted || doc.Title != "Discharge summary" || doc.Producer != "LibreOffice 7.5" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestParsePageSize(t *testing.T) {
	tests := []struct {
		in   string
		w, h float64
	}{
		{"612 x 792 pts (letter)", 612, 792},
		{"200 x 100 pts", 200, 100},
		{"unknown", 0, 0},
		{"a x b pts", 0, 0},
	}
	for _, tt := range tests {
		if w, h := parsePageSize(tt.in); w != tt.w || h != tt.h {
			t.Fatalf("parsePageSize(%q) = %v x %v", tt.in, w, h)
		}
	}
}

func TestOpenRejectsNonPDF(t *testing.T) {
	p, _, dir := setup(t, nil)
	path := filepath.Join(dir, "scan.png")
	_ = os.WriteFile(path, []byte("x"), 0o644)
	if _, err := p.Open(context.Background(), path); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractText(t *testing.T) {
	p, f, dir := setup(t, map[string]int{"a.pdf": 2})
	f.text[2] = "second page"
	doc, _ := p.Open(context.Background(), filepath.Join(dir, "a.pdf"))
	got, err := p.ExtractText(context.Background(), doc, 2)
	if err != nil || got != "second page" {
		t.Fatalf("text = %q, %v", got, err)
	}
	if _, err := p.ExtractText(context.Background(), doc, 3); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("out of range err = %v", err)
	}
	last := f.calls[len(f.calls)-1]
	if !strings.Contains(last, "-layout -enc UTF-8 -eol unix -f 2 -l 2") {
		t.Fatalf("args = %q", last)
	}
}

func TestRasterize(t *testing.T) {
	p, f, dir := setup(t, map[string]int{"a.pdf": 1})
	doc, _ := p.Open(context.Background(), filepath.Join(dir, "a.pdf"))
	img, err := p.Rasterize(context.Background(), doc, 1, 300)
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	if img.Bounds().Dx() != 17 || img.Bounds().Dy() != 22 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if !strings.Contains(f.calls[len(f.calls)-1], "-r 300 -f 1 -l 1 -singlefile") {
		t.Fatalf("args = %q", f.calls[len(f.calls)-1])
	}
	if _, err := p.Rasterize(context.Background(), doc, 1, 0); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("zero dpi err = %v", err)
	}
	if z := Zoom(144); z != 2 {
		t.Fatalf("zoom = %v", z)
	}
}

func TestMergeAndSplit(t *testing.T) {
	p, _, dir := setup(t, map[string]int{"a.pdf": 2, "b.pdf": 3})
	merged, err := p.Merge(context.Background(), []string{filepath.Join(dir, "a.pdf"), filepath.Join(dir, "b.pdf")}, filepath.Join(dir, "out", "merged.pdf"))
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.Pages != 5 {
		t.Fatalf("merged pages = %d", merged.Pages)
	}

	chunks, err := p.Split(context.Background(), merged, 2, filepath.Join(dir, "chunks"))
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	var sizes []int
	for _, c := range chunks {
		if _, err := os.Stat(c.Path); err != nil {
			t.Fatalf("chunk missing: %v", err)
		}
		sizes = append(sizes, c.Pages)
	}
	if fmt.Sprint(sizes) != "[2 2 1]" {
		t.Fatalf("chunk sizes = %v", sizes)
	}
	if filepath.Base(chunks[0].Path) != "merged_part001.pdf" {
		t.Fatalf("chunk name = %s", chunks[0].Path)
	}
	if _, err := p.Split(context.Background(), merged, 0, dir); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("zero chunk err = %v", err)
	}
	if _, err := p.Merge(context.Background(), nil, filepath.Join(dir, "x.pdf")); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("empty merge err = %v", err)
	}
}
