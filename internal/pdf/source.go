// Package pdf opens, reads, rasterizes, merges and splits PDF documents using
// the poppler command-line tools.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/runner"
)

// PointsPerInch is the PDF user-space unit; zoom = DPI / PointsPerInch.
const PointsPerInch = 72.0

// Zoom converts a rasterization DPI into the page-geometry scale factor.
func Zoom(dpi int) float64 { return float64(dpi) / PointsPerInch }

// Source is the document access collaborator used by the pipeline.
type Source interface {
	Open(ctx context.Context, path string) (*Document, error)
	PageCount(doc *Document) int
	ExtractText(ctx context.Context, doc *Document, page int) (string, error)
	Rasterize(ctx context.Context, doc *Document, page, dpi int) (image.Image, error)
	Merge(ctx context.Context, paths []string, out string) (*Document, error)
	Split(ctx context.Context, doc *Document, pagesPerChunk int, outDir string) ([]*Document, error)
}

// Document is an opened PDF. Pages are numbered from 1.
type Document struct {
	Path      string
	Pages     int
	Title     string
	Producer  string
	Encrypted bool
	Metadata  Metadata
}

// Metadata is the remaining pdfinfo output. Page sizes are in points and
// describe the first page.
type Metadata struct {
	Author       string
	Subject      string
	Keywords     string
	Creator      string
	CreationDate string
	ModDate      string
	Version      string
	PageWidth    float64
	PageHeight   float64
}

type Config struct {
	Pdfinfo     string
	Pdftotext   string
	Pdftoppm    string
	Pdfunite    string
	Pdfseparate string
	WorkDir     string
}

// Poppler implements Source with pdfinfo, pdftotext, pdftoppm, pdfunite and pdfseparate.
type Poppler struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewPoppler(cfg Config, r runner.Runner, logger *slog.Logger) *Poppler {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.NewExec(logger)
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfunite == "" {
		cfg.Pdfunite = "pdfunite"
	}
	if cfg.Pdfseparate == "" {
		cfg.Pdfseparate = "pdfseparate"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Poppler{cfg: cfg, runner: r, logger: logger}
}

// Open reads the document metadata. It fails with not-found, unsupported
// format, password-protected, corrupted or empty-document errors.
func (p *Poppler) Open(ctx context.Context, path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewFileNotFound(path)
		}
		return nil, common.NewDocumentError(common.ErrCorrupted, path, err)
	}
	if ext := constants.NormalizeExt(filepath.Ext(path)); constants.MapExtToFormat(ext) != constants.PDF {
		return nil, common.NewUnsupportedFormat(path, ext)
	}

	out, errb, err := p.runner.Run(ctx, p.cfg.Pdfinfo, path)
	if err != nil {
		stderr := string(errb)
		if ctx.Err() != nil {
			return nil, common.Internal(ctx.Err(), "pdfinfo "+path)
		}
		if isPasswordError(stderr) {
			return nil, common.NewDocumentError(common.ErrPasswordProtected, path, nil)
		}
		return nil, common.NewDocumentError(common.ErrCorrupted, path, fmt.Errorf("%w: %s", err, runner.Truncate(stderr, 512)))
	}

	doc := parseInfo(path, string(out))
	if doc.Pages <= 0 {
		return nil, common.NewDocumentError(common.ErrEmptyDocument, path, nil)
	}
	p.logger.Debug("pdf opened", "path", path, "pages", doc.Pages, "encrypted", doc.Encrypted)
	return doc, nil
}

func (p *Poppler) PageCount(doc *Document) int {
	if doc == nil {
		return 0
	}
	return doc.Pages
}

// ExtractText returns the embedded text layer of one page.
func (p *Poppler) ExtractText(ctx context.Context, doc *Document, page int) (string, error) {
	if err := checkPage(doc, page); err != nil {
		return "", err
	}
	n := strconv.Itoa(page)
	out, errb, err := p.runner.Run(ctx, p.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", "-f", n, "-l", n, doc.Path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w: %s", page, err, runner.Truncate(string(errb), 512))
	}
	return string(out), nil
}

// Rasterize renders one page at dpi as a grayscale image.
func (p *Poppler) Rasterize(ctx context.Context, doc *Document, page, dpi int) (image.Image, error) {
	dir, err := os.MkdirTemp(p.cfg.WorkDir, "raster-*")
	if err != nil {
		return nil, common.Internal(err, "create raster dir")
	}
	defer os.RemoveAll(dir)

	path, err := p.RasterizeToFile(ctx, doc, page, dpi, filepath.Join(dir, "page.png"))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewImageDecodeError(path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, common.NewImageDecodeError(path, err)
	}
	return img, nil
}

// RasterizeToFile renders one page at dpi into the PNG file out.
func (p *Poppler) RasterizeToFile(ctx context.Context, doc *Document, page, dpi int, out string) (string, error) {
	if err := checkPage(doc, page); err != nil {
		return "", err
	}
	if dpi <= 0 {
		return "", common.NewValidationError(fmt.Sprintf("dpi must be positive, got %d", dpi))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", common.Internal(err, "create raster output dir")
	}
	prefix := strings.TrimSuffix(out, filepath.Ext(out))
	n := strconv.Itoa(page)
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm,
		"-r", strconv.Itoa(dpi), "-f", n, "-l", n, "-singlefile", "-gray", "-png", doc.Path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm page %d: %w: %s", page, err, runner.Truncate(string(errb), 512))
	}
	rendered := prefix + ".png"
	if rendered != out {
		if err := os.Rename(rendered, out); err != nil {
			return "", common.Internal(err, "move rendered page")
		}
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("pdftoppm page %d produced no output", page)
	}
	return out, nil
}

// Merge concatenates paths into out and opens the result.
func (p *Poppler) Merge(ctx context.Context, paths []string, out string) (*Document, error) {
	if len(paths) == 0 {
		return nil, common.NewValidationError("merge needs at least one document")
	}
	for _, in := range paths {
		if _, err := p.Open(ctx, in); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, common.Internal(err, "create merge output dir")
	}
	if len(paths) == 1 {
		if err := copyFile(paths[0], out); err != nil {
			return nil, common.Internal(err, "copy "+paths[0])
		}
	} else {
		args := append(append([]string(nil), paths...), out)
		if _, errb, err := p.runner.Run(ctx, p.cfg.Pdfunite, args...); err != nil {
			return nil, common.Internal(fmt.Errorf("%w: %s", err, runner.Truncate(string(errb), 512)), "pdfunite")
		}
	}
	p.logger.Info("pdfs merged", "inputs", len(paths), "output", out)
	return p.Open(ctx, out)
}

// Split writes doc into consecutive chunks of at most pagesPerChunk pages.
func (p *Poppler) Split(ctx context.Context, doc *Document, pagesPerChunk int, outDir string) ([]*Document, error) {
	if doc == nil || doc.Pages <= 0 {
		return nil, common.NewValidationError("split needs an opened document")
	}
	if pagesPerChunk <= 0 {
		return nil, common.NewValidationError(fmt.Sprintf("pages per chunk must be positive, got %d", pagesPerChunk))
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, common.Internal(err, "create split output dir")
	}
	pagesDir, err := os.MkdirTemp(p.cfg.WorkDir, "split-*")
	if err != nil {
		return nil, common.Internal(err, "create split workspace")
	}
	defer os.RemoveAll(pagesDir)

	pattern := filepath.Join(pagesDir, "page-%d.pdf")
	if _, errb, err := p.runner.Run(ctx, p.cfg.Pdfseparate, doc.Path, pattern); err != nil {
		return nil, common.Internal(fmt.Errorf("%w: %s", err, runner.Truncate(string(errb), 512)), "pdfseparate")
	}

	base := strings.TrimSuffix(filepath.Base(doc.Path), filepath.Ext(doc.Path))
	var chunks []*Document
	for first := 1; first <= doc.Pages; first += pagesPerChunk {
		last := min(first+pagesPerChunk-1, doc.Pages)
		var pages []string
		for i := first; i <= last; i++ {
			pages = append(pages, filepath.Join(pagesDir, fmt.Sprintf("page-%d.pdf", i)))
		}
		out := filepath.Join(outDir, fmt.Sprintf("%s_part%03d.pdf", base, len(chunks)+1))
		if len(pages) == 1 {
			if err := copyFile(pages[0], out); err != nil {
				return nil, common.Internal(err, "copy split page")
			}
		} else {
			args := append(pages, out)
			if _, errb, err := p.runner.Run(ctx, p.cfg.Pdfunite, args...); err != nil {
				return nil, common.Internal(fmt.Errorf("%w: %s", err, runner.Truncate(string(errb), 512)), "pdfunite")
			}
		}
		chunks = append(chunks, &Document{Path: out, Pages: last - first + 1, Title: doc.Title, Producer: doc.Producer, Metadata: doc.Metadata})
	}
	p.logger.Info("pdf split", "path", doc.Path, "chunks", len(chunks), "pages_per_chunk", pagesPerChunk)
	return chunks, nil
}

func checkPage(doc *Document, page int) error {
	if doc == nil {
		return common.NewValidationError("document is not open")
	}
	if page < 1 || page > doc.Pages {
		return common.NewValidationError(fmt.Sprintf("page %d out of range 1..%d", page, doc.Pages))
	}
	return nil
}

func isPasswordError(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "incorrect password") || strings.Contains(s, "password")
}

// parseInfo reads the "Key: value" lines printed by pdfinfo.
func parseInfo(path, out string) *Document {
	doc := &Document{Path: path}
	for _, ln := range strings.Split(out, "\n") {
		k, v, ok := strings.Cut(ln, ":")
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch strings.TrimSpace(k) {
		case "Pages":
			doc.Pages, _ = strconv.Atoi(v)
		case "Title":
			doc.Title = v
		case "Producer":
			doc.Producer = v
		case "Encrypted":
			doc.Encrypted = strings.HasPrefix(strings.ToLower(v), "yes")
		case "Author":
			doc.Metadata.Author = v
		case "Subject":
			doc.Metadata.Subject = v
		case "Keywords":
			doc.Metadata.Keywords = v
		case "Creator":
			doc.Metadata.Creator = v
		case "CreationDate":
			doc.Metadata.CreationDate = v
		case "ModDate":
			doc.Metadata.ModDate = v
		case "PDF version":
			doc.Metadata.Version = v
		case "Page size":
			doc.Metadata.PageWidth, doc.Metadata.PageHeight = parsePageSize(v)
		}
	}
	return doc
}

// parsePageSize reads "612 x 792 pts (letter)".
func parsePageSize(v string) (float64, float64) {
	f := strings.Fields(v)
	if len(f) < 3 || f[1] != "x" {
		return 0, 0
	}
	w, err1 := strconv.ParseFloat(f[0], 64)
	h, err2 := strconv.ParseFloat(f[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return w, h
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
