package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/runner"
)

const TesseractName = "tesseract"

// Tesseract drives the tesseract executable and parses its TSV output.
type Tesseract struct {
	cfg    EngineConfig
	runner runner.Runner
	logger *slog.Logger

	mu      sync.Mutex
	ready   bool
	version string
	langs   []string
}

// NewTesseract is the registry constructor for the CLI backend.
func NewTesseract(cfg EngineConfig) (Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Name == "" {
		cfg.Name = TesseractName
	}
	if cfg.PSM < 0 || cfg.PSM > 13 {
		return nil, fmt.Errorf("invalid page segmentation mode %d", cfg.PSM)
	}
	if cfg.OEM < 0 || cfg.OEM > 3 {
		return nil, fmt.Errorf("invalid engine mode %d", cfg.OEM)
	}
	return &Tesseract{
		cfg:    cfg,
		runner: cfg.Runner,
		logger: cfg.Logger.With("engine", cfg.Name),
	}, nil
}

// Initialize checks the binary answers --version and that every requested
// language is installed. Once ready, further calls are no-ops.
func (t *Tesseract) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ready {
		return nil
	}

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, "--version")
	if err != nil {
		return common.NewEngineUnavailable(t.cfg.Name, fmt.Errorf("%w: %s", err, runner.Truncate(string(errb), 512)))
	}
	// older builds print the banner on stderr
	t.version = parseVersion(string(out) + "\n" + string(errb))

	langs, err := t.listLangs(ctx)
	if err != nil {
		t.logger.Warn("could not list tesseract languages", "error", err)
	} else {
		t.langs = langs
		for _, want := range splitLanguages(t.cfg.Language) {
			if !contains(langs, want) {
				return common.NewEngineUnavailable(t.cfg.Name, fmt.Errorf("language %q not installed (have %v)", want, langs))
			}
		}
	}

	t.ready = true
	t.logger.Info("ocr engine ready", "version", t.version, "language", t.cfg.Language)
	return nil
}

// Recognize writes img to a temporary PNG and recognizes that file.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (PageResult, error) {
	if img == nil || img.Bounds().Empty() {
		return PageResult{}, common.NewImageDecodeError("<memory>", fmt.Errorf("empty image"))
	}
	f, err := os.CreateTemp("", "dococr-page-*.png")
	if err != nil {
		return PageResult{}, common.Internal(err, "create temp image")
	}
	path := f.Name()
	defer os.Remove(path)
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return PageResult{}, common.Internal(err, "encode temp image")
	}
	if err := f.Close(); err != nil {
		return PageResult{}, common.Internal(err, "close temp image")
	}
	res, err := t.RecognizeFile(ctx, path)
	res.ImagePath = ""
	return res, err
}

// RecognizeFile runs tesseract in TSV mode on path.
func (t *Tesseract) RecognizeFile(ctx context.Context, path string) (PageResult, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return PageResult{}, common.NewFileNotFound(path)
		}
		return PageResult{}, common.Internal(err, "stat "+path)
	}
	if err := t.Initialize(ctx); err != nil {
		return PageResult{}, err
	}

	start := time.Now()
	args := []string{path, "stdout", "-l", t.cfg.Language}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		if ctx.Err() != nil {
			return PageResult{}, common.NewRecognitionError(t.cfg.Name, ctx.Err())
		}
		return PageResult{}, common.NewRecognitionError(t.cfg.Name, fmt.Errorf("%w: %s", err, runner.Truncate(string(errb), 512)))
	}

	words := ParseTSV(string(out))
	res := NewPageResult(Normalize(TextFromWords(words)), words, t.cfg.Name, t.cfg.Language)
	res.ImagePath = path
	res.Metadata["psm"] = t.cfg.PSM
	res.Metadata["oem"] = t.cfg.OEM
	res.Metadata["ocr_ms"] = time.Since(start).Milliseconds()
	t.logger.Debug("page recognized", "path", path, "words", len(words), "confidence", res.Confidence)
	return res, nil
}

// SupportedLanguages returns the installed language packs, or nil when they
// cannot be listed.
func (t *Tesseract) SupportedLanguages(ctx context.Context) []string {
	t.mu.Lock()
	cached := t.langs
	t.mu.Unlock()
	if cached != nil {
		return append([]string(nil), cached...)
	}
	langs, err := t.listLangs(ctx)
	if err != nil {
		t.logger.Debug("could not list tesseract languages", "error", err)
		return nil
	}
	t.mu.Lock()
	t.langs = langs
	t.mu.Unlock()
	return append([]string(nil), langs...)
}

func (t *Tesseract) Describe(ctx context.Context) Descriptor {
	available := t.Initialize(ctx) == nil
	t.mu.Lock()
	version := t.version
	t.mu.Unlock()
	return Descriptor{
		Name:      t.cfg.Name,
		Languages: t.SupportedLanguages(ctx),
		Available: available,
		Version:   version,
	}
}

func (t *Tesseract) listLangs(ctx context.Context) ([]string, error) {
	args := []string{"--list-langs"}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract --list-langs: %w: %s", err, runner.Truncate(string(errb), 512))
	}
	return parseLangs(string(out) + "\n" + string(errb)), nil
}

// parseVersion picks "5.3.0" out of a banner such as "tesseract 5.3.0\n leptonica-1.82.0".
func parseVersion(banner string) string {
	for _, ln := range strings.Split(banner, "\n") {
		f := strings.Fields(ln)
		if len(f) >= 2 && strings.EqualFold(f[0], "tesseract") {
			return strings.TrimPrefix(f[1], "v")
		}
	}
	return ""
}

// parseLangs reads --list-langs output; the header line ends with a colon.
func parseLangs(out string) []string {
	var langs []string
	for _, ln := range strings.Split(out, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasSuffix(ln, ":") || strings.Contains(ln, " ") {
			continue
		}
		if !contains(langs, ln) {
			langs = append(langs, ln)
		}
	}
	return langs
}

func splitLanguages(lang string) []string {
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
