// Package gosseract provides an OCR engine backed by libtesseract through cgo.
// A recognition call cannot be interrupted once started; ctx is only checked
// before the call.
package gosseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
)

const Name = "gosseract"

// Register adds the engine to reg under Name.
func Register(reg *ocr.Registry) {
	reg.Register(Name, New)
}

// Engine recognizes pages in-process. Each call uses a fresh client, so the
// engine is safe for concurrent use.
type Engine struct {
	cfg    ocr.EngineConfig
	logger *slog.Logger

	clientFactory func() *gosseract.Client

	mu      sync.Mutex
	ready   bool
	version string
	langs   []string
}

// New is the registry constructor.
func New(cfg ocr.EngineConfig) (ocr.Engine, error) {
	if cfg.Language == "" {
		cfg.Language = ocr.DefaultLanguage
	}
	if cfg.Name == "" {
		cfg.Name = Name
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PSM < 0 || cfg.PSM > 13 {
		return nil, fmt.Errorf("invalid page segmentation mode %d", cfg.PSM)
	}
	return &Engine{
		cfg:           cfg,
		logger:        cfg.Logger.With("engine", cfg.Name),
		clientFactory: gosseract.NewClient,
	}, nil
}

// Initialize loads the requested languages once to confirm libtesseract and
// its traineddata are usable.
func (e *Engine) Initialize(ctx context.Context) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return common.NewEngineUnavailable(e.cfg.Name, err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = common.NewEngineUnavailable(e.cfg.Name, fmt.Errorf("libtesseract: %v", rec))
		}
	}()

	c, err := e.newClient()
	if err != nil {
		return common.NewEngineUnavailable(e.cfg.Name, err)
	}
	defer c.Close()

	langs, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return common.NewEngineUnavailable(e.cfg.Name, err)
	}
	for _, want := range strings.Split(e.cfg.Language, "+") {
		if want = strings.TrimSpace(want); want != "" && !contains(langs, want) {
			return common.NewEngineUnavailable(e.cfg.Name, fmt.Errorf("language %q not installed (have %v)", want, langs))
		}
	}
	e.langs = langs
	e.version = gosseract.Version()
	e.ready = true
	e.logger.Info("ocr engine ready", "version", e.version, "language", e.cfg.Language)
	return nil
}

func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.PageResult, error) {
	if img == nil || img.Bounds().Empty() {
		return ocr.PageResult{}, common.NewImageDecodeError("<memory>", fmt.Errorf("empty image"))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.PageResult{}, common.Internal(err, "encode page image")
	}
	return e.recognize(ctx, func(c *gosseract.Client) error { return c.SetImageFromBytes(buf.Bytes()) }, "")
}

func (e *Engine) RecognizeFile(ctx context.Context, path string) (ocr.PageResult, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ocr.PageResult{}, common.NewFileNotFound(path)
		}
		return ocr.PageResult{}, common.Internal(err, "stat "+path)
	}
	return e.recognize(ctx, func(c *gosseract.Client) error { return c.SetImage(path) }, path)
}

func (e *Engine) recognize(ctx context.Context, setImage func(*gosseract.Client) error, path string) (res ocr.PageResult, err error) {
	if err := e.Initialize(ctx); err != nil {
		return ocr.PageResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, err)
	}
	defer func() {
		if rec := recover(); rec != nil {
			res, err = ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, fmt.Errorf("libtesseract: %v", rec))
		}
	}()

	start := time.Now()
	c, err := e.newClient()
	if err != nil {
		return ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, err)
	}
	defer c.Close()
	if err := setImage(c); err != nil {
		return ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, fmt.Errorf("set image: %w", err))
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, fmt.Errorf("word boxes: %w", err))
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		words = append(words, ocr.Word{
			Text:       strings.TrimSpace(b.Word),
			Confidence: b.Confidence,
			Box:        ocr.Box{Left: b.Box.Min.X, Top: b.Box.Min.Y, Width: b.Box.Dx(), Height: b.Box.Dy()},
			WordNum:    len(words) + 1,
		})
	}

	text, err := c.Text()
	if err != nil {
		return ocr.PageResult{}, common.NewRecognitionError(e.cfg.Name, fmt.Errorf("recognize text: %w", err))
	}

	res = ocr.NewPageResult(ocr.Normalize(text), words, e.cfg.Name, e.cfg.Language)
	res.ImagePath = path
	res.Metadata["psm"] = e.cfg.PSM
	res.Metadata["ocr_ms"] = time.Since(start).Milliseconds()
	e.logger.Debug("page recognized", "path", path, "words", len(words), "confidence", res.Confidence)
	return res, nil
}

func (e *Engine) SupportedLanguages(ctx context.Context) []string {
	if err := e.Initialize(ctx); err != nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.langs...)
}

func (e *Engine) Describe(ctx context.Context) ocr.Descriptor {
	available := e.Initialize(ctx) == nil
	e.mu.Lock()
	defer e.mu.Unlock()
	return ocr.Descriptor{
		Name:      e.cfg.Name,
		Languages: append([]string(nil), e.langs...),
		Available: available,
		Version:   e.version,
	}
}

func (e *Engine) newClient() (*gosseract.Client, error) {
	c := e.clientFactory()
	if e.cfg.TessdataDir != "" {
		c.TessdataPrefix = e.cfg.TessdataDir
	}
	if err := c.SetLanguage(strings.Split(e.cfg.Language, "+")...); err != nil {
		c.Close()
		return nil, fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			c.Close()
			return nil, fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	return c, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
