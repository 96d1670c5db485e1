// Package ocr defines the engine contract shared by every recognition backend,
// the name-keyed engine registry, and the tesseract command-line backend.
package ocr

import (
	"context"
	"image"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/runner"
)

// Engine is implemented by every recognition backend.
//
// Initialize is idempotent and fails only with an engine-unavailable error.
// Recognize and RecognizeFile return a PageResult whose PageNumber is left for
// the caller to fill in.
type Engine interface {
	Initialize(ctx context.Context) error
	Recognize(ctx context.Context, img image.Image) (PageResult, error)
	RecognizeFile(ctx context.Context, path string) (PageResult, error)
	SupportedLanguages(ctx context.Context) []string
	Describe(ctx context.Context) Descriptor
}

// EngineConfig is passed to every engine constructor.
type EngineConfig struct {
	Name        string
	Language    string
	Binary      string // tesseract executable for the CLI backend
	TessdataDir string
	PSM         int
	OEM         int
	Runner      runner.Runner
	Logger      *slog.Logger
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Runner == nil {
		c.Runner = runner.NewExec(c.Logger)
	}
	return c
}

const DefaultLanguage = "eng"

// Descriptor describes an engine without requiring it to be usable.
type Descriptor struct {
	Name      string   `json:"name"`
	Languages []string `json:"languages"`
	Available bool     `json:"available"`
	Version   string   `json:"version,omitempty"`
}

// Box is a word bounding box in pixels.
type Box struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Word is a recognized token. Confidence is 0-100.
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
	BlockNum   int     `json:"block_num"`
	ParNum     int     `json:"par_num"`
	LineNum    int     `json:"line_num"`
	WordNum    int     `json:"word_num"`
}

// PageResult is the outcome of recognizing one page. A failed page carries
// Error and zero counts.
type PageResult struct {
	PageNumber     int            `json:"page_number"`
	ImagePath      string         `json:"image_path,omitempty"`
	Text           string         `json:"text"`
	Confidence     float64        `json:"confidence"`
	WordCount      int            `json:"word_count"`
	CharacterCount int            `json:"character_count"`
	Words          []Word         `json:"words,omitempty"`
	Engine         string         `json:"engine"`
	Language       string         `json:"language"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Failed reports whether the page carries an error marker.
func (p PageResult) Failed() bool { return p.Error != "" }

// NewPageResult fills the derived counts from text and takes the mean word confidence.
func NewPageResult(text string, words []Word, engine, language string) PageResult {
	return PageResult{
		Text:           text,
		Confidence:     MeanConfidence(words),
		WordCount:      len(strings.Fields(text)),
		CharacterCount: utf8.RuneCountInString(text),
		Words:          words,
		Engine:         engine,
		Language:       language,
		Metadata:       map[string]any{},
	}
}

// FailedPage builds the error-flagged result for a page that could not be recognized.
func FailedPage(pageNumber int, imagePath, engine, language string, err error) PageResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return PageResult{
		PageNumber: pageNumber,
		ImagePath:  imagePath,
		Engine:     engine,
		Language:   language,
		Metadata:   map[string]any{},
		Error:      msg,
	}
}

// MeanConfidence averages the confidence of words that carry text, rounded to 2 decimals.
func MeanConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence < 0 {
			continue
		}
		sum += w.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NormalizeName folds case and surrounding whitespace of an engine name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
