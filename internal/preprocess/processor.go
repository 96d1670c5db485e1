package preprocess

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/imaging"
)

// ImageStore loads and persists page images.
type ImageStore interface {
	LoadGray(ctx context.Context, path string) (*image.Gray, error)
	SaveImage(path string, img image.Image) error
}

// Config holds the global switches; a family runs only when both its switch and the preset enable it.
type Config struct {
	Enabled      bool
	Enhancement  bool
	Denoising    bool
	Deskewing    bool
	Binarization bool
}

// ConfigFrom maps the application config onto processor switches.
func ConfigFrom(c common.PreprocessConfig) Config {
	return Config{
		Enabled:      c.Enabled,
		Enhancement:  c.Enhancement,
		Denoising:    c.Denoising,
		Deskewing:    c.Deskewing,
		Binarization: c.Binarization,
	}
}

// AllEnabled turns every family on.
func AllEnabled() Config {
	return Config{Enabled: true, Enhancement: true, Denoising: true, Deskewing: true, Binarization: true}
}

// Report records what preprocessing did to one image.
type Report struct {
	Preset       string
	OriginalSize image.Point
	FinalSize    image.Point
	Steps        []string
	Algorithms   map[string]string
	SkewAngle    float64
	Stats        imaging.Stats
	Warnings     []string
	Duration     time.Duration
}

// Metadata flattens the report for page-result metadata.
func (r Report) Metadata() map[string]any {
	return map[string]any{
		"preset":         r.Preset,
		"original_shape": []int{r.OriginalSize.Y, r.OriginalSize.X},
		"final_shape":    []int{r.FinalSize.Y, r.FinalSize.X},
		"steps_applied":  r.Steps,
		"algorithms":     r.Algorithms,
		"skew_angle":     r.SkewAngle,
		"mean_intensity": r.Stats.Mean,
		"std_intensity":  r.Stats.Std,
	}
}

// Processor runs the enhance, denoise, deskew, binarize sequence.
type Processor struct {
	cfg    Config
	store  ImageStore
	logger *slog.Logger
}

func NewProcessor(cfg Config, store ImageStore, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{cfg: cfg, store: store, logger: logger}
}

// Enabled reports whether preprocessing is switched on globally.
func (p *Processor) Enabled() bool { return p.cfg.Enabled }

// Process applies the enabled families of preset, in order, to a grayscale copy of img.
func (p *Processor) Process(ctx context.Context, img image.Image, preset Preset) (*image.Gray, Report, error) {
	start := time.Now()
	logger := common.LoggerFromContext(ctx, p.logger)

	gray := imaging.ToGray(img)
	b := gray.Bounds()
	rep := Report{
		Preset:       preset.Name,
		OriginalSize: image.Pt(b.Dx(), b.Dy()),
		Algorithms:   map[string]string{},
		Stats:        imaging.Statistics(gray),
	}
	if b.Empty() {
		return nil, rep, common.NewImageDecodeError("", fmt.Errorf("empty image"))
	}
	if !p.cfg.Enabled {
		rep.FinalSize = rep.OriginalSize
		logger.Debug("preprocessing disabled, passing image through")
		return gray, rep, nil
	}

	type stage struct {
		family  string
		enabled bool
		method  string
		run     func(*image.Gray) *image.Gray
	}
	stages := []stage{
		{"enhance", p.cfg.Enhancement && preset.Enhance, preset.EnhanceMethod, func(in *image.Gray) *image.Gray {
			out, algo := Enhance(in, preset.EnhanceMethod, preset, logger)
			rep.Algorithms["enhance"] = algo
			return out
		}},
		{"denoise", p.cfg.Denoising && preset.Denoise, preset.DenoiseMethod, func(in *image.Gray) *image.Gray {
			out, algo := Denoise(in, preset.DenoiseMethod, preset, logger)
			rep.Algorithms["denoise"] = algo
			return out
		}},
		{"deskew", p.cfg.Deskewing && preset.Deskew, preset.DeskewMethod, func(in *image.Gray) *image.Gray {
			out, res := Deskew(in, preset.DeskewMethod, preset, logger)
			rep.Algorithms["deskew"] = res.Algorithm
			rep.SkewAngle = res.Angle
			if res.Warning != "" {
				rep.Warnings = append(rep.Warnings, res.Warning)
			}
			return out
		}},
		{"binarize", p.cfg.Binarization && preset.Binarize, preset.BinarizeMethod, func(in *image.Gray) *image.Gray {
			out, algo := Binarize(in, preset.BinarizeMethod, preset, logger)
			rep.Algorithms["binarize"] = algo
			return out
		}},
	}

	for _, s := range stages {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		method := s.method
		if method == "" {
			method = MethodAuto
		}
		gray = s.run(gray)
		rep.Steps = append(rep.Steps, s.family+"_"+method)
	}

	fb := gray.Bounds()
	rep.FinalSize = image.Pt(fb.Dx(), fb.Dy())
	rep.Duration = time.Since(start)
	logger.Info("preprocessing complete",
		"preset", preset.Name,
		"steps", rep.Steps,
		"skew_angle", rep.SkewAngle,
		"elapsed_ms", rep.Duration.Milliseconds(),
	)
	return gray, rep, nil
}

// ProcessFile loads in, processes it, and writes the result to out.
func (p *Processor) ProcessFile(ctx context.Context, in, out string, preset Preset) (Report, error) {
	if p.store == nil {
		return Report{}, common.Internal(fmt.Errorf("no image store configured"), "preprocess file")
	}
	img, err := p.store.LoadGray(ctx, in)
	if err != nil {
		return Report{}, err
	}
	processed, rep, err := p.Process(ctx, img, preset)
	if err != nil {
		return rep, err
	}
	if err := p.store.SaveImage(out, processed); err != nil {
		return rep, err
	}
	return rep, nil
}
