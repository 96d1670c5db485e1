package preprocess

import (
	"image"
	"log/slog"
	"math"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/imaging"
)

// MethodAuto lets a family pick its algorithm from image statistics.
const MethodAuto = "auto"

// Enhancement methods.
const (
	EnhanceCLAHE     = "clahe"
	EnhanceHistogram = "histogram"
	EnhanceSharpen   = "sharpen"
	EnhanceGamma     = "gamma"
	EnhanceText      = "text"
)

// Denoising methods.
const (
	DenoiseGaussian   = "gaussian"
	DenoiseMedian     = "median"
	DenoiseBilateral  = "bilateral"
	DenoiseMorphology = "morphology"
	DenoiseNLM        = "nlm"
	DenoiseAdaptive   = "adaptive"
	DenoiseSaltPepper = "salt_pepper"
)

// Deskewing methods.
const (
	DeskewHough      = "hough"
	DeskewProjection = "projection"
	DeskewContour    = "contour"
)

// Binarization methods.
const (
	BinarizeOtsu       = "otsu"
	BinarizeAdaptive   = "adaptive"
	BinarizeSauvola    = "sauvola"
	BinarizeNiblack    = "niblack"
	BinarizeTriangle   = "triangle"
	BinarizeMultiScale = "multiscale"
)

var (
	enhanceMethods  = []string{MethodAuto, EnhanceCLAHE, EnhanceHistogram, EnhanceSharpen, EnhanceGamma, EnhanceText}
	denoiseMethods  = []string{MethodAuto, DenoiseGaussian, DenoiseMedian, DenoiseBilateral, DenoiseMorphology, DenoiseNLM, DenoiseAdaptive, DenoiseSaltPepper}
	deskewMethods   = []string{MethodAuto, DeskewHough, DeskewProjection, DeskewContour}
	binarizeMethods = []string{MethodAuto, BinarizeOtsu, BinarizeAdaptive, BinarizeSauvola, BinarizeNiblack, BinarizeTriangle, BinarizeMultiScale}
)

// Auto-selection thresholds. Empirical values kept for behavioural compatibility.
var (
	EnhanceLowContrastStd   = 40.0
	EnhanceDarkMean         = 100.0
	EnhanceBrightMean       = 180.0
	DenoiseHighNoise        = 15.0
	DenoiseMediumNoise      = 8.0
	BinarizeHighContrastStd = 50.0
	BinarizeLowContrastStd  = 30.0
	DeskewMaxAutoAngle      = 45.0
	SkewThreshold           = 2.0
)

// Algorithm parameters used by the auto paths.
const (
	autoCLAHEClip      = 3.0
	normalCLAHEClip    = 2.0
	darkGamma          = 1.5
	brightGamma        = 0.7
	bilateralDiameter  = 9
	bilateralSigma     = 75.0
	autoMedianKernel   = 5
	autoGaussianKernel = 3
	morphKernel        = 3
	adaptiveBlock      = 11
	adaptiveC          = 2.0
	nlmTemplate        = 7
	nlmSearch          = 21
	denoiseTile        = 64
)

// Enhance runs the named enhancement and returns the algorithm actually applied.
func Enhance(img *image.Gray, method string, p Preset, logger *slog.Logger) (*image.Gray, string) {
	tiles := p.CLAHETiles
	if tiles <= 0 {
		tiles = 8
	}
	clip := p.CLAHEClip
	if clip <= 0 {
		clip = autoCLAHEClip
	}
	if p.Brightness != 0 || p.Contrast != 0 {
		logger.Debug("adjusting brightness and contrast", "brightness", p.Brightness, "contrast", p.Contrast)
		img = imaging.AdjustBrightnessContrast(img, p.Brightness, p.Contrast)
	}
	switch method {
	case EnhanceCLAHE:
		return imaging.CLAHE(img, clip, tiles, tiles), EnhanceCLAHE
	case EnhanceHistogram:
		return imaging.EqualizeHistogram(img), EnhanceHistogram
	case EnhanceSharpen:
		return imaging.Sharpen(img, orDefault(p.SharpenStrength, 1)), EnhanceSharpen
	case EnhanceGamma:
		return imaging.Gamma(img, orDefault(p.Gamma, 1)), EnhanceGamma
	case EnhanceText:
		return imaging.EnhanceForText(img), EnhanceText
	case MethodAuto:
	default:
		logger.Warn("unknown enhancement method, using auto", "method", method)
	}

	s := imaging.Statistics(img)
	switch {
	case s.Std < EnhanceLowContrastStd:
		logger.Debug("low contrast detected, applying clahe", "mean", s.Mean, "std", s.Std)
		return imaging.CLAHE(img, autoCLAHEClip, tiles, tiles), EnhanceCLAHE
	case s.Mean < EnhanceDarkMean:
		logger.Debug("dark image detected, applying gamma", "mean", s.Mean, "std", s.Std, "gamma", darkGamma)
		return imaging.Gamma(img, darkGamma), EnhanceGamma
	case s.Mean > EnhanceBrightMean:
		logger.Debug("bright image detected, applying gamma", "mean", s.Mean, "std", s.Std, "gamma", brightGamma)
		return imaging.Gamma(img, brightGamma), EnhanceGamma
	default:
		logger.Debug("normal image, applying light clahe", "mean", s.Mean, "std", s.Std)
		return imaging.CLAHE(img, normalCLAHEClip, tiles, tiles), EnhanceCLAHE
	}
}

// Denoise runs the named denoiser and returns the algorithm actually applied.
func Denoise(img *image.Gray, method string, p Preset, logger *slog.Logger) (*image.Gray, string) {
	kernel := imaging.OddKernel(p.DenoiseKernel)
	switch method {
	case DenoiseGaussian:
		return imaging.GaussianBlur(img, kernel), DenoiseGaussian
	case DenoiseMedian:
		return imaging.MedianBlur(img, kernel), DenoiseMedian
	case DenoiseBilateral:
		return imaging.BilateralFilter(img, bilateralDiameter, bilateralSigma, bilateralSigma), DenoiseBilateral
	case DenoiseMorphology:
		return imaging.MorphClose(imaging.MorphOpen(img, morphKernel), morphKernel), DenoiseMorphology
	case DenoiseNLM:
		return imaging.NonLocalMeans(img, orDefault(p.NLMStrength, 10), nlmTemplate, nlmSearch), DenoiseNLM
	case DenoiseAdaptive:
		bands := imaging.NoiseBands{High: DenoiseHighNoise, Medium: DenoiseMediumNoise}
		return imaging.AdaptiveDenoise(img, denoiseTile, bands), DenoiseAdaptive
	case DenoiseSaltPepper:
		return imaging.RemoveSaltPepper(img, kernel), DenoiseSaltPepper
	case MethodAuto:
	default:
		logger.Warn("unknown denoising method, using auto", "method", method)
	}

	noise := imaging.LaplacianVariance(img)
	choice := AutoDenoiseMethod(noise)
	logger.Debug("auto denoise", "noise", noise, "method", choice)
	switch choice {
	case DenoiseBilateral:
		return imaging.BilateralFilter(img, bilateralDiameter, bilateralSigma, bilateralSigma), DenoiseBilateral
	case DenoiseMedian:
		return imaging.MedianBlur(img, autoMedianKernel), DenoiseMedian
	default:
		return imaging.GaussianBlur(img, autoGaussianKernel), DenoiseGaussian
	}
}

// AutoDenoiseMethod maps a Laplacian-variance noise estimate to a denoiser.
func AutoDenoiseMethod(noise float64) string {
	switch {
	case noise > DenoiseHighNoise:
		return DenoiseBilateral
	case noise > DenoiseMediumNoise:
		return DenoiseMedian
	default:
		return DenoiseGaussian
	}
}

// DeskewResult describes the rotation a deskew step applied.
type DeskewResult struct {
	Angle     float64
	Algorithm string
	Warning   string
}

// Deskew estimates and removes skew. It never fails: when no estimator produces an angle the
// input is returned unrotated with a warning.
func Deskew(img *image.Gray, method string, p Preset, logger *slog.Logger) (*image.Gray, DeskewResult) {
	rng := p.DeskewRange
	if rng <= 0 {
		rng = DeskewMaxAutoAngle
	}
	switch method {
	case DeskewHough:
		angle, n, err := imaging.DetectSkewHough(img, rng)
		if err != nil {
			logger.Warn("hough deskew found no lines, leaving image unrotated", "error", err)
			return img, DeskewResult{Algorithm: DeskewHough, Warning: err.Error()}
		}
		logger.Debug("hough deskew", "angle", angle, "lines", n)
		return imaging.Rotate(img, angle, imaging.White), DeskewResult{Angle: angle, Algorithm: DeskewHough}
	case DeskewProjection:
		angle, score, err := imaging.DetectSkewProjection(img, rng, p.DeskewStep)
		if err != nil {
			logger.Warn("projection deskew failed, leaving image unrotated", "error", err)
			return img, DeskewResult{Algorithm: DeskewProjection, Warning: err.Error()}
		}
		logger.Debug("projection deskew", "angle", angle, "score", score)
		return imaging.Rotate(img, angle, imaging.White), DeskewResult{Angle: angle, Algorithm: DeskewProjection}
	case DeskewContour:
		angle, err := imaging.DetectSkewContour(img)
		if err != nil {
			logger.Warn("contour deskew failed, leaving image unrotated", "error", err)
			return img, DeskewResult{Algorithm: DeskewContour, Warning: err.Error()}
		}
		logger.Debug("contour deskew", "angle", angle)
		return imaging.Rotate(img, angle, imaging.White), DeskewResult{Angle: angle, Algorithm: DeskewContour}
	case MethodAuto:
	default:
		logger.Warn("unknown deskew method, using auto", "method", method)
	}

	angle, n, err := imaging.DetectSkewHough(img, rng)
	if err == nil && math.Abs(angle) < DeskewMaxAutoAngle {
		logger.Debug("using hough deskew", "angle", angle, "lines", n)
		return imaging.Rotate(img, angle, imaging.White), DeskewResult{Angle: angle, Algorithm: DeskewHough}
	}
	logger.Debug("hough deskew unusable, trying projection", "angle", angle, "error", err)

	angle, score, perr := imaging.DetectSkewProjection(img, rng, p.DeskewStep)
	if perr == nil {
		logger.Debug("using projection deskew", "angle", angle, "score", score)
		return imaging.Rotate(img, angle, imaging.White), DeskewResult{Angle: angle, Algorithm: DeskewProjection}
	}

	logger.Warn("deskew failed, returning original image", "hough_error", err, "projection_error", perr)
	return img, DeskewResult{Algorithm: MethodAuto, Warning: "deskew failed: " + perr.Error()}
}

// IsSkewed reports whether the auto estimator sees a rotation larger than threshold degrees.
func IsSkewed(img *image.Gray, threshold float64, logger *slog.Logger) (bool, float64) {
	if threshold <= 0 {
		threshold = SkewThreshold
	}
	_, res := Deskew(img, MethodAuto, base(DefaultPreset), logger)
	return math.Abs(res.Angle) > threshold, res.Angle
}

// Binarize runs the named binarizer and returns the algorithm actually applied.
func Binarize(img *image.Gray, method string, p Preset, logger *slog.Logger) (*image.Gray, string) {
	block := adaptiveBlock
	if p.AdaptiveBlock > 0 {
		block = imaging.OddKernel(p.AdaptiveBlock)
	}
	params := binarizeParams{
		window: imaging.OddKernel(p.BinarizeWindow),
		block:  block,
		k:      p.BinarizeK,
		r:      p.BinarizeR,
		nk:     p.NiblackK,
		c:      p.AdaptiveC,
	}
	out, algo := binarize(img, method, params, logger)
	if p.CleanMinArea > 0 {
		out = imaging.CleanBinary(out, p.CleanMinArea)
	}
	return out, algo
}

type binarizeParams struct {
	window, block int
	k, r, nk, c   float64
}

func binarize(img *image.Gray, method string, bp binarizeParams, logger *slog.Logger) (*image.Gray, string) {
	switch method {
	case BinarizeOtsu:
		out, _ := imaging.Otsu(img, false)
		return out, BinarizeOtsu
	case BinarizeAdaptive:
		return imaging.AdaptiveThreshold(img, bp.block, bp.c, imaging.AdaptiveGaussian), BinarizeAdaptive
	case BinarizeSauvola:
		return imaging.Sauvola(img, bp.window, bp.k, bp.r), BinarizeSauvola
	case BinarizeNiblack:
		return imaging.Niblack(img, bp.window, bp.nk), BinarizeNiblack
	case BinarizeTriangle:
		return imaging.Threshold(img, imaging.TriangleThreshold(img), false), BinarizeTriangle
	case BinarizeMultiScale:
		return imaging.MultiScaleAdaptive(img, nil, bp.c), BinarizeMultiScale
	case MethodAuto:
	default:
		logger.Warn("unknown binarization method, using auto", "method", method)
	}

	s := imaging.Statistics(img)
	choice := AutoBinarizeMethod(s.Std)
	logger.Debug("auto binarize", "std", s.Std, "method", choice)
	switch choice {
	case BinarizeOtsu:
		out, _ := imaging.Otsu(img, false)
		return out, BinarizeOtsu
	case BinarizeAdaptive:
		return imaging.AdaptiveThreshold(img, adaptiveBlock, bp.c, imaging.AdaptiveGaussian), BinarizeAdaptive
	default:
		return imaging.Sauvola(img, 15, 0.2, 128), BinarizeSauvola
	}
}

// AutoBinarizeMethod maps global contrast (standard deviation) to a binarizer.
func AutoBinarizeMethod(std float64) string {
	switch {
	case std > BinarizeHighContrastStd:
		return BinarizeOtsu
	case std < BinarizeLowContrastStd:
		return BinarizeAdaptive
	default:
		return BinarizeSauvola
	}
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
