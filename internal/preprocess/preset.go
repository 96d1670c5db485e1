package preprocess

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
)

// DefaultPreset is used when a preset name is empty or unknown.
const DefaultPreset = "general"

// Preset selects, per transform family, whether it runs and which algorithm it uses.
type Preset struct {
	Name string `json:"name"`

	Enhance       bool    `json:"enhance"`
	EnhanceMethod string  `json:"enhance_method"`
	CLAHEClip     float64 `json:"clahe_clip"`
	CLAHETiles    int     `json:"clahe_tiles"`

	// Gamma and SharpenStrength parameterise the explicit gamma and sharpen methods.
	Gamma           float64 `json:"gamma"`
	SharpenStrength float64 `json:"sharpen_strength"`

	// Brightness and Contrast, when non-zero, adjust levels before the enhancement method.
	Brightness int `json:"brightness"`
	Contrast   int `json:"contrast"`

	Denoise       bool    `json:"denoise"`
	DenoiseMethod string  `json:"denoise_method"`
	DenoiseKernel int     `json:"denoise_kernel"`
	NLMStrength   float64 `json:"nlm_strength"`

	Deskew       bool    `json:"deskew"`
	DeskewMethod string  `json:"deskew_method"`
	DeskewRange  float64 `json:"deskew_range"`
	DeskewStep   float64 `json:"deskew_step"`

	Binarize       bool    `json:"binarize"`
	BinarizeMethod string  `json:"binarize_method"`
	BinarizeWindow int     `json:"binarize_window"`
	BinarizeK      float64 `json:"binarize_k"`
	BinarizeR      float64 `json:"binarize_r"`
	AdaptiveBlock  int     `json:"adaptive_block"`
	AdaptiveC      float64 `json:"adaptive_c"`
	NiblackK       float64 `json:"niblack_k"`
	CleanMinArea   int     `json:"clean_min_area"`
}

// Overrides replaces individual preset fields; nil fields keep the preset value.
type Overrides struct {
	Enhance       *bool    `json:"enhance,omitempty"`
	EnhanceMethod *string  `json:"enhance_method,omitempty"`
	CLAHEClip     *float64 `json:"clahe_clip,omitempty"`
	CLAHETiles    *int     `json:"clahe_tiles,omitempty"`

	Gamma           *float64 `json:"gamma,omitempty"`
	SharpenStrength *float64 `json:"sharpen_strength,omitempty"`
	Brightness      *int     `json:"brightness,omitempty"`
	Contrast        *int     `json:"contrast,omitempty"`

	Denoise       *bool    `json:"denoise,omitempty"`
	DenoiseMethod *string  `json:"denoise_method,omitempty"`
	DenoiseKernel *int     `json:"denoise_kernel,omitempty"`
	NLMStrength   *float64 `json:"nlm_strength,omitempty"`

	Deskew       *bool    `json:"deskew,omitempty"`
	DeskewMethod *string  `json:"deskew_method,omitempty"`
	DeskewRange  *float64 `json:"deskew_range,omitempty"`
	DeskewStep   *float64 `json:"deskew_step,omitempty"`

	Binarize       *bool    `json:"binarize,omitempty"`
	BinarizeMethod *string  `json:"binarize_method,omitempty"`
	BinarizeWindow *int     `json:"binarize_window,omitempty"`
	BinarizeK      *float64 `json:"binarize_k,omitempty"`
	BinarizeR      *float64 `json:"binarize_r,omitempty"`
	AdaptiveBlock  *int     `json:"adaptive_block,omitempty"`
	AdaptiveC      *float64 `json:"adaptive_c,omitempty"`
	NiblackK       *float64 `json:"niblack_k,omitempty"`
	CleanMinArea   *int     `json:"clean_min_area,omitempty"`
}

func base(name string) Preset {
	return Preset{
		Name:            name,
		Enhance:         true,
		EnhanceMethod:   MethodAuto,
		CLAHEClip:       3.0,
		CLAHETiles:      8,
		Gamma:           1.0,
		SharpenStrength: 1.0,
		Denoise:         true,
		DenoiseMethod:   MethodAuto,
		DenoiseKernel:   5,
		NLMStrength:     10,
		Deskew:          true,
		DeskewMethod:    MethodAuto,
		DeskewRange:     45,
		DeskewStep:      0.5,
		Binarize:        true,
		BinarizeMethod:  MethodAuto,
		BinarizeWindow:  15,
		BinarizeK:       0.2,
		BinarizeR:       128,
		AdaptiveBlock:   11,
		AdaptiveC:       adaptiveC,
		NiblackK:        -0.2,
	}
}

var catalog = func() map[string]Preset {
	general := base("general")

	form := base("form")
	form.DenoiseMethod = DenoiseMedian
	form.DeskewMethod = DeskewHough
	form.BinarizeMethod = BinarizeSauvola

	handwritten := base("handwritten")
	handwritten.EnhanceMethod = EnhanceCLAHE
	handwritten.CLAHEClip = 2.0
	handwritten.DenoiseMethod = DenoiseBilateral
	handwritten.DeskewMethod = DeskewProjection
	handwritten.BinarizeMethod = BinarizeAdaptive
	handwritten.AdaptiveBlock = 21

	lowQuality := base("low_quality")
	lowQuality.EnhanceMethod = EnhanceCLAHE
	lowQuality.CLAHEClip = 4.0
	lowQuality.BinarizeMethod = BinarizeSauvola
	lowQuality.CleanMinArea = 20

	photo := base("photo")
	photo.DenoiseMethod = DenoiseBilateral
	photo.DeskewMethod = DeskewHough
	photo.BinarizeMethod = BinarizeAdaptive

	return map[string]Preset{
		general.Name:     general,
		form.Name:        form,
		handwritten.Name: handwritten,
		lowQuality.Name:  lowQuality,
		photo.Name:       photo,
	}
}()

// LookupPreset returns the named preset, falling back to general for empty or unknown names.
func LookupPreset(name string) (Preset, bool) {
	p, ok := catalog[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return catalog[DefaultPreset], false
	}
	return p, true
}

// PresetNames lists the catalog, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(catalog))
	for n := range catalog {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Apply returns a copy of p with every non-nil override applied.
func (p Preset) Apply(o Overrides) Preset {
	setBool(&p.Enhance, o.Enhance)
	setString(&p.EnhanceMethod, o.EnhanceMethod)
	setFloat(&p.CLAHEClip, o.CLAHEClip)
	setInt(&p.CLAHETiles, o.CLAHETiles)
	setFloat(&p.Gamma, o.Gamma)
	setFloat(&p.SharpenStrength, o.SharpenStrength)
	setInt(&p.Brightness, o.Brightness)
	setInt(&p.Contrast, o.Contrast)
	setBool(&p.Denoise, o.Denoise)
	setString(&p.DenoiseMethod, o.DenoiseMethod)
	setInt(&p.DenoiseKernel, o.DenoiseKernel)
	setFloat(&p.NLMStrength, o.NLMStrength)
	setBool(&p.Deskew, o.Deskew)
	setString(&p.DeskewMethod, o.DeskewMethod)
	setFloat(&p.DeskewRange, o.DeskewRange)
	setFloat(&p.DeskewStep, o.DeskewStep)
	setBool(&p.Binarize, o.Binarize)
	setString(&p.BinarizeMethod, o.BinarizeMethod)
	setInt(&p.BinarizeWindow, o.BinarizeWindow)
	setFloat(&p.BinarizeK, o.BinarizeK)
	setFloat(&p.BinarizeR, o.BinarizeR)
	setInt(&p.AdaptiveBlock, o.AdaptiveBlock)
	setFloat(&p.AdaptiveC, o.AdaptiveC)
	setFloat(&p.NiblackK, o.NiblackK)
	setInt(&p.CleanMinArea, o.CleanMinArea)
	return p
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.ToLower(strings.TrimSpace(*v))
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

var overridesSchema = map[string]any{
	"$schema":              "http://json-schema.org/draft-07/schema#",
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"enhance":          map[string]any{"type": "boolean"},
		"enhance_method":   map[string]any{"enum": enhanceMethods},
		"clahe_clip":       map[string]any{"type": "number", "minimum": 0},
		"clahe_tiles":      map[string]any{"type": "integer", "minimum": 1, "maximum": 64},
		"gamma":            map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 10},
		"sharpen_strength": map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 5},
		"brightness":       map[string]any{"type": "integer", "minimum": -255, "maximum": 255},
		"contrast":         map[string]any{"type": "integer", "minimum": -255, "maximum": 255},
		"denoise":          map[string]any{"type": "boolean"},
		"denoise_method":   map[string]any{"enum": denoiseMethods},
		"denoise_kernel":   map[string]any{"type": "integer", "minimum": 1, "maximum": 31},
		"nlm_strength":     map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 100},
		"deskew":           map[string]any{"type": "boolean"},
		"deskew_method":    map[string]any{"enum": deskewMethods},
		"deskew_range":     map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 90},
		"deskew_step":      map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 10},
		"binarize":         map[string]any{"type": "boolean"},
		"binarize_method":  map[string]any{"enum": binarizeMethods},
		"binarize_window":  map[string]any{"type": "integer", "minimum": 3, "maximum": 255},
		"binarize_k":       map[string]any{"type": "number"},
		"binarize_r":       map[string]any{"type": "number", "exclusiveMinimum": 0},
		"adaptive_block":   map[string]any{"type": "integer", "minimum": 3, "maximum": 255},
		"adaptive_c":       map[string]any{"type": "number", "minimum": -50, "maximum": 50},
		"niblack_k":        map[string]any{"type": "number", "minimum": -1, "maximum": 1},
		"clean_min_area":   map[string]any{"type": "integer", "minimum": 0},
	},
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// ParseOverrides validates raw JSON against the overrides schema and decodes it.
func ParseOverrides(data []byte) (Overrides, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = common.CompileSchema("preset_overrides.json", overridesSchema)
	})
	if schemaErr != nil {
		return Overrides{}, common.Internal(schemaErr, "compile overrides schema")
	}
	if err := common.ValidateJSON(compiledSchema, data); err != nil {
		return Overrides{}, err
	}
	var o Overrides
	if err := json.Unmarshal(data, &o); err != nil {
		return Overrides{}, common.NewValidationError("decode overrides: " + err.Error())
	}
	return o, nil
}
