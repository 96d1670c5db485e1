// Package pipeline classifies documents, routes them through direct text
// extraction or rasterize, preprocess and recognize, and aggregates page
// results into document and batch results.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pdf"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/preprocess"
)

// TextLayerEngine names the pseudo engine of pages read from an embedded text layer.
const TextLayerEngine = "pdf_text"

// ImageStore loads and saves page images.
type ImageStore interface {
	LoadImage(ctx context.Context, path string) (image.Image, error)
	SaveImage(path string, img image.Image) error
}

// Preprocessor prepares a page image for recognition.
type Preprocessor interface {
	Enabled() bool
	Process(ctx context.Context, img image.Image, preset preprocess.Preset) (*image.Gray, preprocess.Report, error)
}

// Options are the orchestrator-wide defaults.
type Options struct {
	DefaultEngine string
	Language      string
	DefaultPreset string
	DPI           int
	SamplePages   int
	TextThreshold int
	Parallel      bool
	MaxParallel   int
	KeepArtifacts bool
	OutputDir     string
}

// OptionsFromConfig maps the application config onto orchestrator defaults.
func OptionsFromConfig(cfg *common.Config) Options {
	return Options{
		DefaultEngine: cfg.OCR.DefaultEngine,
		Language:      cfg.OCR.Language,
		DefaultPreset: cfg.Preprocess.Preset,
		DPI:           cfg.PDF.DPI,
		SamplePages:   cfg.PDF.SamplePages,
		TextThreshold: cfg.PDF.TextThreshold,
		Parallel:      cfg.OCR.Parallel,
		MaxParallel:   cfg.OCR.MaxParallel,
		KeepArtifacts: cfg.Preprocess.KeepArtifacts,
		OutputDir:     cfg.Storage.OutputDir,
	}
}

func (o Options) withDefaults() Options {
	if o.DefaultEngine == "" {
		o.DefaultEngine = ocr.TesseractName
	}
	if o.Language == "" {
		o.Language = ocr.DefaultLanguage
	}
	if o.DefaultPreset == "" {
		o.DefaultPreset = preprocess.DefaultPreset
	}
	if o.DPI <= 0 {
		o.DPI = 300
	}
	if o.SamplePages <= 0 {
		o.SamplePages = 3
	}
	if o.TextThreshold <= 0 {
		o.TextThreshold = 50
	}
	if o.OutputDir == "" {
		o.OutputDir = "./output"
	}
	return o
}

// DocumentOptions tune one ProcessDocument call. Zero values fall back to
// the orchestrator defaults; preprocessing runs unless SkipPreprocessing is set.
type DocumentOptions struct {
	Engine            string
	Language          string
	Preset            string
	Overrides         *preprocess.Overrides
	SkipPreprocessing bool
	Parallel          bool
	MaxParallel       int
	DPI               int
}

// PageOptions tune one ProcessPage call. Preprocessing is off unless requested.
type PageOptions struct {
	Engine     string
	Language   string
	Preprocess bool
	Preset     string
	Overrides  *preprocess.Overrides
	PageNumber int
}

// PagesOptions tune one ProcessPages call.
type PagesOptions struct {
	Engine      string
	Language    string
	Parallel    bool
	MaxParallel int
	Preprocess  bool
	Preset      string
	Overrides   *preprocess.Overrides
}

// BatchOptions tune one ProcessBatch call. Merge concatenates the inputs into
// one logical document; otherwise each input is processed on its own.
type BatchOptions struct {
	Merge    bool
	Document DocumentOptions
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Source       pdf.Source
	Registry     *ocr.Registry
	Preprocessor Preprocessor
	Images       ImageStore
	Logger       *slog.Logger
}

// Orchestrator runs documents through the pipeline. It owns the engine cache.
type Orchestrator struct {
	opts   Options
	source pdf.Source
	reg    *ocr.Registry
	pre    Preprocessor
	images ImageStore
	cache  *EngineCache
	logger *slog.Logger
}

func NewOrchestrator(opts Options, deps Deps) (*Orchestrator, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Source == nil || deps.Registry == nil || deps.Images == nil {
		return nil, fmt.Errorf("pipeline: source, registry and image store are required")
	}
	opts = opts.withDefaults()
	o := &Orchestrator{
		opts:   opts,
		source: deps.Source,
		reg:    deps.Registry,
		pre:    deps.Preprocessor,
		images: deps.Images,
		cache:  NewEngineCache(deps.Registry, deps.Logger),
		logger: deps.Logger,
	}
	o.logger.Info("orchestrator initialized",
		"default_engine", opts.DefaultEngine,
		"language", opts.Language,
		"dpi", opts.DPI,
		"preset", opts.DefaultPreset,
	)
	return o, nil
}

// job is the resolved per-call state shared by the pages of one document.
type job struct {
	id          string
	engineName  string
	language    string
	engine      ocr.Engine
	preset      preprocess.Preset
	preprocess  bool
	dpi         int
	parallel    bool
	maxParallel int
	artifacts   string
}

// ProcessDocument classifies and processes a PDF or a single image file.
// Document-level failures are returned; page-level failures are recorded on
// the affected pages.
func (o *Orchestrator) ProcessDocument(ctx context.Context, path string, opts DocumentOptions) (*DocumentResult, error) {
	start := time.Now()
	if strings.TrimSpace(path) == "" {
		return nil, common.NewValidationError("document path is required")
	}
	if opts.MaxParallel < 0 || opts.DPI < 0 {
		return nil, common.NewValidationError("max parallel and dpi must not be negative")
	}
	id := uuid.NewString()
	ctx = common.WithDocumentID(ctx, id)
	logger := common.LoggerFromContext(ctx, o.logger).With("path", path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NewFileNotFound(path)
		}
		return nil, common.Internal(err, "stat "+path)
	}

	j := &job{
		id:          id,
		engineName:  firstNonEmpty(opts.Engine, o.opts.DefaultEngine),
		language:    firstNonEmpty(opts.Language, o.opts.Language),
		preset:      o.resolvePreset(opts.Preset, opts.Overrides, logger),
		preprocess:  !opts.SkipPreprocessing && o.preprocessing(),
		dpi:         firstPositive(opts.DPI, o.opts.DPI),
		parallel:    opts.Parallel || o.opts.Parallel,
		maxParallel: firstPositive(opts.MaxParallel, o.opts.MaxParallel),
	}

	var (
		res *DocumentResult
		err error
	)
	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = o.processPDF(ctx, path, j, logger)
	case constants.IMAGE:
		res, err = o.processImageDocument(ctx, path, j, logger)
	default:
		return nil, common.NewUnsupportedFormat(path, ext)
	}
	if err != nil {
		err = common.Internal(err, "process "+path)
		if common.KindOf(err) == common.KindCanceled {
			logger.Warn("document processing stopped", "error", err)
		} else {
			logger.Error("document processing failed", "error", err)
		}
		return nil, err
	}

	res.ID = id
	res.SourcePath = path
	res.Duration = time.Since(start)
	res.CreatedAt = time.Now().UTC()
	if res.TotalCharacters < 10 {
		logger.Warn("very little text found", "characters", res.TotalCharacters)
	}
	logger.Info("document processed",
		"method", res.ProcessingMethod,
		"pages", res.PageCount,
		"failed_pages", res.FailedPages(),
		"characters", res.TotalCharacters,
		"avg_confidence", res.AverageConfidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) processPDF(ctx context.Context, path string, j *job, logger *slog.Logger) (*DocumentResult, error) {
	doc, err := o.source.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	n := o.source.PageCount(doc)
	if n <= 0 {
		return nil, common.NewDocumentError(common.ErrEmptyDocument, path, nil)
	}

	scanned, sampled := o.classify(ctx, doc, n, logger)
	if !scanned {
		return o.extractText(ctx, doc, n, sampled, logger)
	}

	eng, err := o.cache.Get(ctx, j.engineName, j.language)
	if err != nil {
		return nil, err
	}
	j.engine = eng
	if err := o.prepareArtifacts(j); err != nil {
		return nil, err
	}

	logger.Info("running ocr pipeline", "pages", n, "engine", j.engineName, "preset", j.preset.Name, "preprocess", j.preprocess, "parallel", j.parallel)
	pages, err := o.runPages(ctx, n, j, func(ctx context.Context, i int) ocr.PageResult {
		return o.scannedPage(ctx, doc, i+1, j)
	})
	if err != nil {
		return nil, err
	}
	return o.documentFrom(pages, true, constants.MethodOCRPipeline, j.preset.Name), nil
}

// processImageDocument treats an image file as a one-page scanned document.
func (o *Orchestrator) processImageDocument(ctx context.Context, path string, j *job, logger *slog.Logger) (*DocumentResult, error) {
	eng, err := o.cache.Get(ctx, j.engineName, j.language)
	if err != nil {
		return nil, err
	}
	j.engine = eng
	if err := o.prepareArtifacts(j); err != nil {
		return nil, err
	}
	logger.Info("running ocr pipeline on image", "engine", j.engineName, "preset", j.preset.Name, "preprocess", j.preprocess)
	page := o.safePage(ctx, 1, path, j, func(ctx context.Context) ocr.PageResult {
		img, err := o.images.LoadImage(ctx, path)
		if err != nil {
			return ocr.FailedPage(1, path, j.engineName, j.language, err)
		}
		return o.recognizeImage(ctx, img, 1, path, j)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.documentFrom([]ocr.PageResult{page}, true, constants.MethodOCRPipeline, j.preset.Name), nil
}

// classify samples the first pages' text layer. A document whose sampled
// pages average fewer than TextThreshold trimmed characters, or whose text
// layer cannot be read, is scanned.
func (o *Orchestrator) classify(ctx context.Context, doc *pdf.Document, pages int, logger *slog.Logger) (bool, map[int]string) {
	sample := min(o.opts.SamplePages, pages)
	texts := make(map[int]string, sample)
	total := 0
	for p := 1; p <= sample; p++ {
		txt, err := o.source.ExtractText(ctx, doc, p)
		if err != nil {
			logger.Warn("text layer unreadable, treating document as scanned", "page", p, "error", err)
			return true, nil
		}
		texts[p] = txt
		total += utf8.RuneCountInString(strings.TrimSpace(txt))
	}
	avg := float64(total) / float64(sample)
	scanned := avg < float64(o.opts.TextThreshold)
	logger.Info("document classified", "sampled_pages", sample, "avg_chars", avg, "is_scanned", scanned)
	return scanned, texts
}

// extractText builds page results from the embedded text layer.
func (o *Orchestrator) extractText(ctx context.Context, doc *pdf.Document, pages int, known map[int]string, logger *slog.Logger) (*DocumentResult, error) {
	results := make([]ocr.PageResult, pages)
	for p := 1; p <= pages; p++ {
		txt, ok := known[p]
		if !ok {
			var err error
			txt, err = o.source.ExtractText(ctx, doc, p)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn("page text extraction failed", "page", p, "error", err)
				results[p-1] = ocr.FailedPage(p, "", TextLayerEngine, "", err)
				continue
			}
		}
		txt = strings.TrimSpace(txt)
		r := ocr.NewPageResult(txt, nil, TextLayerEngine, "")
		r.PageNumber = p
		r.Confidence = 100
		r.Metadata["source"] = "text_layer"
		results[p-1] = r
	}
	return o.documentFrom(results, false, constants.MethodDirectText, ""), nil
}

// scannedPage rasterizes, preprocesses and recognizes one PDF page.
func (o *Orchestrator) scannedPage(ctx context.Context, doc *pdf.Document, page int, j *job) ocr.PageResult {
	return o.safePage(ctx, page, "", j, func(ctx context.Context) ocr.PageResult {
		img, err := o.source.Rasterize(ctx, doc, page, j.dpi)
		if err != nil {
			return ocr.FailedPage(page, "", j.engineName, j.language, err)
		}
		var imagePath string
		if j.artifacts != "" {
			imagePath = filepath.Join(j.artifacts, fmt.Sprintf("page_%04d.png", page))
			if err := o.images.SaveImage(imagePath, img); err != nil {
				return ocr.FailedPage(page, imagePath, j.engineName, j.language, err)
			}
		}
		res := o.recognizeImage(ctx, img, page, imagePath, j)
		res.Metadata["dpi"] = j.dpi
		res.Metadata["zoom"] = pdf.Zoom(j.dpi)
		return res
	})
}

// recognizeImage runs preprocessing (when enabled) and recognition on img.
func (o *Orchestrator) recognizeImage(ctx context.Context, img image.Image, page int, imagePath string, j *job) ocr.PageResult {
	var report *preprocess.Report
	if j.preprocess {
		processed, rep, err := o.pre.Process(ctx, img, j.preset)
		if err != nil {
			return ocr.FailedPage(page, imagePath, j.engineName, j.language, err)
		}
		img, report = processed, &rep
		if j.artifacts != "" {
			imagePath = filepath.Join(j.artifacts, fmt.Sprintf("page_%04d_processed.png", page))
			if err := o.images.SaveImage(imagePath, processed); err != nil {
				return ocr.FailedPage(page, imagePath, j.engineName, j.language, err)
			}
		}
	}

	res, err := j.engine.Recognize(ctx, img)
	if err != nil {
		return ocr.FailedPage(page, imagePath, j.engineName, j.language, err)
	}
	res.PageNumber = page
	res.ImagePath = imagePath
	if res.Metadata == nil {
		res.Metadata = map[string]any{}
	}
	res.Metadata["preprocessed"] = report != nil
	if report != nil {
		res.Metadata["preprocessing"] = report.Metadata()
	}
	return res
}

// safePage converts panics in fn into a failed page.
func (o *Orchestrator) safePage(ctx context.Context, page int, imagePath string, j *job, fn func(context.Context) ocr.PageResult) (res ocr.PageResult) {
	defer func() {
		if rec := recover(); rec != nil {
			common.LoggerFromContext(ctx, o.logger).Error("page processing panicked",
				"page", page, "panic", rec, "stack", string(debug.Stack()))
			res = ocr.FailedPage(page, imagePath, j.engineName, j.language, fmt.Errorf("internal error: %v", rec))
		}
	}()
	res = fn(ctx)
	if res.Failed() {
		common.LoggerFromContext(ctx, o.logger).Warn("page failed", "page", page, "error", res.Error)
	}
	return res
}

// runPages calls fn for pages 0..n-1 sequentially or fanned out, writing each
// result at its page index. Only context cancellation is returned as an error.
func (o *Orchestrator) runPages(ctx context.Context, n int, j *job, fn func(context.Context, int) ocr.PageResult) ([]ocr.PageResult, error) {
	results := make([]ocr.PageResult, n)
	if !j.parallel || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = fn(ctx, i)
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if j.maxParallel > 0 {
		g.SetLimit(j.maxParallel)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i] = fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) documentFrom(pages []ocr.PageResult, scanned bool, method, preset string) *DocumentResult {
	agg := AggregatePages(pages)
	return &DocumentResult{
		IsScanned:         scanned,
		ProcessingMethod:  method,
		PageCount:         agg.PageCount,
		TotalCharacters:   agg.TotalCharacters,
		TotalWords:        agg.TotalWords,
		AverageConfidence: agg.AverageConfidence,
		Text:              agg.Text,
		Pages:             pages,
		Engine:            agg.Engine,
		Language:          agg.Language,
		Preset:            preset,
	}
}

// ProcessPage recognizes a single image file. Failures are returned, not
// recorded on the result.
func (o *Orchestrator) ProcessPage(ctx context.Context, path string, opts PageOptions) (ocr.PageResult, error) {
	if strings.TrimSpace(path) == "" {
		return ocr.PageResult{}, common.NewValidationError("image path is required")
	}
	logger := common.LoggerFromContext(ctx, o.logger).With("path", path)
	j := &job{
		engineName: firstNonEmpty(opts.Engine, o.opts.DefaultEngine),
		language:   firstNonEmpty(opts.Language, o.opts.Language),
		preset:     o.resolvePreset(opts.Preset, opts.Overrides, logger),
		preprocess: opts.Preprocess && o.preprocessing(),
	}
	img, err := o.images.LoadImage(ctx, path)
	if err != nil {
		return ocr.PageResult{}, err
	}
	eng, err := o.cache.Get(ctx, j.engineName, j.language)
	if err != nil {
		return ocr.PageResult{}, err
	}
	j.engine = eng

	page := max(opts.PageNumber, 1)
	res := o.safePage(ctx, page, path, j, func(ctx context.Context) ocr.PageResult {
		return o.recognizeImage(ctx, img, page, path, j)
	})
	if res.Failed() {
		return res, common.NewRecognitionError(j.engineName, errors.New(res.Error))
	}
	logger.Info("page processed", "confidence", res.Confidence, "words", res.WordCount)
	return res, nil
}

// ProcessPages recognizes image files in order. A page that cannot be loaded
// or recognized becomes an error-flagged result; an unusable engine fails the call.
func (o *Orchestrator) ProcessPages(ctx context.Context, paths []string, opts PagesOptions) ([]ocr.PageResult, error) {
	if opts.MaxParallel < 0 {
		return nil, common.NewValidationError("max parallel must not be negative")
	}
	logger := common.LoggerFromContext(ctx, o.logger)
	j := &job{
		engineName:  firstNonEmpty(opts.Engine, o.opts.DefaultEngine),
		language:    firstNonEmpty(opts.Language, o.opts.Language),
		preset:      o.resolvePreset(opts.Preset, opts.Overrides, logger),
		preprocess:  opts.Preprocess && o.preprocessing(),
		parallel:    opts.Parallel,
		maxParallel: opts.MaxParallel,
	}
	eng, err := o.cache.Get(ctx, j.engineName, j.language)
	if err != nil {
		return nil, err
	}
	j.engine = eng

	logger.Info("processing pages", "count", len(paths), "engine", j.engineName, "parallel", j.parallel)
	results, err := o.runPages(ctx, len(paths), j, func(ctx context.Context, i int) ocr.PageResult {
		path := paths[i]
		return o.safePage(ctx, i+1, path, j, func(ctx context.Context) ocr.PageResult {
			img, err := o.images.LoadImage(ctx, path)
			if err != nil {
				return ocr.FailedPage(i+1, path, j.engineName, j.language, err)
			}
			return o.recognizeImage(ctx, img, i+1, path, j)
		})
	})
	if err != nil {
		return nil, common.Internal(err, "process pages")
	}
	return results, nil
}

// ProcessBatch processes several documents, either merged into one or one by one.
func (o *Orchestrator) ProcessBatch(ctx context.Context, paths []string, opts BatchOptions) (*BatchResult, error) {
	if len(paths) == 0 {
		return nil, common.NewValidationError("batch needs at least one document")
	}
	logger := common.LoggerFromContext(ctx, o.logger)
	batchID := uuid.NewString()
	logger.Info("processing batch", "batch_id", batchID, "documents", len(paths), "merge", opts.Merge)

	if opts.Merge && len(paths) > 1 {
		for _, p := range paths {
			if ext := constants.NormalizeExt(filepath.Ext(p)); constants.MapExtToFormat(ext) != constants.PDF {
				return nil, common.NewUnsupportedFormat(p, ext)
			}
		}
		stem := strings.TrimSuffix(filepath.Base(paths[0]), filepath.Ext(paths[0]))
		out := filepath.Join(o.opts.OutputDir, "merged", fmt.Sprintf("merged_%s_%s.pdf", stem, batchID[:8]))
		merged, err := o.source.Merge(ctx, paths, out)
		if err != nil {
			return nil, err
		}
		doc, err := o.ProcessDocument(ctx, merged.Path, opts.Document)
		if err != nil {
			return nil, err
		}
		res := SummarizeBatch([]*DocumentResult{doc})
		res.ID = batchID
		res.Merged = true
		return &res, nil
	}

	docs := make([]*DocumentResult, 0, len(paths))
	for _, p := range paths {
		doc, err := o.ProcessDocument(ctx, p, opts.Document)
		if err != nil {
			logger.Error("batch document failed", "batch_id", batchID, "path", p, "error", err)
			return nil, err
		}
		docs = append(docs, doc)
	}
	res := SummarizeBatch(docs)
	res.ID = batchID
	logger.Info("batch processed", "batch_id", batchID, "pages", res.TotalPages, "avg_confidence", res.AverageConfidence)
	return &res, nil
}

// SplitDocument writes path into chunks of pagesPerChunk pages under outDir.
func (o *Orchestrator) SplitDocument(ctx context.Context, path string, pagesPerChunk int, outDir string) ([]string, error) {
	if pagesPerChunk <= 0 {
		return nil, common.NewValidationError(fmt.Sprintf("pages per chunk must be positive, got %d", pagesPerChunk))
	}
	if outDir == "" {
		outDir = filepath.Join(o.opts.OutputDir, "split")
	}
	doc, err := o.source.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	chunks, err := o.source.Split(ctx, doc, pagesPerChunk, outDir)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Path
	}
	return out, nil
}

// ListAvailableEngines checks every registered engine.
func (o *Orchestrator) ListAvailableEngines(ctx context.Context) map[string]bool {
	avail := o.reg.Availability(ctx)
	up := 0
	for _, ok := range avail {
		if ok {
			up++
		}
	}
	o.logger.Info("available engines", "available", up, "registered", len(avail))
	return avail
}

// ValidateEngine reports whether name can be created and initialized for the
// default language. A successful check leaves the engine cached.
func (o *Orchestrator) ValidateEngine(ctx context.Context, name string) bool {
	if !o.reg.Has(name) {
		o.logger.Warn("engine not registered", "engine", name, "registered", o.reg.Names())
		return false
	}
	if _, err := o.cache.Get(ctx, name, o.opts.Language); err != nil {
		o.logger.Warn("engine validation failed", "engine", name, "error", err)
		return false
	}
	return true
}

// DescribeEngine returns the descriptor of name without failing.
func (o *Orchestrator) DescribeEngine(ctx context.Context, name string) ocr.Descriptor {
	return o.reg.Describe(ctx, name)
}

// ServiceInfo reports the orchestrator defaults and cache contents.
type ServiceInfo struct {
	DefaultEngine        string   `json:"default_engine"`
	PreprocessingEnabled bool     `json:"preprocessing_enabled"`
	DefaultPreset        string   `json:"default_preset"`
	DefaultDPI           int      `json:"default_dpi"`
	SupportedLanguages   []string `json:"supported_languages"`
	RegisteredEngines    []string `json:"registered_engines"`
	CachedEngines        []string `json:"cached_engines"`
}

func (o *Orchestrator) Info() ServiceInfo {
	var langs []string
	for _, l := range strings.Split(o.opts.Language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return ServiceInfo{
		DefaultEngine:        o.opts.DefaultEngine,
		PreprocessingEnabled: o.preprocessing(),
		DefaultPreset:        o.opts.DefaultPreset,
		DefaultDPI:           o.opts.DPI,
		SupportedLanguages:   langs,
		RegisteredEngines:    o.reg.Names(),
		CachedEngines:        o.cache.Keys(),
	}
}

func (o *Orchestrator) preprocessing() bool {
	return o.pre != nil && o.pre.Enabled()
}

func (o *Orchestrator) resolvePreset(name string, overrides *preprocess.Overrides, logger *slog.Logger) preprocess.Preset {
	name = firstNonEmpty(name, o.opts.DefaultPreset)
	p, ok := preprocess.LookupPreset(name)
	if !ok {
		logger.Warn("unknown preset, using default", "preset", name, "default", preprocess.DefaultPreset)
	}
	if overrides != nil {
		p = p.Apply(*overrides)
	}
	return p
}

func (o *Orchestrator) prepareArtifacts(j *job) error {
	if !o.opts.KeepArtifacts {
		return nil
	}
	dir := filepath.Join(o.opts.OutputDir, "pages", j.id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.Internal(err, "create artifact dir")
	}
	j.artifacts = dir
	return nil
}

func firstNonEmpty(v ...string) string {
	for _, s := range v {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func firstPositive(v ...int) int {
	for _, n := range v {
		if n > 0 {
			return n
		}
	}
	return 0
}
