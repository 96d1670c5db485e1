package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pdf"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/preprocess"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeEngine "recognizes" an image by reporting its width.
type fakeEngine struct {
	inits   *atomic.Int32
	jitter  bool
	panicOn int // width that triggers a panic
	failOn  int // width that triggers an error
	lang    string
}

func (f *fakeEngine) Initialize(context.Context) error {
	f.inits.Add(1)
	return nil
}

func (f *fakeEngine) Recognize(_ context.Context, img image.Image) (ocr.PageResult, error) {
	w := img.Bounds().Dx()
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
	}
	if w == f.panicOn {
		panic("engine crashed")
	}
	if w == f.failOn {
		return ocr.PageResult{}, common.NewRecognitionError("fake", errors.New("unreadable"))
	}
	words := []ocr.Word{{Text: "width", Confidence: float64(w % 100)}, {Text: fmt.Sprint(w), Confidence: float64(w % 100)}}
	return ocr.NewPageResult(fmt.Sprintf("width %d", w), words, "fake", f.lang), nil
}

func (f *fakeEngine) RecognizeFile(context.Context, string) (ocr.PageResult, error) {
	return ocr.PageResult{}, errors.New("not used")
}
func (f *fakeEngine) SupportedLanguages(context.Context) []string { return []string{"eng"} }
func (f *fakeEngine) Describe(context.Context) ocr.Descriptor {
	return ocr.Descriptor{Name: "fake", Available: true}
}

type fakeDoc struct {
	pages   int
	meta    pdf.Metadata
	text    map[int]string
	textErr error
	openErr error
}

type fakeSource struct {
	mu     sync.Mutex
	docs   map[string]*fakeDoc
	merged [][]string
}

func (s *fakeSource) get(path string) *fakeDoc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[path]
}

func (s *fakeSource) Open(_ context.Context, path string) (*pdf.Document, error) {
	d := s.get(path)
	if d == nil {
		return nil, common.NewFileNotFound(path)
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return &pdf.Document{Path: path, Pages: d.pages, Title: "scan", Metadata: d.meta}, nil
}

func (s *fakeSource) PageCount(doc *pdf.Document) int { return doc.Pages }

func (s *fakeSource) ExtractText(_ context.Context, doc *pdf.Document, page int) (string, error) {
	d := s.get(doc.Path)
	if d.textErr != nil {
		return "", d.textErr
	}
	return d.text[page], nil
}

func (s *fakeSource) Rasterize(_ context.Context, doc *pdf.Document, page, dpi int) (image.Image, error) {
	img := image.NewGray(image.Rect(0, 0, 200+page, 120))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img, nil
}

func (s *fakeSource) Merge(_ context.Context, paths []string, out string) (*pdf.Document, error) {
	total := 0
	for _, p := range paths {
		total += s.get(p).pages
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, []byte("%PDF"), 0o644); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.docs[out] = &fakeDoc{pages: total, text: map[int]string{}}
	s.merged = append(s.merged, paths)
	s.mu.Unlock()
	return &pdf.Document{Path: out, Pages: total}, nil
}

func (s *fakeSource) Split(_ context.Context, doc *pdf.Document, n int, outDir string) ([]*pdf.Document, error) {
	var out []*pdf.Document
	for first := 1; first <= doc.Pages; first += n {
		out = append(out, &pdf.Document{Path: filepath.Join(outDir, fmt.Sprintf("part%d.pdf", len(out)+1)), Pages: min(n, doc.Pages-first+1)})
	}
	return out, nil
}

// fakeImages serves images whose width is encoded in the file name: "w240.png".
type fakeImages struct{}

func (fakeImages) LoadImage(_ context.Context, path string) (image.Image, error) {
	var w int
	if _, err := fmt.Sscanf(filepath.Base(path), "w%d.png", &w); err != nil {
		return nil, common.NewFileNotFound(path)
	}
	img := image.NewGray(image.Rect(0, 0, w, 80))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img, nil
}

func (fakeImages) SaveImage(string, image.Image) error { return nil }

type fixture struct {
	orch   *Orchestrator
	source *fakeSource
	engine *fakeEngine
	inits  *atomic.Int32
	dir    string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	inits := &atomic.Int32{}
	eng := &fakeEngine{inits: inits}
	reg := ocr.NewRegistry(ocr.EngineConfig{Logger: quiet})
	reg.Register("fake", func(cfg ocr.EngineConfig) (ocr.Engine, error) {
		eng.lang = cfg.Language
		return eng, nil
	})
	src := &fakeSource{docs: map[string]*fakeDoc{}}
	if opts.DefaultEngine == "" {
		opts.DefaultEngine = "fake"
	}
	dir := t.TempDir()
	opts.OutputDir = dir
	orch, err := NewOrchestrator(opts, Deps{
		Source:       src,
		Registry:     reg,
		Preprocessor: preprocess.NewProcessor(preprocess.AllEnabled(), nil, quiet),
		Images:       fakeImages{},
		Logger:       quiet,
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return &fixture{orch: orch, source: src, engine: eng, inits: inits, dir: dir}
}

func (f *fixture) addPDF(t *testing.T, name string, d *fakeDoc) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	if err := os.WriteFile(p, []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if d.text == nil {
		d.text = map[int]string{}
	}
	f.source.docs[p] = d
	return p
}

func TestAggregatePages(t *testing.T) {
	pages := []ocr.PageResult{
		{Text: "alpha", Confidence: 90, CharacterCount: 5, WordCount: 1, Engine: "tesseract", Language: "eng"},
		ocr.FailedPage(2, "", "tesseract", "eng", errors.New("boom")),
		{Text: "gamma delta", Confidence: 60, CharacterCount: 11, WordCount: 2, Engine: "tesseract", Language: "eng"},
	}
	agg := AggregatePages(pages)
	if agg.AverageConfidence != 50 || agg.PageCount != 3 {
		t.Fatalf("aggregate = %+v", agg)
	}
	if agg.TotalCharacters != 16 || agg.TotalWords != 3 || agg.Engine != "tesseract" || agg.Language != "eng" {
		t.Fatalf("aggregate = %+v", agg)
	}
	want := "--- Page 1 ---\nalpha\n\n--- Page 3 ---\ngamma delta"
	if agg.Text != want {
		t.Fatalf("text = %q, want %q", agg.Text, want)
	}
	if got := AggregatePages(nil); got.PageCount != 0 || got.AverageConfidence != 0 {
		t.Fatalf("empty aggregate = %+v", got)
	}
}

func TestAggregateRoundsToTwoDecimals(t *testing.T) {
	agg := AggregatePages([]ocr.PageResult{{Confidence: 90}, {Confidence: 80}, {Confidence: 81}})
	if agg.AverageConfidence != 83.67 {
		t.Fatalf("avg = %v", agg.AverageConfidence)
	}
}

func TestWeightedConfidence(t *testing.T) {
	pages := []ocr.PageResult{{Confidence: 90, CharacterCount: 1}, {Confidence: 60, CharacterCount: 4999}}
	if w := WeightedConfidence(pages); w != 60.01 {
		t.Fatalf("weighted = %v", w)
	}
	if AggregatePages(pages).AverageConfidence != 75 {
		t.Fatalf("unweighted mean expected")
	}
}

func TestSummarizeBatch(t *testing.T) {
	res := SummarizeBatch([]*DocumentResult{
		{PageCount: 2, TotalCharacters: 10, AverageConfidence: 80},
		{PageCount: 3, TotalCharacters: 5, AverageConfidence: 61},
	})
	if res.BatchSize != 2 || res.TotalPages != 5 || res.TotalCharacters != 15 || res.AverageConfidence != 70.5 {
		t.Fatalf("batch = %+v", res)
	}
}

func TestClassifyTextDocument(t *testing.T) {
	f := newFixture(t, Options{})
	long := strings.Repeat("Discharge summary line. ", 4)
	path := f.addPDF(t, "text.pdf", &fakeDoc{pages: 4, text: map[int]string{1: long, 2: long, 3: long, 4: "last"}})

	res, err := f.orch.ProcessDocument(context.Background(), path, DocumentOptions{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.IsScanned || res.ProcessingMethod != constants.MethodDirectText {
		t.Fatalf("classification = %v %s", res.IsScanned, res.ProcessingMethod)
	}
	if res.PageCount != 4 || res.AverageConfidence != 100 || res.Pages[3].Text != "last" {
		t.Fatalf("result = %+v", res)
	}
	if f.inits.Load() != 0 {
		t.Fatalf("text documents must not touch the engine")
	}
}

func TestClassifyScannedDocument(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.addPDF(t, "scan.pdf", &fakeDoc{pages: 3})

	res, err := f.orch.ProcessDocument(context.Background(), path, DocumentOptions{})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !res.IsScanned || res.ProcessingMethod != constants.MethodOCRPipeline {
		t.Fatalf("classification = %v %s", res.IsScanned, res.ProcessingMethod)
	}
	if res.PageCount != 3 || res.Engine != "fake" || res.Language != "eng" || res.Preset != "general" {
		t.Fatalf("result = %+v", res)
	}
	for i, p := range res.Pages {
		if p.PageNumber != i+1 || p.Failed() {
			t.Fatalf("page %d = %+v", i, p)
		}
		if p.Metadata["zoom"] != 300.0/72.0 || p.Metadata["preprocessed"] != true {
			t.Fatalf("page metadata = %v", p.Metadata)
		}
	}
	if !strings.HasPrefix(res.Text, "--- Page 1 ---\nwidth ") {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestClassifyBoundary(t *testing.T) {
	f := newFixture(t, Options{})
	exactly50 := strings.Repeat("x", 50)
	text := f.addPDF(t, "fifty.pdf", &fakeDoc{pages: 2, text: map[int]string{1: exactly50, 2: "  " + exactly50 + "\n"}})
	res, err := f.orch.ProcessDocument(context.Background(), text, DocumentOptions{})
	if err != nil || res.IsScanned {
		t.Fatalf("50 chars per page must be text-based: %v %v", res, err)
	}

	short := f.addPDF(t, "short.pdf", &fakeDoc{pages: 2, text: map[int]string{1: exactly50, 2: strings.Repeat("x", 49)}})
	res, err = f.orch.ProcessDocument(context.Background(), short, DocumentOptions{SkipPreprocessing: true})
	if err != nil || !res.IsScanned {
		t.Fatalf("average 49.5 must be scanned: %v %v", res, err)
	}
}

func TestUnreadableTextLayerIsScanned(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.addPDF(t, "odd.pdf", &fakeDoc{pages: 1, textErr: errors.New("pdftotext crashed")})
	res, err := f.orch.ProcessDocument(context.Background(), path, DocumentOptions{SkipPreprocessing: true})
	if err != nil || !res.IsScanned {
		t.Fatalf("res = %+v err = %v", res, err)
	}
}

func TestDocumentLevelFailuresAreFatal(t *testing.T) {
	f := newFixture(t, Options{})
	locked := f.addPDF(t, "locked.pdf", &fakeDoc{openErr: common.NewDocumentError(common.ErrPasswordProtected, "locked.pdf", nil)})
	if _, err := f.orch.ProcessDocument(context.Background(), locked, DocumentOptions{}); !errors.Is(err, common.ErrPasswordProtected) {
		t.Fatalf("err = %v", err)
	}
	if _, err := f.orch.ProcessDocument(context.Background(), filepath.Join(f.dir, "gone.pdf"), DocumentOptions{}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	doc := filepath.Join(f.dir, "notes.docx")
	_ = os.WriteFile(doc, []byte("x"), 0o644)
	if _, err := f.orch.ProcessDocument(context.Background(), doc, DocumentOptions{}); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("docx err = %v", err)
	}
	if _, err := f.orch.ProcessDocument(context.Background(), " ", DocumentOptions{}); common.KindOf(err) != common.KindValidation {
		t.Fatalf("empty path err = %v", err)
	}
}

func TestProcessDocumentImage(t *testing.T) {
	f := newFixture(t, Options{})
	path := filepath.Join(f.dir, "w240.png")
	_ = os.WriteFile(path, []byte("png"), 0o644)
	res, err := f.orch.ProcessDocument(context.Background(), path, DocumentOptions{SkipPreprocessing: true})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.PageCount != 1 || res.Pages[0].Text != "width 240" || !res.IsScanned {
		t.Fatalf("result = %+v", res)
	}
}

func pagePaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("/pages/w%d.png", 101+i*7)
	}
	return paths
}

func TestProcessPagesParallelMatchesSequential(t *testing.T) {
	f := newFixture(t, Options{})
	f.engine.jitter = true
	paths := pagePaths(12)

	seq, err := f.orch.ProcessPages(context.Background(), paths, PagesOptions{})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	for _, limit := range []int{0, 3} {
		par, err := f.orch.ProcessPages(context.Background(), paths, PagesOptions{Parallel: true, MaxParallel: limit})
		if err != nil {
			t.Fatalf("parallel: %v", err)
		}
		for i := range seq {
			if seq[i].PageNumber != par[i].PageNumber || seq[i].Text != par[i].Text || seq[i].Confidence != par[i].Confidence {
				t.Fatalf("limit %d page %d: seq %+v par %+v", limit, i, seq[i], par[i])
			}
			if seq[i].PageNumber != i+1 || seq[i].ImagePath != paths[i] {
				t.Fatalf("page %d out of order: %+v", i, seq[i])
			}
		}
	}
}

func TestPageFailuresAreIsolated(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		f := newFixture(t, Options{})
		f.engine.panicOn = 108
		f.engine.failOn = 115
		paths := append(pagePaths(4), "/pages/missing.png")

		res, err := f.orch.ProcessPages(context.Background(), paths, PagesOptions{Parallel: parallel})
		if err != nil {
			t.Fatalf("parallel=%v: %v", parallel, err)
		}
		var failed []int
		for _, p := range res {
			if p.Failed() {
				failed = append(failed, p.PageNumber)
				if p.Confidence != 0 || p.WordCount != 0 || p.CharacterCount != 0 {
					t.Fatalf("failed page carries counts: %+v", p)
				}
			}
		}
		if !reflect.DeepEqual(failed, []int{2, 3, 5}) {
			t.Fatalf("parallel=%v failed pages = %v", parallel, failed)
		}
		agg := AggregatePages(res)
		if agg.PageCount != 5 {
			t.Fatalf("page count = %d", agg.PageCount)
		}
	}
}

func TestEngineCacheInitializesOnce(t *testing.T) {
	f := newFixture(t, Options{})
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orch.cache.Get(context.Background(), " FAKE ", "eng"); err != nil {
				t.Errorf("get: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := f.inits.Load(); n != 1 {
		t.Fatalf("initialize ran %d times", n)
	}
	if _, err := f.orch.cache.Get(context.Background(), "fake", "deu"); err != nil {
		t.Fatalf("get deu: %v", err)
	}
	if keys := f.orch.Info().CachedEngines; !reflect.DeepEqual(keys, []string{"fake_deu", "fake_eng"}) {
		t.Fatalf("cached = %v", keys)
	}
}

func TestUnknownEngineListsRegistered(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.orch.ProcessPages(context.Background(), pagePaths(1), PagesOptions{Engine: "abbyy"})
	if !errors.Is(err, common.ErrEngineNotFound) || common.KindOf(err) != common.KindEngine {
		t.Fatalf("err = %v", err)
	}
	if got := common.AvailableEngines(err); !reflect.DeepEqual(got, []string{"fake", "tesseract"}) {
		t.Fatalf("available = %v", got)
	}
	if f.orch.ValidateEngine(context.Background(), "abbyy") {
		t.Fatalf("abbyy must not validate")
	}
	if !f.orch.ValidateEngine(context.Background(), " Fake") {
		t.Fatalf("fake must validate regardless of case")
	}
}

func TestProcessPage(t *testing.T) {
	f := newFixture(t, Options{})
	res, err := f.orch.ProcessPage(context.Background(), "/pages/w150.png", PageOptions{PageNumber: 4})
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if res.PageNumber != 4 || res.Text != "width 150" || res.Metadata["preprocessed"] != false {
		t.Fatalf("result = %+v", res)
	}
	if _, err := f.orch.ProcessPage(context.Background(), "/pages/missing.png", PageOptions{}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	f.engine.failOn = 160
	if _, err := f.orch.ProcessPage(context.Background(), "/pages/w160.png", PageOptions{}); !errors.Is(err, common.ErrRecognition) {
		t.Fatalf("recognition err = %v", err)
	}
}

func TestProcessBatch(t *testing.T) {
	f := newFixture(t, Options{})
	long := strings.Repeat("y", 80)
	a := f.addPDF(t, "a.pdf", &fakeDoc{pages: 2, text: map[int]string{1: long, 2: long}})
	b := f.addPDF(t, "b.pdf", &fakeDoc{pages: 3})

	res, err := f.orch.ProcessBatch(context.Background(), []string{a, b}, BatchOptions{Document: DocumentOptions{SkipPreprocessing: true}})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if res.BatchSize != 2 || res.TotalPages != 5 || res.Merged {
		t.Fatalf("batch = %+v", res)
	}
	want := ocr.Round2((res.Documents[0].AverageConfidence + res.Documents[1].AverageConfidence) / 2)
	if res.AverageConfidence != want {
		t.Fatalf("avg = %v, want %v", res.AverageConfidence, want)
	}

	merged, err := f.orch.ProcessBatch(context.Background(), []string{a, b}, BatchOptions{Merge: true, Document: DocumentOptions{SkipPreprocessing: true}})
	if err != nil {
		t.Fatalf("merged batch: %v", err)
	}
	if !merged.Merged || merged.BatchSize != 1 || merged.TotalPages != 5 || len(f.source.merged) != 1 {
		t.Fatalf("merged = %+v", merged)
	}
	if _, err := f.orch.ProcessBatch(context.Background(), nil, BatchOptions{}); common.KindOf(err) != common.KindValidation {
		t.Fatalf("empty batch err = %v", err)
	}
}

func TestSplitDocument(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.addPDF(t, "long.pdf", &fakeDoc{pages: 5})
	parts, err := f.orch.SplitDocument(context.Background(), path, 2, "")
	if err != nil || len(parts) != 3 {
		t.Fatalf("parts = %v, %v", parts, err)
	}
	if _, err := f.orch.SplitDocument(context.Background(), path, 0, ""); common.KindOf(err) != common.KindValidation {
		t.Fatalf("zero chunk err = %v", err)
	}
}

func TestInfoAndEngines(t *testing.T) {
	f := newFixture(t, Options{Language: "eng+deu", DPI: 200})
	info := f.orch.Info()
	if info.DefaultEngine != "fake" || info.DefaultDPI != 200 || !info.PreprocessingEnabled {
		t.Fatalf("info = %+v", info)
	}
	if !reflect.DeepEqual(info.SupportedLanguages, []string{"eng", "deu"}) {
		t.Fatalf("languages = %v", info.SupportedLanguages)
	}
	avail := f.orch.ListAvailableEngines(context.Background())
	if !avail["fake"] {
		t.Fatalf("availability = %v", avail)
	}
	if d := f.orch.DescribeEngine(context.Background(), "nope"); d.Available {
		t.Fatalf("descriptor = %+v", d)
	}
}

func TestCancelledContextStopsDocument(t *testing.T) {
	f := newFixture(t, Options{})
	path := f.addPDF(t, "scan.pdf", &fakeDoc{pages: 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.orch.ProcessDocument(ctx, path, DocumentOptions{SkipPreprocessing: true})
	if common.KindOf(err) != common.KindCanceled || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled kind", err)
	}
}

func TestExpiredDeadlineStopsPages(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := f.orch.ProcessPages(ctx, pagePaths(3), PagesOptions{})
	if !errors.Is(err, common.ErrDeadlineExceeded) || common.KindOf(err) != common.KindCanceled {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if errors.Is(err, common.ErrInternal) {
		t.Fatalf("deadline reported as internal: %v", err)
	}
}

func TestValidateEngineSkipsUnregistered(t *testing.T) {
	f := newFixture(t, Options{})
	if f.orch.ValidateEngine(context.Background(), "abbyy") {
		t.Fatalf("unregistered engine validated")
	}
	if keys := f.orch.Info().CachedEngines; len(keys) != 0 {
		t.Fatalf("unregistered engine reached the cache: %v", keys)
	}
}

func TestDocumentInfo(t *testing.T) {
	f := newFixture(t, Options{})
	pdfPath := f.addPDF(t, "intake.pdf", &fakeDoc{pages: 3, meta: pdf.Metadata{Author: "clinic", Version: "1.5", PageWidth: 612, PageHeight: 792}})
	imgPath := filepath.Join(f.dir, "w240.png")
	if err := os.WriteFile(imgPath, make([]byte, 2048), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	info, err := f.orch.DocumentInfo(context.Background(), pdfPath)
	if err != nil {
		t.Fatalf("pdf info: %v", err)
	}
	if info.Format != "pdf" || info.Filename != "intake.pdf" || info.SizeBytes != 4 || info.Image != nil {
		t.Fatalf("info = %+v", info)
	}
	want := PDFInfo{PageCount: 3, Version: "1.5", Title: "scan", Author: "clinic", PageWidth: 612, PageHeight: 792, WidthInches: 8.5, HeightInches: 11}
	if info.PDF == nil || *info.PDF != want {
		t.Fatalf("pdf = %+v", info.PDF)
	}

	info, err = f.orch.DocumentInfo(context.Background(), imgPath)
	if err != nil {
		t.Fatalf("image info: %v", err)
	}
	if info.PDF != nil || info.SizeBytes != 2048 || info.Format != "png" {
		t.Fatalf("info = %+v", info)
	}
	if *info.Image != (ImageInfo{Width: 240, Height: 80, Channels: 1, Mode: "gray"}) {
		t.Fatalf("image = %+v", info.Image)
	}

	docx := filepath.Join(f.dir, "notes.docx")
	_ = os.WriteFile(docx, []byte("x"), 0o644)
	tests := []struct {
		path string
		want error
	}{
		{filepath.Join(f.dir, "gone.pdf"), common.ErrNotFound},
		{docx, common.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		if _, err := f.orch.DocumentInfo(context.Background(), tt.path); !errors.Is(err, tt.want) {
			t.Fatalf("%s: err = %v, want %v", tt.path, err, tt.want)
		}
	}
	if _, err := f.orch.DocumentInfo(context.Background(), ""); common.KindOf(err) != common.KindValidation {
		t.Fatalf("empty path err = %v", err)
	}
}

func TestImageInfoModes(t *testing.T) {
	tests := []struct {
		img  image.Image
		want ImageInfo
	}{
		{image.NewGray(image.Rect(0, 0, 4, 3)), ImageInfo{4, 3, 1, "gray"}},
		{image.NewRGBA(image.Rect(0, 0, 2, 2)), ImageInfo{2, 2, 4, "rgba"}},
		{image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420), ImageInfo{8, 8, 3, "rgb"}},
		{image.NewCMYK(image.Rect(0, 0, 1, 1)), ImageInfo{1, 1, 4, "cmyk"}},
	}
	for _, tt := range tests {
		if got := imageInfo(tt.img); *got != tt.want {
			t.Fatalf("imageInfo = %+v, want %+v", got, tt.want)
		}
	}
}
