package storage

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRunner struct {
	calls [][]string
	run   func(name string, args ...string) error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.run != nil {
		return nil, nil, f.run(name, args...)
	}
	return nil, nil, nil
}

func checker(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.RGBA{200, 30, 30, 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func TestSaveAndLoadFormats(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(Config{WorkDir: dir}, &fakeRunner{}, quiet)
	for _, name := range []string{"a.png", "nested/b.jpg", "c.tiff"} {
		path := filepath.Join(dir, name)
		if err := store.SaveImage(path, checker(32, 16)); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		g, err := store.LoadGray(context.Background(), path)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if g.Bounds().Dx() != 32 || g.Bounds().Dy() != 16 {
			t.Fatalf("%s bounds = %v", name, g.Bounds())
		}
	}
}

func TestLoadImageErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(Config{WorkDir: dir}, &fakeRunner{}, quiet)

	_, err := store.LoadImage(context.Background(), filepath.Join(dir, "missing.png"))
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("missing file err = %v", err)
	}

	doc := filepath.Join(dir, "notes.docx")
	_ = os.WriteFile(doc, []byte("x"), 0o644)
	if _, err := store.LoadImage(context.Background(), doc); !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("docx err = %v", err)
	}

	garbage := filepath.Join(dir, "broken.png")
	_ = os.WriteFile(garbage, []byte("not a png"), 0o644)
	if _, err := store.LoadImage(context.Background(), garbage); common.KindOf(err) != common.KindImage {
		t.Fatalf("garbage err = %v", err)
	}
}

func TestSaveImageRejectsUnknownExtension(t *testing.T) {
	store := NewFileStore(Config{WorkDir: t.TempDir()}, &fakeRunner{}, quiet)
	err := store.SaveImage(filepath.Join(t.TempDir(), "x.gifv"), checker(4, 4))
	if !errors.Is(err, common.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
}

func TestHEICConversionIsCached(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.heic")
	_ = os.WriteFile(in, []byte("fake heic bytes"), 0o644)

	r := &fakeRunner{}
	store := NewFileStore(Config{WorkDir: dir, HeicConverter: "magick"}, r, quiet)
	r.run = func(name string, args ...string) error {
		out := args[len(args)-1]
		return store.SaveImage(out, checker(8, 8))
	}

	for i := 0; i < 2; i++ {
		g, err := store.LoadGray(context.Background(), in)
		if err != nil {
			t.Fatalf("load heic: %v", err)
		}
		if g.Bounds().Dx() != 8 {
			t.Fatalf("bounds = %v", g.Bounds())
		}
	}
	if len(r.calls) != 1 || r.calls[0][0] != "magick" {
		t.Fatalf("converter calls = %v", r.calls)
	}
}

func TestHEICUnknownConverter(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "photo.heif")
	_ = os.WriteFile(in, []byte("x"), 0o644)
	store := NewFileStore(Config{WorkDir: dir, HeicConverter: "gimp"}, &fakeRunner{}, quiet)
	if _, err := store.LoadImage(context.Background(), in); err == nil || !strings.Contains(err.Error(), "HEIC not supported") {
		t.Fatalf("err = %v", err)
	}
}

func TestUniqueFilename(t *testing.T) {
	a, b := UniqueFilename("page", ".PNG"), UniqueFilename("page", "png")
	if a == b || !strings.HasPrefix(a, "page_") || !strings.HasSuffix(a, ".png") {
		t.Fatalf("names %q %q", a, b)
	}
}

func TestWorkspace(t *testing.T) {
	store := NewFileStore(Config{WorkDir: t.TempDir()}, &fakeRunner{}, quiet)
	dir, cleanup, err := store.Workspace("doc")
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		t.Fatalf("workspace not created")
	}
	cleanup()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("workspace not removed")
	}
}

func TestResultKeyAndURI(t *testing.T) {
	if k := ResultKey("/results/", "", "2026", "abc.json"); k != "results/2026/abc.json" {
		t.Fatalf("key = %q", k)
	}
	u := UploadResult{Bucket: "ocr", Key: "results/a.json"}
	if u.URI() != "s3://ocr/results/a.json" {
		t.Fatalf("uri = %q", u.URI())
	}
}

func TestNewObjectSinkRequiresEndpoint(t *testing.T) {
	if _, err := NewObjectSink(ObjectConfig{Bucket: "b"}, quiet); err == nil {
		t.Fatalf("expected error without endpoint")
	}
	if _, err := NewObjectSink(ObjectConfig{Endpoint: "localhost:9000", Bucket: "b"}, quiet); err != nil {
		t.Fatalf("client construction should not dial: %v", err)
	}
}
