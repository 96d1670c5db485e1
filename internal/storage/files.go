package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/imaging"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/runner"
)

type Config struct {
	WorkDir       string // temp workspaces and converted artifacts, default "./tmp"
	HeicConverter string // "magick" | "heif-convert" | "sips"
}

// FileStore is the filesystem collaborator: image decoding, encoding and scratch space.
type FileStore struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewFileStore(cfg Config, r runner.Runner, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	if r == nil {
		r = runner.NewExec(logger)
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "./tmp"
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	return &FileStore{cfg: cfg, runner: r, logger: logger}
}

// Exists reports whether path names a regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// LoadImage decodes png, jpeg, gif, tiff, bmp and webp files; HEIC/HEIF goes through the
// configured external converter first.
func (s *FileStore) LoadImage(ctx context.Context, path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewFileNotFound(path)
		}
		return nil, common.NewImageDecodeError(path, err)
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if constants.MapExtToFormat(ext) != constants.IMAGE {
		return nil, common.NewUnsupportedFormat(path, ext)
	}
	src := path
	if constants.IsHEICExt(ext) {
		out, cleanup, err := s.convertHEIC(ctx, path)
		if err != nil {
			return nil, common.NewImageDecodeError(path, err)
		}
		if cleanup != nil {
			defer cleanup()
		}
		src = out
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, common.NewImageDecodeError(path, err)
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close image", "path", src, "error", err)
		}
	}(f)

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, common.NewImageDecodeError(path, err)
	}
	s.logger.Debug("image loaded", "path", path, "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

// LoadGray is LoadImage followed by luminance conversion.
func (s *FileStore) LoadGray(ctx context.Context, path string) (*image.Gray, error) {
	img, err := s.LoadImage(ctx, path)
	if err != nil {
		return nil, err
	}
	return imaging.ToGray(img), nil
}

// SaveImage encodes img by the extension of path (png, jpeg or tiff), creating parent directories.
func (s *FileStore) SaveImage(path string, img image.Image) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return common.Internal(err, "create "+path)
	}
	if err := encode(f, path, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return common.Internal(err, "close "+path)
	}
	return nil
}

func encode(w io.Writer, path string, img image.Image) error {
	ext := constants.NormalizeExt(filepath.Ext(path))
	var err error
	switch ext {
	case "png":
		err = png.Encode(w, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "tif", "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return common.NewUnsupportedFormat(path, ext)
	}
	if err != nil {
		return common.Internal(err, "encode "+path)
	}
	return nil
}

// EnsureDir creates dir and its parents.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return common.Internal(err, "create directory "+dir)
	}
	return nil
}

// UniqueFilename returns prefix_<uuid>.ext.
func UniqueFilename(prefix, ext string) string {
	ext = constants.NormalizeExt(ext)
	name := uuid.NewString()
	if prefix != "" {
		name = prefix + "_" + name
	}
	if ext != "" {
		name += "." + ext
	}
	return name
}

// Workspace creates a scratch directory under the work dir. cleanup removes it.
func (s *FileStore) Workspace(prefix string) (string, func(), error) {
	if err := EnsureDir(s.cfg.WorkDir); err != nil {
		return "", nil, err
	}
	dir, err := os.MkdirTemp(s.cfg.WorkDir, prefix+"-*")
	if err != nil {
		return "", nil, common.Internal(err, "create workspace")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("failed to remove workspace", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}

// ContentHash is the hex SHA-256 of the file at path.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// convertHEIC converts a HEIC/HEIF file to PNG, caching the result under
// {WorkDir}/heic/{sha256}.png so repeated loads skip the converter.
func (s *FileStore) convertHEIC(ctx context.Context, in string) (string, func(), error) {
	cacheDir := filepath.Join(s.cfg.WorkDir, "heic")
	hash, err := ContentHash(in)
	if err != nil {
		return "", nil, err
	}
	cached := filepath.Join(cacheDir, hash+".png")
	if Exists(cached) {
		s.logger.Debug("using cached heic->png", "cache", cached)
		return cached, nil, nil
	}
	if err := EnsureDir(cacheDir); err != nil {
		return "", nil, err
	}

	tmp := filepath.Join(cacheDir, UniqueFilename("convert", "png"))
	cleanup := func() { _ = os.Remove(tmp) }
	var errb []byte
	switch strings.ToLower(s.cfg.HeicConverter) {
	case "heif-convert":
		_, errb, err = s.runner.Run(ctx, "heif-convert", in, tmp)
	case "magick":
		_, errb, err = s.runner.Run(ctx, "magick", in, tmp)
	case "sips":
		_, errb, err = s.runner.Run(ctx, "sips", "-s", "format", "png", in, "--out", tmp)
	default:
		return "", nil, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%s convert failed: %w: %s", s.cfg.HeicConverter, err, runner.Truncate(string(errb), 512))
	}
	if !Exists(tmp) {
		return "", nil, fmt.Errorf("HEIC conversion produced no output")
	}
	if err := os.Rename(tmp, cached); err != nil {
		// another worker may have won the race; either way tmp is still readable
		if Exists(cached) {
			cleanup()
			return cached, nil, nil
		}
		return tmp, cleanup, nil
	}
	s.logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil
}
