package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/constants"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/pdf"
)

// FileInfo describes an input file without running the pipeline on it.
// Exactly one of PDF and Image is set.
type FileInfo struct {
	Path      string     `json:"path"`
	Filename  string     `json:"filename"`
	Format    string     `json:"format"`
	SizeBytes int64      `json:"file_size_bytes"`
	SizeMB    float64    `json:"file_size_mb"`
	PDF       *PDFInfo   `json:"pdf,omitempty"`
	Image     *ImageInfo `json:"image,omitempty"`
}

// PDFInfo is the document metadata reported by the PDF source. Dimensions
// describe the first page.
type PDFInfo struct {
	PageCount    int     `json:"page_count"`
	Encrypted    bool    `json:"is_encrypted"`
	Version      string  `json:"version,omitempty"`
	Title        string  `json:"title,omitempty"`
	Author       string  `json:"author,omitempty"`
	Subject      string  `json:"subject,omitempty"`
	Keywords     string  `json:"keywords,omitempty"`
	Creator      string  `json:"creator,omitempty"`
	Producer     string  `json:"producer,omitempty"`
	CreationDate string  `json:"creation_date,omitempty"`
	ModDate      string  `json:"mod_date,omitempty"`
	PageWidth    float64 `json:"page_width_pts,omitempty"`
	PageHeight   float64 `json:"page_height_pts,omitempty"`
	WidthInches  float64 `json:"width_inches,omitempty"`
	HeightInches float64 `json:"height_inches,omitempty"`
}

// ImageInfo is the geometry and color layout of a decoded image.
type ImageInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Mode     string `json:"mode"`
}

// DocumentInfo reports file size and format metadata for a PDF or image.
func (o *Orchestrator) DocumentInfo(ctx context.Context, path string) (*FileInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, common.NewValidationError("document path is required")
	}
	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NewFileNotFound(path)
		}
		return nil, common.Internal(err, "stat "+path)
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	info := &FileInfo{
		Path:      path,
		Filename:  filepath.Base(path),
		Format:    ext,
		SizeBytes: st.Size(),
		SizeMB:    math.Round(float64(st.Size())/(1024*1024)*100) / 100,
	}

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		doc, err := o.source.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		info.PDF = pdfInfo(doc)
	case constants.IMAGE:
		img, err := o.images.LoadImage(ctx, path)
		if err != nil {
			return nil, err
		}
		info.Image = imageInfo(img)
	default:
		return nil, common.NewUnsupportedFormat(path, ext)
	}
	o.logger.Debug("document info", "path", path, "format", info.Format, "bytes", info.SizeBytes)
	return info, nil
}

func pdfInfo(doc *pdf.Document) *PDFInfo {
	m := doc.Metadata
	return &PDFInfo{
		PageCount:    doc.Pages,
		Encrypted:    doc.Encrypted,
		Version:      m.Version,
		Title:        doc.Title,
		Author:       m.Author,
		Subject:      m.Subject,
		Keywords:     m.Keywords,
		Creator:      m.Creator,
		Producer:     doc.Producer,
		CreationDate: m.CreationDate,
		ModDate:      m.ModDate,
		PageWidth:    m.PageWidth,
		PageHeight:   m.PageHeight,
		WidthInches:  math.Round(m.PageWidth/pdf.PointsPerInch*100) / 100,
		HeightInches: math.Round(m.PageHeight/pdf.PointsPerInch*100) / 100,
	}
}

func imageInfo(img image.Image) *ImageInfo {
	b := img.Bounds()
	info := &ImageInfo{Width: b.Dx(), Height: b.Dy()}
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		info.Channels, info.Mode = 1, "gray"
	case color.CMYKModel:
		info.Channels, info.Mode = 4, "cmyk"
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		info.Channels, info.Mode = 4, "rgba"
	default:
		info.Channels, info.Mode = 3, "rgb"
	}
	if _, ok := img.(*image.Paletted); ok {
		info.Mode = "paletted"
	}
	return info
}
