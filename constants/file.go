package constants

import "strings"

// Format is the coarse document family a file extension maps to.
type Format string

const (
	PDF     Format = "PDF"
	IMAGE   Format = "IMAGE"
	UNKNOWN Format = ""
)

// FileTypes holds the document families the pipeline accepts.
var FileTypes = []Format{PDF, IMAGE}

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"gif":  {},
	"webp": {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a file extension (with or without dot) to PDF or IMAGE.
func MapExtToFormat(ext string) Format {
	ext = NormalizeExt(ext)
	if ext == "pdf" {
		return PDF
	}
	if _, ok := AllowedExtensions[ext]; ok {
		return IMAGE
	}
	return UNKNOWN
}

// IsHEICExt reports whether ext needs an external HEIC/HEIF converter.
func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}
