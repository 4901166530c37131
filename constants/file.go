package constants

import "strings"

const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// Source labels recorded in extraction metadata.
const (
	SourcePDFText  = "pdf-text"
	SourcePDFOCR   = "pdf+ocr"
	SourceImageOCR = "image+ocr"
)

// AllowedExtensions holds the file extensions the ingestion watcher picks up.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
	"tif":  {},
	"bmp":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat classifies an extension into the paginated (PDF) or
// single-image code path. Unknown extensions are treated as images so
// acquisition can still attempt an OCR pass.
func MapExtToFormat(ext string) string {
	if NormalizeExt(ext) == "pdf" {
		return PDF
	}
	return IMAGE
}

// IsAllowedExt reports whether the extension is in the supported set.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
