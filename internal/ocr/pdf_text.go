package ocr

import (
	"bytes"
	"strings"

	"context"

	pdflib "github.com/ledongthuc/pdf"
)

// pdfText extracts the embedded text layer of a PDF. It tries the Go library
// first, then falls back to pdftotext, mirroring the acquisition fast path:
// this runs before any rasterization and decides born-digital classification.
func (e *Extractor) pdfText(ctx context.Context, path string) (string, int, error) {
	text, pages, err := extractPDFText(path)
	if err == nil {
		return text, pages, nil
	}
	return e.pdftotext(ctx, path)
}

func extractPDFText(path string) (string, int, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	pages := reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}
	return b.String(), pages, nil
}

func (e *Extractor) pdftotext(ctx context.Context, path string) (string, int, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, _, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, err
	}
	// A form-feed \f is used as page separator by default
	pages := 1 + bytes.Count(out, []byte{'\f'})
	return string(out), pages, nil
}
