package ocr

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/doctriage/doctriage/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang      string // default "eng"
	TesseractPSM       int    // 0 = tesseract default
	TesseractOEM       int    // 0 = tesseract default
	TesseractWhitelist string

	DPI              int  // rasterization DPI, default 300
	BornDigitalCheck bool // try direct PDF text before rendering
	PDFMinChars      int  // non-whitespace chars needed to call a PDF born-digital

	PreprocessEnable  bool
	PreprocessDeskew  bool
	PreprocessDenoise bool
}

// Meta describes how the text of a document was acquired.
type Meta struct {
	Pages  int    `json:"pages"`
	Source string `json:"source,omitempty"` // constants.SourcePDFText | SourcePDFOCR | SourceImageOCR
	Error  string `json:"error,omitempty"`
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PDFMinChars <= 0 {
		cfg.PDFMinChars = 50
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// NewExtractorWithRunner is NewExtractor with a caller-supplied command
// runner, for tests that must not spawn external binaries.
func NewExtractorWithRunner(cfg Config, r Runner, logger *slog.Logger) *Extractor {
	e := NewExtractor(cfg, logger)
	if r != nil {
		e.runner = r
	}
	return e
}

// ExtractBytes picks a strategy based on the filename hint's extension and
// returns the document text plus acquisition metadata. It never returns an
// error: any failure is reported through Meta.Error with empty text.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, filenameHint string) (string, Meta) {
	ext := constants.NormalizeExt(filepath.Ext(filenameHint))
	e.logger.Debug("ocr.extract.start", "filename", filenameHint, "ext", ext, "bytes", len(data))

	tmpPath, cleanup, err := writeTemp(data, ext)
	if err != nil {
		return "", Meta{Error: err.Error()}
	}
	defer cleanup()

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.extractPDF(ctx, tmpPath)
	default:
		return e.extractImage(ctx, tmpPath)
	}
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (string, Meta) {
	if e.cfg.BornDigitalCheck {
		text, pages, err := e.pdfText(ctx, path)
		if err == nil && isBornDigital(text, e.cfg.PDFMinChars) {
			e.logger.Info("ocr.extract.born_digital", "pages", pages, "chars", len(text))
			return text, Meta{Pages: pages, Source: constants.SourcePDFText}
		}
		if err != nil {
			e.logger.Debug("ocr.extract.pdf_text_failed", "error", err)
		}
	}

	pagePaths, cleanup, err := e.rasterize(ctx, path, e.cfg.DPI, 0)
	if err != nil {
		return "", Meta{Error: err.Error()}
	}
	defer cleanup()

	var b strings.Builder
	for i, p := range pagePaths {
		txt, err := e.ocrPageFile(ctx, p)
		if err != nil {
			e.logger.Warn("ocr.extract.page_failed", "page", i+1, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
	}
	return b.String(), Meta{Pages: len(pagePaths), Source: constants.SourcePDFOCR}
}

func (e *Extractor) extractImage(ctx context.Context, path string) (string, Meta) {
	txt, err := e.ocrPageFile(ctx, path)
	if err != nil {
		return "", Meta{Pages: 1, Error: err.Error()}
	}
	return txt, Meta{Pages: 1, Source: constants.SourceImageOCR}
}

// ocrPageFile applies the optional preprocessing chain, then runs tesseract.
func (e *Extractor) ocrPageFile(ctx context.Context, path string) (string, error) {
	if e.cfg.PreprocessEnable {
		if pre, err := e.preprocessFile(path); err == nil {
			defer func() { _ = os.Remove(pre) }()
			path = pre
		} else {
			e.logger.Warn("ocr.preprocess.failed", "path", path, "error", err)
		}
	}
	txt, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return "", err
	}
	return Normalize(txt), nil
}

// isBornDigital applies the minimum-character rule over text with all
// whitespace removed.
func isBornDigital(text string, minChars int) bool {
	n := 0
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', '\v':
		default:
			n++
			if n >= minChars {
				return true
			}
		}
	}
	return false
}

func writeTemp(data []byte, ext string) (string, func(), error) {
	pattern := "triage-*"
	if ext != "" {
		pattern += "." + ext
	}
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", nil, err
	}
	return path, func() { _ = os.Remove(path) }, nil
}
