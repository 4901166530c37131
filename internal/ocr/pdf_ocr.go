package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// rasterize renders each PDF page to a PNG file at the given DPI and returns
// the page image paths in page order. maxPages <= 0 means no limit. The
// returned cleanup removes the temp directory holding the images.
func (e *Extractor) rasterize(ctx context.Context, path string, dpi, maxPages int) ([]string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "triage-pp-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, _, err = e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(dpi), "-png", path, prefix)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("no pages rendered")
	}
	return matches, cleanup, nil
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TesseractPSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.TesseractPSM))
	}
	if e.cfg.TesseractOEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.TesseractOEM))
	}
	if e.cfg.TesseractWhitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+e.cfg.TesseractWhitelist)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
