package ocr

import (
	"context"
	"os"
	"path/filepath"

	"github.com/doctriage/doctriage/constants"
)

// RenderPages renders input bytes into an ordered sequence of page images for
// vision extraction. PDFs are rasterized page by page up to maxPages
// (0 = all pages); other formats yield a single-element sequence holding the
// original bytes. Callers must treat an empty sequence as "no visual signal
// available", never as an error, so failures return nil.
func (e *Extractor) RenderPages(ctx context.Context, data []byte, filenameHint string, dpi, maxPages int) [][]byte {
	if dpi <= 0 {
		dpi = e.cfg.DPI
	}
	ext := constants.NormalizeExt(filepath.Ext(filenameHint))
	if constants.MapExtToFormat(ext) != constants.PDF {
		if len(data) == 0 {
			return nil
		}
		return [][]byte{data}
	}

	tmpPath, cleanup, err := writeTemp(data, ext)
	if err != nil {
		e.logger.Warn("ocr.render.temp_failed", "error", err)
		return nil
	}
	defer cleanup()

	pagePaths, rmPages, err := e.rasterize(ctx, tmpPath, dpi, maxPages)
	if err != nil {
		e.logger.Warn("ocr.render.rasterize_failed", "filename", filenameHint, "error", err)
		return nil
	}
	defer rmPages()

	pages := make([][]byte, 0, len(pagePaths))
	for _, p := range pagePaths {
		b, err := os.ReadFile(p)
		if err != nil {
			e.logger.Warn("ocr.render.read_failed", "path", p, "error", err)
			return nil
		}
		pages = append(pages, b)
	}
	return pages
}
