// Package pipeline coordinates text acquisition, structured extraction,
// fusion, and keyword scoring for one document at a time.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/doctriage/doctriage/internal/extractor"
	"github.com/doctriage/doctriage/internal/fuse"
	"github.com/doctriage/doctriage/internal/keyword"
	"github.com/doctriage/doctriage/internal/llm"
	"github.com/doctriage/doctriage/internal/ocr"
)

const previewChars = 1000

// DocumentResult is the single-record (hybrid) output for one document.
type DocumentResult struct {
	Filename    string             `json:"filename"`
	OCRMeta     ocr.Meta           `json:"ocr_meta"`
	TextPreview string             `json:"text_preview,omitempty"`
	Record      fuse.FusedRecord   `json:"record"`
	FuzzyScores map[string]float64 `json:"fuzzy_scores"`
}

// SegmentsResult is the segmenting-path output: zero or more ordered segment
// records, or a single diagnostic record when segmentation itself failed.
type SegmentsResult struct {
	Filename    string        `json:"filename"`
	OCRMeta     ocr.Meta      `json:"ocr_meta"`
	Text        string        `json:"-"`
	Segments    []llm.Segment      `json:"segments"`
	Diagnostic  llm.Record         `json:"diagnostic,omitempty"`
	FuzzyScores map[string]float64 `json:"fuzzy_scores"`
}

type Processor struct {
	Logger    *slog.Logger
	OCR       *ocr.Extractor
	Text      *extractor.Text
	Vision    *extractor.Vision
	Segmenter *extractor.Segmenter

	KeywordsPath string // CONFIG_DIR/keywords.json; seed table when unreadable
	DPI          int
}

func NewProcessor(logger *slog.Logger, ocrx *ocr.Extractor, text *extractor.Text, vision *extractor.Vision, seg *extractor.Segmenter, keywordsPath string) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:       logger,
		OCR:          ocrx,
		Text:         text,
		Vision:       vision,
		Segmenter:    seg,
		KeywordsPath: keywordsPath,
	}
}

// ProcessDocument runs the hybrid path: acquisition, text and vision
// extraction in their respective modalities, fusion, and keyword scoring.
// model overrides the text backend's default identifier when non-empty.
func (p *Processor) ProcessDocument(ctx context.Context, data []byte, filename, model string) DocumentResult {
	text, meta := p.OCR.ExtractBytes(ctx, data, filename)
	p.Logger.Info("processor.ocr.done",
		"filename", filename,
		"source", meta.Source,
		"pages", meta.Pages,
		"chars", len(text),
	)

	var textRec, visionRec llm.Record
	if text != "" {
		textRec = p.Text.Extract(ctx, text, model)
	}
	pages := p.OCR.RenderPages(ctx, data, filename, p.DPI, p.Vision.PageBudget)
	if len(pages) > 0 {
		visionRec = p.Vision.Extract(ctx, pages, "")
	}

	fused := fuse.Fuse(textRec, visionRec)
	p.Logger.Info("processor.fuse.done",
		"filename", filename,
		"document_type", fused.DocumentType,
		"text_fields", len(textRec),
		"vision_pages", len(pages),
	)

	return DocumentResult{
		Filename:    filename,
		OCRMeta:     meta,
		TextPreview: preview(text),
		Record:      fused,
		FuzzyScores: keyword.Scores(text, p.keywords()),
	}
}

// ProcessSegments runs the segmenting path used by the ingestion watcher:
// acquisition, multi-document segmentation, and per-segment keyword scoring
// (segment text span when available, else the whole document text).
func (p *Processor) ProcessSegments(ctx context.Context, data []byte, filename string) SegmentsResult {
	text, meta := p.OCR.ExtractBytes(ctx, data, filename)
	p.Logger.Info("processor.ocr.done",
		"filename", filename,
		"source", meta.Source,
		"pages", meta.Pages,
		"chars", len(text),
	)

	segs, diag := p.Segmenter.Segment(ctx, text, "")
	res := SegmentsResult{
		Filename:    filename,
		OCRMeta:     meta,
		Text:        text,
		Segments:    segs,
		Diagnostic:  diag,
		FuzzyScores: keyword.Scores(text, p.keywords()),
	}
	return res
}

// SegmentScores computes keyword scores for one segment, preferring its text
// span over the whole document text.
func (p *Processor) SegmentScores(seg llm.Segment, docText string) map[string]float64 {
	text := seg.TextSpan
	if text == "" {
		text = docText
	}
	return keyword.Scores(text, p.keywords())
}

func (p *Processor) keywords() map[string][]string {
	if p.KeywordsPath == "" {
		return keyword.DefaultKeywords
	}
	return keyword.Load(p.KeywordsPath)
}

func preview(text string) string {
	return llm.TruncateUTF8(text, previewChars)
}

// KeywordsFile returns the conventional keywords.json path under a config dir.
func KeywordsFile(configDir string) string {
	if configDir == "" {
		return ""
	}
	return filepath.Join(configDir, "keywords.json")
}
