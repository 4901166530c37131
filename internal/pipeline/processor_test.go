package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/extractor"
	"github.com/doctriage/doctriage/internal/keyword"
	"github.com/doctriage/doctriage/internal/llm"
	"github.com/doctriage/doctriage/internal/ocr"
)

type stubRunner struct {
	handler func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	return s.handler(name, args)
}

type stubGen struct {
	out   string
	err   error
	calls int
}

func (s *stubGen) Generate(_ context.Context, _ llm.GenerateRequest) (string, error) {
	s.calls++
	return s.out, s.err
}

type stubVisionGen struct {
	out   string
	calls int
	pages int
}

func (s *stubVisionGen) GenerateVision(_ context.Context, _ llm.GenerateRequest, images [][]byte) (string, error) {
	s.calls++
	s.pages = len(images)
	return s.out, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProcessor(run *stubRunner, textGen *stubGen, visionGen *stubVisionGen, segGen *stubGen) *Processor {
	log := quietLogger()
	ocrx := ocr.NewExtractorWithRunner(ocr.Config{BornDigitalCheck: true}, run, log)
	return NewProcessor(
		log,
		ocrx,
		extractor.NewText(textGen, "llama3.1", log),
		extractor.NewVision(visionGen, "qwen2.5-vl", 2, log),
		extractor.NewSegmenter(segGen, "llama3.1", log),
		"",
	)
}

func TestProcessDocument_EmptyTextSkipsTextExtractor(t *testing.T) {
	run := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("boom"), errors.New("exit status 1")
	}}
	textGen := &stubGen{out: `{}`}
	visionGen := &stubVisionGen{out: `{"document_type":"government_id","name":"Jane"}`}
	p := newTestProcessor(run, textGen, visionGen, &stubGen{})

	res := p.ProcessDocument(context.Background(), []byte("fake-png"), "id.png", "")

	if textGen.calls != 0 {
		t.Fatalf("empty acquired text must not reach the text extractor, got %d calls", textGen.calls)
	}
	if visionGen.calls != 1 || visionGen.pages != 1 {
		t.Fatalf("expected one vision call over the raw image, got calls=%d pages=%d",
			visionGen.calls, visionGen.pages)
	}
	if res.OCRMeta.Error == "" {
		t.Error("expected acquisition failure carried in the result meta")
	}
	if res.Record.DocumentType != "government_id" {
		t.Errorf("expected vision-only fusion, got %q", res.Record.DocumentType)
	}
	if res.TextPreview != "" {
		t.Errorf("expected empty preview, got %q", res.TextPreview)
	}
	if len(res.FuzzyScores) != len(keyword.DefaultKeywords) {
		t.Errorf("expected one score per seed category, got %v", res.FuzzyScores)
	}
}

func TestProcessDocument_BornDigitalPDFSkipsVisionWhenRenderFails(t *testing.T) {
	bornText := strings.Repeat("invoice total due ", 12) + "\fpage two\fpage three"
	run := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte(bornText), nil, nil
		case "pdftoppm":
			return nil, nil, errors.New("pdftoppm not installed")
		}
		return nil, nil, fmt.Errorf("unexpected binary %q", name)
	}}
	textGen := &stubGen{out: `{"document_type":"invoice","amount":"120.00"}`}
	visionGen := &stubVisionGen{out: `{}`}
	p := newTestProcessor(run, textGen, visionGen, &stubGen{})

	res := p.ProcessDocument(context.Background(), []byte("%PDF-garbage"), "bill.pdf", "")

	if textGen.calls != 1 {
		t.Fatalf("expected one text extraction call, got %d", textGen.calls)
	}
	if visionGen.calls != 0 {
		t.Fatalf("empty page sequence must not reach the vision extractor, got %d calls", visionGen.calls)
	}
	if res.OCRMeta.Source != constants.SourcePDFText || res.OCRMeta.Pages != 3 {
		t.Errorf("expected acquisition meta carried through, got %+v", res.OCRMeta)
	}
	if res.Record.DocumentType != "invoice" {
		t.Errorf("expected text-only fusion, got %q", res.Record.DocumentType)
	}
	if res.Record.Provenance["document_type"] != "text" {
		t.Errorf("expected text provenance, got %q", res.Record.Provenance["document_type"])
	}
	if res.FuzzyScores["invoice"] != 100 {
		t.Errorf("expected full invoice score for matching text, got %v", res.FuzzyScores["invoice"])
	}
	if res.TextPreview != bornText {
		t.Errorf("short text should be previewed whole")
	}
}

func TestProcessDocument_PreviewNeverSplitsRune(t *testing.T) {
	long := strings.Repeat("界", 400) // 1200 bytes of 3-byte runes
	run := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return []byte(long), nil, nil
	}}
	p := newTestProcessor(run, &stubGen{out: `{}`}, &stubVisionGen{out: `{}`}, &stubGen{})

	res := p.ProcessDocument(context.Background(), []byte("fake-png"), "scan.png", "")

	if len(res.TextPreview) > 1000 {
		t.Fatalf("preview exceeds its cap: %d bytes", len(res.TextPreview))
	}
	if !utf8.ValidString(res.TextPreview) {
		t.Fatal("preview must end on a rune boundary")
	}
	if len(res.TextPreview) != 999 {
		t.Errorf("expected backoff to the previous rune boundary, got %d bytes", len(res.TextPreview))
	}
}

func TestProcessSegments_SpanElseDocumentScoring(t *testing.T) {
	run := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return []byte("monthly invoice attached"), nil, nil
	}}
	segGen := &stubGen{out: `[` +
		`{"document_type":"license","fields":{},"text_span":"state medical board license"},` +
		`{"document_type":"invoice","fields":{}}` +
		`]`}
	p := newTestProcessor(run, &stubGen{}, &stubVisionGen{}, segGen)

	res := p.ProcessSegments(context.Background(), []byte("fake-png"), "stack.png")

	if res.Diagnostic != nil {
		t.Fatalf("unexpected diagnostic: %v", res.Diagnostic)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}

	// first segment has a span: score the span, not the document
	spanScores := p.SegmentScores(res.Segments[0], res.Text)
	if spanScores["license"] != 100 {
		t.Errorf("expected span scored for license, got %v", spanScores)
	}
	if spanScores["invoice"] == 100 {
		t.Errorf("span scoring must not see the document text, got %v", spanScores)
	}

	// second segment has no span: fall back to the whole document text
	docScores := p.SegmentScores(res.Segments[1], res.Text)
	if docScores["invoice"] != 100 {
		t.Errorf("expected document text scored for invoice, got %v", docScores)
	}

	if res.FuzzyScores["invoice"] != 100 {
		t.Errorf("expected document-level scores alongside segments, got %v", res.FuzzyScores)
	}
}

func TestProcessSegments_DiagnosticPassedThrough(t *testing.T) {
	run := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return []byte("some text"), nil, nil
	}}
	segGen := &stubGen{err: errors.New("backend down")}
	p := newTestProcessor(run, &stubGen{}, &stubVisionGen{}, segGen)

	res := p.ProcessSegments(context.Background(), []byte("fake-png"), "doc.png")

	if res.Segments != nil {
		t.Fatalf("expected no segments, got %v", res.Segments)
	}
	if res.Diagnostic.GetString(llm.KeyError) != "backend down" {
		t.Fatalf("expected segmentation diagnostic carried through, got %v", res.Diagnostic)
	}
}
