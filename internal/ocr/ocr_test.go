package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/doctriage/doctriage/constants"
)

// stubRunner records invoked binaries and answers with a per-binary handler.
type stubRunner struct {
	calls   []string
	handler func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, name)
	return s.handler(name, args)
}

func (s *stubRunner) called(name string) int {
	n := 0
	for _, c := range s.calls {
		if c == name {
			n++
		}
	}
	return n
}

func newTestExtractor(t *testing.T, cfg Config, stub *stubRunner) *Extractor {
	t.Helper()
	e := NewExtractor(cfg, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	e.runner = stub
	return e
}

func TestExtractBytes_BornDigitalPDFSkipsRasterization(t *testing.T) {
	bornText := strings.Repeat("embedded text layer ", 10) + "\f page two \f page three"
	stub := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		if name != "pdftotext" {
			t.Fatalf("unexpected binary %q", name)
		}
		return []byte(bornText), nil, nil
	}}
	e := newTestExtractor(t, Config{BornDigitalCheck: true}, stub)

	// not a real PDF, so the in-process text layer read fails and the
	// pdftotext fallback answers
	text, meta := e.ExtractBytes(context.Background(), []byte("%PDF-garbage"), "doc.pdf")

	if meta.Source != constants.SourcePDFText {
		t.Fatalf("expected source %q, got %q", constants.SourcePDFText, meta.Source)
	}
	if meta.Pages != 3 {
		t.Errorf("expected 3 pages from form-feed count, got %d", meta.Pages)
	}
	if text == "" {
		t.Error("expected non-empty text")
	}
	if stub.called("pdftoppm") != 0 || stub.called("tesseract") != 0 {
		t.Errorf("born-digital path must not rasterize or OCR: calls=%v", stub.calls)
	}
}

func TestExtractBytes_ScannedPDFFallsBackToOCR(t *testing.T) {
	stub := &stubRunner{}
	stub.handler = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			// below the born-digital threshold
			return []byte("  a  "), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for i := 1; i <= 2; i++ {
				if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("recognized page text"), nil, nil
		}
		t.Fatalf("unexpected binary %q", name)
		return nil, nil, nil
	}
	e := newTestExtractor(t, Config{BornDigitalCheck: true}, stub)

	text, meta := e.ExtractBytes(context.Background(), []byte("%PDF-garbage"), "scan.pdf")

	if meta.Source != constants.SourcePDFOCR {
		t.Fatalf("expected source %q, got %q", constants.SourcePDFOCR, meta.Source)
	}
	if meta.Pages != 2 {
		t.Errorf("expected 2 pages, got %d", meta.Pages)
	}
	want := "recognized page text\n\nrecognized page text"
	if text != want {
		t.Errorf("expected per-page text joined by blank line, got %q", text)
	}
	if stub.called("tesseract") != 2 {
		t.Errorf("expected one tesseract run per page, got %d", stub.called("tesseract"))
	}
}

func TestExtractBytes_ImageGoesStraightToOCR(t *testing.T) {
	stub := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		if name != "tesseract" {
			t.Fatalf("unexpected binary %q", name)
		}
		return []byte("Hello\t\tWorld\r\n\r\n\r\n\r\nDone"), nil, nil
	}}
	e := newTestExtractor(t, Config{}, stub)

	text, meta := e.ExtractBytes(context.Background(), []byte("fake-png"), "photo.PNG")

	if meta.Source != constants.SourceImageOCR {
		t.Fatalf("expected source %q, got %q", constants.SourceImageOCR, meta.Source)
	}
	if meta.Pages != 1 {
		t.Errorf("expected 1 page, got %d", meta.Pages)
	}
	if text != "Hello World\n\nDone" {
		t.Errorf("expected normalized OCR text, got %q", text)
	}
}

func TestExtractBytes_OCRFailureReportsThroughMeta(t *testing.T) {
	stub := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("no such language pack"), fmt.Errorf("exit status 1")
	}}
	e := newTestExtractor(t, Config{}, stub)

	text, meta := e.ExtractBytes(context.Background(), []byte("fake"), "photo.jpg")

	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
	if meta.Error == "" {
		t.Fatal("expected error recorded in meta")
	}
}

func TestTesseractArgs_TuningFlags(t *testing.T) {
	var got []string
	stub := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		got = args
		return []byte("x"), nil, nil
	}}
	e := newTestExtractor(t, Config{
		TesseractLang:      "deu",
		TesseractPSM:       6,
		TesseractOEM:       1,
		TesseractWhitelist: "0123456789",
	}, stub)

	if _, err := e.tesseractOCR(context.Background(), "in.png"); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"in.png", "stdout", "-l", "deu", "--psm", "6", "--oem", "1",
		"-c", "tessedit_char_whitelist=0123456789",
	}, " ")
	if strings.Join(got, " ") != want {
		t.Errorf("tesseract args mismatch:\n got %q\nwant %q", strings.Join(got, " "), want)
	}
}

func TestRenderPages_NonPDFPassesBytesThrough(t *testing.T) {
	e := newTestExtractor(t, Config{}, &stubRunner{})

	data := []byte{0x89, 'P', 'N', 'G'}
	pages := e.RenderPages(context.Background(), data, "id.png", 0, 2)

	if len(pages) != 1 {
		t.Fatalf("expected single page, got %d", len(pages))
	}
	if string(pages[0]) != string(data) {
		t.Error("expected raw bytes passed through")
	}
}

func TestRenderPages_PDFHonorsPageBudget(t *testing.T) {
	stub := &stubRunner{}
	stub.handler = func(name string, args []string) ([]byte, []byte, error) {
		if name != "pdftoppm" {
			t.Fatalf("unexpected binary %q", name)
		}
		prefix := args[len(args)-1]
		for i := 1; i <= 3; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte(fmt.Sprintf("page%d", i)), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		return nil, nil, nil
	}
	e := newTestExtractor(t, Config{}, stub)

	pages := e.RenderPages(context.Background(), []byte("%PDF-garbage"), "doc.pdf", 0, 2)

	if len(pages) != 2 {
		t.Fatalf("expected page budget honored, got %d pages", len(pages))
	}
	if string(pages[0]) != "page1" || string(pages[1]) != "page2" {
		t.Errorf("expected pages in order, got %q, %q", pages[0], pages[1])
	}
}

func TestRenderPages_RasterizeFailureReturnsNil(t *testing.T) {
	stub := &stubRunner{handler: func(name string, args []string) ([]byte, []byte, error) {
		return nil, nil, fmt.Errorf("pdftoppm missing")
	}}
	e := newTestExtractor(t, Config{}, stub)

	if pages := e.RenderPages(context.Background(), []byte("%PDF-garbage"), "doc.pdf", 0, 0); pages != nil {
		t.Fatalf("expected nil on rasterize failure, got %d pages", len(pages))
	}
}

func TestIsBornDigital(t *testing.T) {
	if isBornDigital(strings.Repeat(" \n\t", 100), 50) {
		t.Error("whitespace-only text must not count as born-digital")
	}
	if !isBornDigital(strings.Repeat("ab ", 30), 50) {
		t.Error("expected 60 non-whitespace chars to pass a threshold of 50")
	}
	if isBornDigital("short", 50) {
		t.Error("expected short text to fail the threshold")
	}
}

func TestNormalize(t *testing.T) {
	in := "a\tb\r\nline   two   \n\n\n\n\nend\n"
	want := "a b\nline two\n\nend"
	if got := Normalize(in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
