package export

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeOutput(t *testing.T, outbox, rel string, payload map[string]any) {
	t.Helper()
	path := filepath.Join(outbox, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExportXLSX_RoundTrip(t *testing.T) {
	outbox := t.TempDir()
	writeOutput(t, outbox, "license/scan.segment1.json", map[string]any{
		"filename":      "scan.pdf",
		"segment_index": 1,
		"ocr_meta":      map[string]any{"pages": 2, "source": "pdf+ocr"},
		"segment": map[string]any{
			"document_type": "license",
			"fields": map[string]any{
				"name":      "Jane Doe",
				"id_number": "L-1234",
			},
		},
	})
	writeOutput(t, outbox, "invoice/bill.json", map[string]any{
		"filename": "bill.pdf",
		"ocr_meta": map[string]any{"pages": 1, "source": "pdf-text"},
		"record": map[string]any{
			"document_type": "invoice",
			"name":          "Acme Corp",
			"amount":        149.99,
			"date":          "2026-01-15",
			"confidence":    map[string]any{"document_type": 0.95},
		},
	})

	svc := NewService(quietLogger())
	data, err := svc.ExportXLSX(outbox)
	if err != nil {
		t.Fatal(err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a readable workbook: %v", err)
	}
	defer func() { _ = wb.Close() }()

	rows, err := wb.GetRows("Documents")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Category" {
		t.Errorf("expected header row, got %v", rows[0])
	}
	// sorted by category: invoice before license
	if rows[1][0] != "invoice" || rows[1][1] != "bill.pdf" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][4] != "Acme Corp" {
		t.Errorf("expected name column filled from record, got %v", rows[1])
	}
	if rows[1][7] != "149.99" {
		t.Errorf("expected amount column, got %v", rows[1])
	}
	if rows[1][13] != "0.95" {
		t.Errorf("expected document-type confidence column, got %v", rows[1])
	}
	if rows[2][0] != "license" || rows[2][6] != "L-1234" {
		t.Errorf("unexpected segment row: %v", rows[2])
	}
}

func TestExportXLSX_SkipsMalformedFiles(t *testing.T) {
	outbox := t.TempDir()
	if err := os.WriteFile(filepath.Join(outbox, "broken.json"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeOutput(t, outbox, "other/ok.json", map[string]any{
		"filename": "ok.pdf",
		"record":   map[string]any{"document_type": "other"},
	})

	svc := NewService(quietLogger())
	data, err := svc.ExportXLSX(outbox)
	if err != nil {
		t.Fatalf("malformed files must not fail the export: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Documents")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(rows))
	}
}

func TestExportXLSX_EmptyOutbox(t *testing.T) {
	svc := NewService(quietLogger())
	data, err := svc.ExportXLSX(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = wb.Close() }()
	rows, err := wb.GetRows("Documents")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d", len(rows))
	}
}
