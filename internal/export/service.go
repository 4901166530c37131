// Package export produces XLSX summaries of the JSON records a watcher run
// left in the outbox tree.
package export

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Row is one flattened output record. Segment outputs and hybrid document
// outputs both map onto it; fields absent from a payload stay empty.
type Row struct {
	Category     string
	File         string
	SegmentIndex int
	DocumentType string
	Name         string
	Date         string
	IDNumber     string
	Amount       string
	Address      string
	Email        string
	Phone        string
	Source       string
	Pages        int
	Confidence   float64 // document_type confidence; 0 for segment outputs
}

// Service builds XLSX workbooks from an outbox directory.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX walks outboxDir for *.json outputs and returns a workbook (as
// bytes) with one row per record, sorted by category then file name.
func (s *Service) ExportXLSX(outboxDir string) ([]byte, error) {
	start := time.Now()

	rows, err := s.collect(outboxDir)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		if rows[i].File != rows[j].File {
			return rows[i].File < rows[j].File
		}
		return rows[i].SegmentIndex < rows[j].SegmentIndex
	})

	f := excelize.NewFile()
	const sheet = "Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIndex, _ := f.GetSheetIndex("Sheet1"); defIndex != -1 && defIndex != activeIndex {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Category",
		"File",
		"Segment",
		"Document Type",
		"Name",
		"Date",
		"ID Number",
		"Amount",
		"Address",
		"Email",
		"Phone",
		"Source",
		"Pages",
		"Type Confidence",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		rowNum := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.Category)
		write(2, r.File)
		if r.SegmentIndex > 0 {
			write(3, r.SegmentIndex)
		}
		write(4, r.DocumentType)
		write(5, r.Name)
		write(6, r.Date)
		write(7, r.IDNumber)
		write(8, r.Amount)
		write(9, truncate(r.Address, 140))
		write(10, r.Email)
		write(11, r.Phone)
		write(12, r.Source)
		if r.Pages > 0 {
			write(13, r.Pages)
		}
		if r.Confidence > 0 {
			write(14, r.Confidence)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // category
	_ = f.SetColWidth(sheet, "B", "B", 32) // file
	_ = f.SetColWidth(sheet, "D", "D", 20) // document type
	_ = f.SetColWidth(sheet, "E", "E", 28) // name
	_ = f.SetColWidth(sheet, "F", "H", 16) // date, id, amount
	_ = f.SetColWidth(sheet, "I", "I", 40) // address
	_ = f.SetColWidth(sheet, "J", "K", 22) // email, phone

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"outbox", outboxDir,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// collect reads every *.json under outboxDir. The category is the directory
// immediately under the outbox root; files at the root (diagnostic fallbacks)
// get an empty category. Unreadable or malformed files are skipped with a
// warning rather than failing the whole export.
func (s *Service) collect(outboxDir string) ([]Row, error) {
	var rows []Row
	err := filepath.WalkDir(outboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("export.read_failed", "path", path, "error", err)
			return nil
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			s.logger.Warn("export.decode_failed", "path", path, "error", err)
			return nil
		}
		rows = append(rows, rowFromPayload(category(outboxDir, path), payload))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk outbox: %w", err)
	}
	return rows, nil
}

func category(outboxDir, path string) string {
	rel, err := filepath.Rel(outboxDir, path)
	if err != nil {
		return ""
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return ""
	}
	return strings.Split(filepath.ToSlash(dir), "/")[0]
}

func rowFromPayload(cat string, payload map[string]any) Row {
	r := Row{Category: cat}
	r.File = str(payload["filename"])
	r.SegmentIndex = num(payload["segment_index"])

	if meta, ok := payload["ocr_meta"].(map[string]any); ok {
		r.Source = str(meta["source"])
		r.Pages = num(meta["pages"])
	}

	// Hybrid document outputs carry the fused record; segment outputs carry
	// the segment's document_type plus a fields map.
	if rec, ok := payload["record"].(map[string]any); ok {
		r.DocumentType = str(rec["document_type"])
		if conf, ok := rec["confidence"].(map[string]any); ok {
			if f, ok := conf["document_type"].(float64); ok {
				r.Confidence = f
			}
		}
		fillFields(&r, rec)
		return r
	}
	if seg, ok := payload["segment"].(map[string]any); ok {
		r.DocumentType = str(seg["document_type"])
		if fields, ok := seg["fields"].(map[string]any); ok {
			fillFields(&r, fields)
		}
	}
	return r
}

func fillFields(r *Row, fields map[string]any) {
	r.Name = str(fields["name"])
	r.Date = str(fields["date"])
	r.IDNumber = str(fields["id_number"])
	r.Amount = str(fields["amount"])
	r.Address = str(fields["address"])
	r.Email = str(fields["email"])
	r.Phone = str(fields["phone"])
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return formatNum(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatNum(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%.2f", f)
}

func num(v any) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
