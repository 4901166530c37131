// Package ingest implements the idempotent folder-watching loop that applies
// the extraction pipeline to an inbox and routes outputs by document type.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/common"
	"github.com/doctriage/doctriage/internal/llm"
	"github.com/doctriage/doctriage/internal/pipeline"
)

// Pipeline is the processing contract the watcher drives. Satisfied by
// *pipeline.Processor; stubbed in tests.
type Pipeline interface {
	ProcessDocument(ctx context.Context, data []byte, filename, model string) pipeline.DocumentResult
	ProcessSegments(ctx context.Context, data []byte, filename string) pipeline.SegmentsResult
	SegmentScores(seg llm.Segment, docText string) map[string]float64
}

type Config struct {
	InboxDir  string
	OutboxDir string
	Interval  time.Duration // poll tick, default 2s

	SegmentMode bool // segmenting extractor vs. single-record hybrid path
	NotifyWake  bool // fs events trigger an immediate scan instead of waiting out the tick

	MaxProcessed int // bound on the processed set, 0 = unbounded
}

type Watcher struct {
	cfg       Config
	proc      Pipeline
	logger    *slog.Logger
	processed *processedSet
}

func NewWatcher(cfg Config, proc Pipeline, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Watcher{
		cfg:       cfg,
		proc:      proc,
		logger:    logger,
		processed: newProcessedSet(cfg.MaxProcessed),
	}
}

// Run polls the inbox until ctx is cancelled. Each tick enumerates candidate
// files and processes those whose identity key has not been seen; a failing
// file stays eligible and is retried every tick until it succeeds or is
// removed.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.InboxDir, 0o755); err != nil {
		return fmt.Errorf("create inbox: %w", err)
	}
	if err := os.MkdirAll(w.cfg.OutboxDir, 0o755); err != nil {
		return fmt.Errorf("create outbox: %w", err)
	}
	w.logger.Info("watcher.start",
		"inbox", w.cfg.InboxDir,
		"outbox", w.cfg.OutboxDir,
		"interval", w.cfg.Interval,
		"segment_mode", w.cfg.SegmentMode,
	)

	wake := w.notifyChannel(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	w.scan(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher.stop", "processed", w.processed.Len())
			return ctx.Err()
		case <-ticker.C:
			w.scan(ctx)
		case <-wake:
			w.scan(ctx)
		}
	}
}

// notifyChannel wires a best-effort fsnotify wake-up. A nil channel (wake
// disabled or watcher unavailable) just means scans happen on ticks alone.
func (w *Watcher) notifyChannel(ctx context.Context) <-chan struct{} {
	if !w.cfg.NotifyWake {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("watcher.notify_unavailable", "error", err)
		return nil
	}
	if err := fsw.Add(w.cfg.InboxDir); err != nil {
		w.logger.Warn("watcher.notify_add_failed", "inbox", w.cfg.InboxDir, "error", err)
		_ = fsw.Close()
		return nil
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer func() { _ = fsw.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-fsw.Events:
				if !ok {
					return
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					select {
					case wake <- struct{}{}:
					default:
					}
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watcher.notify_error", "error", err)
			}
		}
	}()
	return wake
}

// scan enumerates the inbox once and processes new candidates in
// directory-enumeration order.
func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.InboxDir)
	if err != nil {
		w.logger.Error("watcher.scan_failed", "inbox", w.cfg.InboxDir, "error", err)
		return
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !constants.IsAllowedExt(filepath.Ext(name)) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		key := identityKey(name, info.ModTime().UnixNano(), info.Size())
		if w.processed.Has(key) {
			continue
		}

		path := filepath.Join(w.cfg.InboxDir, name)
		if err := w.processFile(ctx, path); err != nil {
			w.logger.Error("watcher.process_failed", "file", name, "error", err)
			w.writeErrorArtifact(name, err)
			continue // not marked; retried next tick
		}
		w.processed.Add(key)
		w.logger.Info("watcher.processed", "file", name)
	}
}

func (w *Watcher) processFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.WrapError(err, "read input")
	}
	name := filepath.Base(path)
	if w.cfg.SegmentMode {
		return w.writeSegmentOutputs(w.proc.ProcessSegments(ctx, data, name))
	}
	return w.writeDocumentOutput(w.proc.ProcessDocument(ctx, data, name, ""))
}

// writeSegmentOutputs writes one JSON file per segment into the outbox
// subdirectory named by the segment's resolved document type. An empty segment
// list writes nothing and still counts as success. When segmentation itself
// produced a diagnostic record, a single fallback file lands at the outbox
// root so nothing is silently lost.
func (w *Watcher) writeSegmentOutputs(res pipeline.SegmentsResult) error {
	stem := fileStem(res.Filename)

	if res.Diagnostic != nil {
		payload := map[string]any{
			"filename":     res.Filename,
			"ocr_meta":     res.OCRMeta,
			"text":         res.Text,
			"categories":   res.Diagnostic,
			"fuzzy_scores": res.FuzzyScores,
		}
		return w.writeJSON(filepath.Join(w.cfg.OutboxDir, stem+".json"), payload)
	}

	for idx, seg := range res.Segments {
		folder := filepath.Join(w.cfg.OutboxDir, docTypeFolder(seg.DocumentType))
		if err := os.MkdirAll(folder, 0o755); err != nil {
			return fmt.Errorf("create outbox folder: %w", err)
		}
		payload := map[string]any{
			"filename":      res.Filename,
			"segment_index": idx + 1,
			"ocr_meta":      res.OCRMeta,
			"segment":       seg,
			"fuzzy_scores":  w.proc.SegmentScores(seg, res.Text),
		}
		out := filepath.Join(folder, fmt.Sprintf("%s.segment%d.json", stem, idx+1))
		if err := w.writeJSON(out, payload); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) writeDocumentOutput(res pipeline.DocumentResult) error {
	folder := filepath.Join(w.cfg.OutboxDir, docTypeFolder(res.Record.DocumentType))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create outbox folder: %w", err)
	}
	return w.writeJSON(filepath.Join(folder, fileStem(res.Filename)+".json"), res)
}

func (w *Watcher) writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// writeErrorArtifact best-effort records the failure next to the outputs.
func (w *Watcher) writeErrorArtifact(name string, procErr error) {
	if err := os.MkdirAll(w.cfg.OutboxDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(w.cfg.OutboxDir, fileStem(name)+".error.txt")
	if err := os.WriteFile(path, []byte(procErr.Error()), 0o644); err != nil {
		w.logger.Warn("watcher.error_artifact_failed", "file", name, "error", err)
	}
}

func identityKey(name string, mtimeNs, size int64) string {
	return fmt.Sprintf("%s:%d:%d", name, mtimeNs, size)
}

func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// docTypeFolder resolves the outbox subdirectory for a segment's document
// type, falling back to "uncategorized" and refusing path separators from
// backend output.
func docTypeFolder(docType string) string {
	dt := strings.TrimSpace(docType)
	if dt == "" {
		return "uncategorized"
	}
	dt = filepath.Base(filepath.Clean(dt))
	if dt == "." || dt == string(filepath.Separator) || dt == ".." {
		return "uncategorized"
	}
	return dt
}
