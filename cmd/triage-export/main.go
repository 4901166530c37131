package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/doctriage/doctriage/internal/common"
	"github.com/doctriage/doctriage/internal/export"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	outbox := flag.String("outbox", cfg.Watcher.OutboxDir, "outbox directory to export")
	out := flag.String("out", "documents.xlsx", "path of the XLSX file to write")
	flag.Parse()

	svc := export.NewService(logger)
	data, err := svc.ExportXLSX(*outbox)
	if err != nil {
		logger.Error("export failed", "outbox", *outbox, "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		logger.Error("write workbook", "path", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("export written", "path", *out, "bytes", len(data))
}
