package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/doctriage/doctriage/internal/common"
	"github.com/doctriage/doctriage/internal/extractor"
	"github.com/doctriage/doctriage/internal/ingest"
	"github.com/doctriage/doctriage/internal/llm"
	"github.com/doctriage/doctriage/internal/llm/ollama"
	"github.com/doctriage/doctriage/internal/llm/openrouter"
	"github.com/doctriage/doctriage/internal/ocr"
	"github.com/doctriage/doctriage/internal/pipeline"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := buildProcessor(cfg, logger)

	watcher := ingest.NewWatcher(ingest.Config{
		InboxDir:     cfg.Watcher.InboxDir,
		OutboxDir:    cfg.Watcher.OutboxDir,
		Interval:     cfg.Watcher.Interval,
		SegmentMode:  cfg.Watcher.SegmentMode,
		NotifyWake:   cfg.Watcher.NotifyWake,
		MaxProcessed: cfg.Watcher.MaxProcessed,
	}, proc, logger)

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher exited", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func buildProcessor(cfg *common.Config, logger *slog.Logger) *pipeline.Processor {
	ocrx := ocr.NewExtractor(ocr.Config{
		Pdftotext:          cfg.OCR.Pdftotext,
		Pdftoppm:           cfg.OCR.Pdftoppm,
		Tesseract:          cfg.OCR.Tesseract,
		TesseractLang:      cfg.OCR.TesseractLang,
		TesseractPSM:       cfg.OCR.TesseractPSM,
		TesseractOEM:       cfg.OCR.TesseractOEM,
		TesseractWhitelist: cfg.OCR.TesseractWhitelist,
		DPI:                cfg.OCR.DPI,
		BornDigitalCheck:   cfg.OCR.BornDigitalCheck,
		PDFMinChars:        cfg.OCR.PDFMinChars,
		PreprocessEnable:   cfg.OCR.PreprocessEnable,
		PreprocessDeskew:   cfg.OCR.PreprocessDeskew,
		PreprocessDenoise:  cfg.OCR.PreprocessDenoise,
	}, logger)

	textClient := ollama.New(ollama.Config{
		BaseURL:     cfg.LLM.OllamaBase,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	segClient := ollama.New(ollama.Config{
		BaseURL:     cfg.LLM.OllamaBase,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.SegmentTimeout,
	}, logger)

	var visionGen llm.VisionGenerator
	visionModel := cfg.Vision.OllamaModel
	if cfg.Vision.OpenRouterAPIKey != "" {
		visionGen = openrouter.New(openrouter.Config{
			APIKey:      cfg.Vision.OpenRouterAPIKey,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.Vision.Timeout,
		}, logger)
		visionModel = cfg.Vision.OpenRouterModel
	} else {
		visionGen = ollama.New(ollama.Config{
			BaseURL:     cfg.LLM.OllamaBase,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.Vision.Timeout,
		}, logger)
	}

	proc := pipeline.NewProcessor(
		logger,
		ocrx,
		extractor.NewText(textClient, cfg.LLM.Model, logger),
		extractor.NewVision(visionGen, visionModel, cfg.Vision.PageBudget, logger),
		extractor.NewSegmenter(segClient, cfg.LLM.Model, logger),
		pipeline.KeywordsFile(cfg.Watcher.ConfigDir),
	)
	proc.DPI = cfg.OCR.DPI
	return proc
}
