package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doctriage/doctriage/internal/api"
	"github.com/doctriage/doctriage/internal/common"
	"github.com/doctriage/doctriage/internal/extractor"
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
	handler := api.NewServer(proc, logger, cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
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
