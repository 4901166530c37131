package extractor

import (
	"context"
	"log/slog"

	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/llm"
)

// fallbackModels are known-good vision identifiers tried after the preferred
// one, in fixed priority order.
var fallbackModels = []string{"qwen2.5-vl", "llama3.2-vision"}

// Vision asks a vision-capable backend for one structured record per document,
// retrying across a fixed candidate model chain before giving up.
type Vision struct {
	Gen        llm.VisionGenerator
	Model      string // preferred model identifier
	PageBudget int    // max images per call, default 2
	Logger     *slog.Logger
}

func NewVision(gen llm.VisionGenerator, model string, pageBudget int, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	if pageBudget <= 0 {
		pageBudget = 2
	}
	return &Vision{Gen: gen, Model: model, PageBudget: pageBudget, Logger: logger}
}

// Extract runs the candidate chain over the page images. The parsed output of
// the first successful call wins; if every candidate fails, the last error
// message observed becomes a {raw: ...} diagnostic record.
func (v *Vision) Extract(ctx context.Context, pages [][]byte, model string) llm.Record {
	if model == "" {
		model = v.Model
	}
	if len(pages) > v.PageBudget {
		pages = pages[:v.PageBudget]
	}

	system := llm.VisionSystemPrompt(constants.DocTypeStrings())
	output := ""
	lastErr := "vision generate failed"
	for _, m := range v.candidates(model) {
		out, err := v.Gen.GenerateVision(ctx, llm.GenerateRequest{
			Model:  m,
			Prompt: llm.VisionUserPrompt,
			System: system,
		}, pages)
		if err != nil {
			v.Logger.Warn("extractor.vision.candidate_failed", "model", m, "error", err)
			lastErr = err.Error()
			continue
		}
		v.Logger.Info("extractor.vision.ok", "model", m, "pages", len(pages))
		output = out
		break
	}
	if output == "" {
		output = lastErr
	}

	rec, perr := llm.DecodeObject(output)
	if perr != nil {
		rec = llm.Record{llm.KeyRaw: output}
	}
	rec.SetDefault(llm.KeyDebugPrompt, llm.VisionUserPrompt)
	rec.SetDefault(llm.KeyDebugRaw, output)
	return rec
}

func (v *Vision) candidates(preferred string) []string {
	out := []string{preferred}
	for _, m := range fallbackModels {
		if m != preferred {
			out = append(out, m)
		}
	}
	return out
}
