// Package extractor implements the structured extractors sitting between raw
// document text/images and the fusion engine. Extraction failure is a data
// condition: every extractor returns a record (possibly diagnostic), never an
// error.
package extractor

import (
	"context"
	"log/slog"

	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/llm"
)

// Text asks a text-capable backend for one structured record per document.
type Text struct {
	Gen    llm.Generator
	Model  string // default model identifier
	Logger *slog.Logger

	schema map[string]any
}

func NewText(gen llm.Generator, model string, logger *slog.Logger) *Text {
	if logger == nil {
		logger = slog.Default()
	}
	return &Text{
		Gen:    gen,
		Model:  model,
		Logger: logger,
		schema: llm.BuildDocumentJSONSchema(constants.DocTypeStrings()),
	}
}

// Extract returns a structured record for the text, or a diagnostic record
// ({error: ...} on backend failure, {raw: ...} on unparseable output). The
// prompt and raw response ride along under the private debug keys.
func (t *Text) Extract(ctx context.Context, text, model string) llm.Record {
	if model == "" {
		model = t.Model
	}
	prompt := llm.BuildTextPrompt(text)

	out, err := t.Gen.Generate(ctx, llm.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: llm.TextSystemPrompt(constants.DocTypeStrings()),
	})
	if err != nil {
		t.Logger.Error("extractor.text.backend_error", "model", model, "error", err)
		return llm.Record{llm.KeyError: err.Error()}
	}

	rec, perr := llm.DecodeObject(out)
	if perr != nil {
		t.Logger.Warn("extractor.text.unparseable", "model", model, "bytes", len(out))
		rec = llm.Record{llm.KeyRaw: out}
	} else if verr := llm.ValidateRecord(t.schema, rec); verr != nil {
		// advisory only; fusion enforces the vocabulary
		t.Logger.Warn("extractor.text.schema_mismatch", "model", model, "error", verr)
	}

	rec.SetDefault(llm.KeyDebugPrompt, prompt)
	rec.SetDefault(llm.KeyDebugRaw, out)
	return rec
}
