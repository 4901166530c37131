package extractor

import (
	"context"
	"log/slog"

	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/llm"
)

// Segmenter asks a backend to both split multi-document input and classify
// each segment.
type Segmenter struct {
	Gen    llm.Generator
	Model  string
	Logger *slog.Logger
}

func NewSegmenter(gen llm.Generator, model string, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{Gen: gen, Model: model, Logger: logger}
}

// Segment returns the ordered segment records for the text. When the backend
// call or parsing fails, segments is nil and the second return value is a
// diagnostic record the caller writes through unchanged.
func (s *Segmenter) Segment(ctx context.Context, text, model string) ([]llm.Segment, llm.Record) {
	if model == "" {
		model = s.Model
	}
	prompt := llm.BuildSegmentPrompt(text)

	out, err := s.Gen.Generate(ctx, llm.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: llm.SegmentSystemPrompt(constants.DocTypeStrings()),
	})
	if err != nil {
		s.Logger.Error("extractor.segment.backend_error", "model", model, "error", err)
		return nil, llm.Record{
			llm.KeyError:       err.Error(),
			llm.KeyDebugPrompt: prompt,
		}
	}

	segs, perr := llm.DecodeSegments(out)
	if perr != nil {
		s.Logger.Warn("extractor.segment.unparseable", "model", model, "bytes", len(out))
		return nil, llm.Record{
			llm.KeyRaw:         out,
			llm.KeyDebugPrompt: prompt,
			llm.KeyDebugRaw:    out,
		}
	}
	s.Logger.Info("extractor.segment.ok", "model", model, "segments", len(segs))
	return segs, nil
}
