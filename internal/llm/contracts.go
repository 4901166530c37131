package llm

import "context"

// Record is a structured-extraction result as returned by a backend. Backends
// may emit anything here; the closed document-type vocabulary is enforced at
// fusion time, not at extraction time. Diagnostic results use the KeyRaw /
// KeyError keys instead of semantic fields.
type Record map[string]any

// Recognized semantic keys.
const (
	KeyDocumentType = "document_type"
	KeyName         = "name"
	KeyDate         = "date"
	KeyIDNumber     = "id_number"
	KeyAmount       = "amount"
	KeyAddress      = "address"
	KeyEmail        = "email"
	KeyPhone        = "phone"
	KeyExtra        = "extra"
)

// Diagnostic and audit keys. Debug keys are never treated as semantic fields.
const (
	KeyRaw         = "raw"
	KeyError       = "error"
	KeyDebugPrompt = "_debug_prompt"
	KeyDebugRaw    = "_debug_raw"
)

// SemanticKeys lists the eight fused fields in fusion order.
var SemanticKeys = []string{
	KeyDocumentType, KeyName, KeyDate, KeyIDNumber,
	KeyAmount, KeyAddress, KeyEmail, KeyPhone,
}

// GetString returns the value under key if it is a non-empty string.
func (r Record) GetString(key string) string {
	if r == nil {
		return ""
	}
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// IsDiagnostic reports whether the record carries no parsed structure.
func (r Record) IsDiagnostic() bool {
	if r == nil {
		return true
	}
	_, hasRaw := r[KeyRaw]
	_, hasErr := r[KeyError]
	return hasRaw || hasErr
}

// SetDefault mirrors map setdefault: assigns only when the key is absent.
func (r Record) SetDefault(key string, v any) {
	if _, ok := r[key]; !ok {
		r[key] = v
	}
}

// Segment is one logical document detected within a multi-document input.
// Sequence position equals document order in the source text.
type Segment struct {
	DocumentType string         `json:"document_type"`
	Fields       map[string]any `json:"fields"`
	TextSpan     string         `json:"text_span,omitempty"`
}

// GenerateRequest is a prompt/system-instruction pair for a text backend.
type GenerateRequest struct {
	Model  string
	Prompt string
	System string
}

// Generator produces a raw text completion from a structured-generation
// service. Implementations own transport, auth, and timeouts.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// VisionGenerator produces a completion from a prompt plus page images.
type VisionGenerator interface {
	GenerateVision(ctx context.Context, req GenerateRequest, images [][]byte) (string, error)
}
