// Package fuse reconciles two independently-produced structured records for
// the same document into one record with per-field confidence and provenance.
// Fuse is a pure function: no I/O, no hidden state, identical inputs always
// yield identical outputs.
package fuse

import (
	"github.com/doctriage/doctriage/constants"
	"github.com/doctriage/doctriage/internal/llm"
)

// Provenance values for fused fields.
const (
	ProvBoth   = "both"
	ProvText   = "text"
	ProvVision = "vision"
	ProvNone   = "none"
)

// FusedRecord is the reconciled output. Created once per document, never
// mutated afterward.
type FusedRecord struct {
	DocumentType string `json:"document_type"`
	Name         any    `json:"name"`
	Date         any    `json:"date"`
	IDNumber     any    `json:"id_number"`
	Amount       any    `json:"amount"`
	Address      any    `json:"address"`
	Email        any    `json:"email"`
	Phone        any    `json:"phone"`
	Extra        any    `json:"extra"`

	Confidence map[string]float64 `json:"confidence"`
	Provenance map[string]string  `json:"provenance"`
}

type decision struct {
	value any
	prov  string
	conf  float64
}

// A rule inspects the normalized candidate pair for one field and either
// decides or passes. Rules run in fixed order; the first decision wins, so
// exact agreement always beats any modality heuristic.
type rule func(field string, tv, vv any) (decision, bool)

var (
	visionDominant = map[string]struct{}{
		llm.KeyDocumentType: {},
		llm.KeyName:         {},
		llm.KeyIDNumber:     {},
	}
	textDominant = map[string]struct{}{
		llm.KeyAddress: {},
	}
)

var rules = []rule{
	// agreement: both present and equal after normalization
	func(field string, tv, vv any) (decision, bool) {
		if tv != nil && vv != nil && canon(tv) == canon(vv) {
			return decision{tv, ProvBoth, 0.95}, true
		}
		return decision{}, false
	},
	// visually-dominant field classes trust vision when it answered
	func(field string, tv, vv any) (decision, bool) {
		if _, ok := visionDominant[field]; ok && vv != nil {
			return decision{vv, ProvVision, 0.8}, true
		}
		return decision{}, false
	},
	// text-dominant field classes trust text when it answered
	func(field string, tv, vv any) (decision, bool) {
		if _, ok := textDominant[field]; ok && tv != nil {
			return decision{tv, ProvText, 0.8}, true
		}
		return decision{}, false
	},
	// availability: vision first, then text
	func(field string, tv, vv any) (decision, bool) {
		if vv != nil {
			return decision{vv, ProvVision, 0.6}, true
		}
		if tv != nil {
			return decision{tv, ProvText, 0.6}, true
		}
		return decision{}, false
	},
}

// Fuse merges a text-derived and a vision-derived record field by field.
// Either record may be nil or diagnostic; missing sides simply contribute no
// candidates. The document-type vocabulary is enforced here and only here.
func Fuse(textRec, visionRec llm.Record) FusedRecord {
	out := FusedRecord{
		Confidence: make(map[string]float64, len(llm.SemanticKeys)),
		Provenance: make(map[string]string, len(llm.SemanticKeys)),
	}

	for _, field := range llm.SemanticKeys {
		d := choose(field, candidate(textRec, field), candidate(visionRec, field))
		out.Confidence[field] = d.conf
		out.Provenance[field] = d.prov

		switch field {
		case llm.KeyDocumentType:
			out.DocumentType = clampDocType(d.value)
		case llm.KeyName:
			out.Name = d.value
		case llm.KeyDate:
			out.Date = d.value
		case llm.KeyIDNumber:
			out.IDNumber = d.value
		case llm.KeyAmount:
			out.Amount = d.value
		case llm.KeyAddress:
			out.Address = d.value
		case llm.KeyEmail:
			out.Email = d.value
		case llm.KeyPhone:
			out.Phone = d.value
		}
	}

	// extra is taken whole from vision when present, else text; nested keys
	// are never merged.
	if v := candidate(visionRec, llm.KeyExtra); v != nil {
		out.Extra = v
	} else {
		out.Extra = candidate(textRec, llm.KeyExtra)
	}

	return out
}

func choose(field string, tv, vv any) decision {
	for _, r := range rules {
		if d, ok := r(field, tv, vv); ok {
			return d
		}
	}
	return decision{nil, ProvNone, 0.0}
}

// candidate pulls the normalized field value out of a record. Diagnostic
// records contribute nothing.
func candidate(rec llm.Record, field string) any {
	if rec == nil {
		return nil
	}
	v, ok := rec[field]
	if !ok || v == nil {
		return nil
	}
	return normalizeField(field, v)
}

// clampDocType coerces any out-of-vocabulary value (including null) to other.
// Membership is exact: near-misses are not rescued.
func clampDocType(v any) string {
	s, ok := v.(string)
	if !ok || !constants.IsDocType(s) {
		return string(constants.Other)
	}
	return s
}
