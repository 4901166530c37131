package llm

import (
	"strings"
	"unicode/utf8"
)

// Prompt budgets keep backend payloads bounded; long documents are truncated,
// not rejected.
const (
	textPromptBudget    = 12000
	segmentPromptBudget = 16000
)

// TextSystemPrompt instructs a text backend to emit one strict JSON record.
func TextSystemPrompt(docTypes []string) string {
	return "You are a precise information extractor for administrative documents.\n" +
		"Given raw OCR text, return STRICT JSON with these keys: \n" +
		"- document_type: one of [" + strings.Join(docTypes, ", ") + "] \n" +
		"- name: full name if present or null \n" +
		"- date: main date in ISO 8601 YYYY-MM-DD or null \n" +
		"- id_number: primary identifier (registration/roll/policy/etc) or null \n" +
		"- amount, address, email, phone: nullable \n" +
		"- extra: object containing any additional key/values (nullable).\n" +
		"Rules: No markdown, no code fences, only a single JSON object. Use null when unknown. Validate: if uncertain, prefer null."
}

// SegmentSystemPrompt instructs a backend to segment multi-document input and
// classify each segment.
func SegmentSystemPrompt(docTypes []string) string {
	return "You are an expert document triage and extraction system. Given raw OCR text that may contain one or " +
		"more documents back-to-back, segment the text into logical documents and for each segment return a " +
		"JSON object with: document_type (from [" + strings.Join(docTypes, ", ") + "]), " +
		"fields (key-value map like name/date/id_number/amount/address/phone/email/etc), " +
		"and an optional text_span excerpt. Return a JSON array only. Use nulls when unknown."
}

// VisionSystemPrompt instructs a vision backend to extract the same record
// shape from page images.
func VisionSystemPrompt(docTypes []string) string {
	return "You are a precise vision information extractor for administrative documents. " +
		"Return STRICT JSON with keys: document_type (from [" + strings.Join(docTypes, ", ") + "]), " +
		"name, date (YYYY-MM-DD), id_number, amount, address, email, phone, extra (object). Use null when unknown."
}

// VisionUserPrompt is the per-call instruction accompanying page images.
const VisionUserPrompt = "Analyze these page images and extract the fields. Return ONLY a JSON object."

func BuildTextPrompt(text string) string {
	return "OCR TEXT:\n" + TruncateUTF8(text, textPromptBudget) + "\n\nReturn ONLY the JSON object."
}

func BuildSegmentPrompt(text string) string {
	return "OCR TEXT:\n" + TruncateUTF8(text, segmentPromptBudget) + "\n\nReturn ONLY the JSON array."
}

// TruncateUTF8 cuts s to at most n bytes without splitting a rune.
func TruncateUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	// back off a partial UTF-8 sequence at the cut point
	for len(cut) > 0 && !utf8.RuneStart(cut[len(cut)-1]) {
		cut = cut[:len(cut)-1]
	}
	if r, size := utf8.DecodeLastRuneInString(cut); r == utf8.RuneError && size <= 1 && len(cut) > 0 {
		// a lone leading byte survived the backoff
		cut = cut[:len(cut)-1]
	}
	return cut
}
