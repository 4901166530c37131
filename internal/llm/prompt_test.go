package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateUTF8_ShortInputUnchanged(t *testing.T) {
	if got := TruncateUTF8("hello", 10); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
	if got := TruncateUTF8("hello", 5); got != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestTruncateUTF8_NeverSplitsRune(t *testing.T) {
	// 3-byte runes; most cut points land mid-sequence.
	s := strings.Repeat("界", 10)
	for n := 0; n <= len(s); n++ {
		got := TruncateUTF8(s, n)
		if len(got) > n {
			t.Fatalf("n=%d: result %d bytes exceeds cap", n, len(got))
		}
		if !utf8.ValidString(got) {
			t.Fatalf("n=%d: result %q is not valid UTF-8", n, got)
		}
	}
}

func TestTruncateUTF8_BacksOffLeadByte(t *testing.T) {
	// Cutting "aé" at 2 bytes leaves a lone lead byte that must go.
	if got := TruncateUTF8("aé", 2); got != "a" {
		t.Fatalf("got %q, want %q", got, "a")
	}
}

func TestBuildTextPrompt_BoundsLongDocuments(t *testing.T) {
	p := BuildTextPrompt(strings.Repeat("界", textPromptBudget))
	if len(p) > textPromptBudget+512 {
		t.Fatalf("prompt %d bytes, want bounded near %d", len(p), textPromptBudget)
	}
	if !utf8.ValidString(p) {
		t.Fatal("prompt is not valid UTF-8")
	}
}
