package keyword

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScores_SubstringScoresFull(t *testing.T) {
	text := "State Medical Board license renewal notice"
	scores := Scores(text, DefaultKeywords)

	if scores["license"] != 100 {
		t.Errorf("expected license score 100, got %v", scores["license"])
	}
	if len(scores) != len(DefaultKeywords) {
		t.Errorf("expected one entry per category, got %d", len(scores))
	}
}

func TestScores_BestKeywordWins(t *testing.T) {
	table := map[string][]string{"cat": {"zzzzzz", "invoice"}}
	scores := Scores("monthly invoice attached", table)
	if scores["cat"] != 100 {
		t.Errorf("expected max over keywords, got %v", scores["cat"])
	}
}

func TestScores_DeterministicAndBounded(t *testing.T) {
	text := "an unrelated body of text"
	first := Scores(text, DefaultKeywords)
	second := Scores(text, DefaultKeywords)
	for cat, s := range first {
		if s < 0 || s > 100 {
			t.Errorf("%s: score out of range: %v", cat, s)
		}
		if second[cat] != s {
			t.Errorf("%s: scoring not deterministic: %v vs %v", cat, s, second[cat])
		}
	}
}

func TestLoad_FileReplacesSeedWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.json")
	if err := os.WriteFile(path, []byte(`{"contracts":["agreement","party"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	table := Load(path)
	if _, ok := table["contracts"]; !ok {
		t.Fatal("expected configured category")
	}
	if _, ok := table["license"]; ok {
		t.Error("seed categories must not leak into a configured table")
	}
}

func TestLoad_FallsBackToSeed(t *testing.T) {
	if got := Load(filepath.Join(t.TempDir(), "missing.json")); len(got) != len(DefaultKeywords) {
		t.Errorf("missing file should fall back to seed, got %v", got)
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := Load(path); len(got) != len(DefaultKeywords) {
		t.Errorf("malformed file should fall back to seed, got %v", got)
	}
}
