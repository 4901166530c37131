// Package keyword computes a per-category fuzzy relevance signal reported
// alongside structured records. It never gates or overrides the LLM-derived
// document type.
package keyword

import (
	"encoding/json"
	"os"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// DefaultKeywords is the seed category table used when no keywords.json is
// configured or it cannot be parsed.
var DefaultKeywords = map[string][]string{
	"license": {"license", "licence", "registration", "state medical board"},
	"form":    {"form", "application", "questionnaire", "disclosure"},
	"invoice": {"invoice", "bill", "statement", "amount due"},
	"id":      {"id", "identification", "passport", "driver"},
}

// Load reads a category→keywords table from path, falling back to the seed
// table on any error. The file replaces the seed wholesale; tables are not
// merged.
func Load(path string) map[string][]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultKeywords
	}
	var table map[string][]string
	if err := json.Unmarshal(data, &table); err != nil || len(table) == 0 {
		return DefaultKeywords
	}
	return table
}

// Scores computes the fuzzy partial-containment score of the text against each
// category: the category's score is the best partial ratio over its keywords,
// on a 0..100 scale. Scoring depends only on (text, table); one entry per
// configured category is always present.
func Scores(text string, table map[string][]string) map[string]float64 {
	result := make(map[string]float64, len(table))
	for category, words := range table {
		best := 0.0
		for _, w := range words {
			if score := float64(fuzzy.PartialRatio(text, w)); score > best {
				best = score
			}
		}
		result[category] = best
	}
	return result
}
