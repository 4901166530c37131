package llm

// BuildDocumentJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing the structured record we ask backends for. It is used
// locally as an advisory validator: a record that fails validation is still
// returned (fusion clamps the vocabulary), the failure is only logged.
func BuildDocumentJSONSchema(docTypes []string) map[string]any {
	props := map[string]any{
		"document_type": map[string]any{"type": []string{"string", "null"}},
		"name":          nullableString(),
		"date":          map[string]any{"type": []string{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`},
		"id_number":     nullableString(),
		"amount":        map[string]any{"type": []string{"string", "number", "null"}},
		"address":       map[string]any{"type": []string{"string", "object", "null"}},
		"email":         nullableString(),
		"phone":         nullableString(),
		"extra":         map[string]any{"type": []string{"object", "null"}},
	}

	if len(docTypes) > 0 {
		enum := make([]any, 0, len(docTypes)+1)
		for _, t := range docTypes {
			enum = append(enum, t)
		}
		enum = append(enum, nil)
		props["document_type"] = map[string]any{"enum": enum}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"document_type"},
	}
}

func nullableString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}
