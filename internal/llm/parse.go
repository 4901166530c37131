package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var reFenceOpen = regexp.MustCompile("^```[a-zA-Z0-9]*\n?")

// StripFences removes markdown code-fence markup wrapping a backend response.
func StripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = reFenceOpen.ReplaceAllString(cleaned, "")
		if strings.HasSuffix(cleaned, "```") {
			cleaned = cleaned[:len(cleaned)-3]
		}
	}
	return strings.TrimSpace(cleaned)
}

// DecodeObject parses a backend response as a JSON object. If direct parsing
// fails it tries the outermost {...} substring before giving up.
func DecodeObject(output string) (Record, error) {
	cleaned := StripFences(output)

	var rec Record
	if err := json.Unmarshal([]byte(cleaned), &rec); err == nil && rec != nil {
		return rec, nil
	}

	sub, ok := outermost(cleaned, '{', '}')
	if !ok {
		return nil, errNotJSON
	}
	if err := json.Unmarshal([]byte(sub), &rec); err != nil || rec == nil {
		return nil, errNotJSON
	}
	return rec, nil
}

// DecodeSegments parses a backend response as a JSON array of segments. A bare
// object is wrapped into a one-element list; recovery looks for the outermost
// [...] substring.
func DecodeSegments(output string) ([]Segment, error) {
	cleaned := StripFences(output)

	if segs, err := decodeSegmentList(cleaned); err == nil {
		return segs, nil
	}
	if rec, err := DecodeObject(cleaned); err == nil {
		return []Segment{segmentFromRecord(rec)}, nil
	}
	sub, ok := outermost(cleaned, '[', ']')
	if !ok {
		return nil, errNotJSON
	}
	return decodeSegmentList(sub)
}

func decodeSegmentList(s string) ([]Segment, error) {
	var segs []Segment
	if err := json.Unmarshal([]byte(s), &segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func segmentFromRecord(rec Record) Segment {
	seg := Segment{
		DocumentType: rec.GetString(KeyDocumentType),
		TextSpan:     rec.GetString("text_span"),
	}
	if fields, ok := rec["fields"].(map[string]any); ok {
		seg.Fields = fields
	} else {
		// flat object: treat its semantic keys as the field map
		seg.Fields = map[string]any{}
		for _, k := range SemanticKeys {
			if k == KeyDocumentType {
				continue
			}
			if v, ok := rec[k]; ok {
				seg.Fields[k] = v
			}
		}
	}
	return seg
}

func outermost(s string, open, close byte) (string, bool) {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, close)
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}

type notJSONError struct{}

func (notJSONError) Error() string { return "output is not valid JSON" }

var errNotJSON = notJSONError{}
