package concepts

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/poiesic/graphrag/core"
)

// Parse turns a raw model reply into a sanitized fragment. It never fails:
// anything it cannot make sense of yields the empty fragment.
//
// Order of attempts: strip code fences, parse the whole reply, parse the first
// balanced JSON object found in it, repair that object, repair the text from
// the first '{' onward.
func Parse(reply string) core.Fragment {
	text := stripFences(reply)
	if text == "" {
		return core.Fragment{}
	}

	if raw, ok := decodeObject(text); ok {
		return sanitize(raw)
	}

	if obj := firstObject(text); obj != "" {
		if raw, ok := decodeObject(obj); ok {
			return sanitize(raw)
		}
		if raw, ok := repairObject(obj); ok {
			return sanitize(raw)
		}
	}

	if start := strings.IndexByte(text, '{'); start >= 0 {
		if raw, ok := repairObject(text[start:]); ok {
			return sanitize(raw)
		}
	}

	return core.Fragment{}
}

func repairObject(s string) (map[string]json.RawMessage, bool) {
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	return decodeObject(repaired)
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeObject succeeds only for a JSON object.
func decodeObject(s string) (map[string]json.RawMessage, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil || raw == nil {
		return nil, false
	}
	return raw, true
}

// firstObject returns the first brace-balanced {...} span of s, skipping
// braces inside string literals, or "" when none closes.
func firstObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func sanitize(raw map[string]json.RawMessage) core.Fragment {
	var frag core.Fragment

	var concepts []any
	if err := json.Unmarshal(raw["concepts"], &concepts); err == nil {
		for _, c := range concepts {
			if name, ok := scalarString(c); ok {
				frag.Concepts = append(frag.Concepts, name)
			}
		}
	}

	var edges []any
	if err := json.Unmarshal(raw["edges"], &edges); err == nil {
		for _, e := range edges {
			if t, ok := toTriple(e); ok {
				frag.Edges = append(frag.Edges, t)
			}
		}
	}

	return frag
}

// scalarString accepts non-empty strings (trimmed) and numbers (stringified).
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}

// toTriple accepts a list of at least three scalars; extra elements are ignored.
func toTriple(v any) (core.Triple, bool) {
	parts, ok := v.([]any)
	if !ok || len(parts) < 3 {
		return core.Triple{}, false
	}

	var fields [3]string
	for i := range fields {
		s, ok := scalarString(parts[i])
		if !ok {
			return core.Triple{}, false
		}
		fields[i] = s
	}
	return core.Triple{Source: fields[0], Relation: fields[1], Target: fields[2]}, true
}
