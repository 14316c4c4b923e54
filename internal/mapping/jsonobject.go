package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"scoreparse/internal/domain"
)

// ParseJSONObject parses text as a JSON object. When text is not a bare
// object, the first balanced top-level {...} span is tried, then the span
// from the first '{' to the last '}'. Failures wrap domain.ErrMalformedMapping.
func ParseJSONObject(text string) (map[string]interface{}, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model output", domain.ErrMalformedMapping)
	}
	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}
	if span := firstObjectSpan(text); span != "" {
		if obj, ok := decodeObject(span); ok {
			return obj, nil
		}
	}
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if obj, ok := decodeObject(text[start : end+1]); ok {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: model output is not a JSON object", domain.ErrMalformedMapping)
}

func decodeObject(s string) (map[string]interface{}, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// firstObjectSpan returns the first brace-balanced {...} span, skipping
// braces inside JSON strings.
func firstObjectSpan(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
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
