package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"scoreparse/internal/domain"
	"scoreparse/internal/port"
)

// ParseEnvelope decodes a provider response envelope. Output text is the
// non-blank output_text segments of message items joined by newlines; usage
// counters default to 0. A non-empty error field fails even on HTTP 200.
func ParseEnvelope(endpoint string, body []byte) (*port.StructuredResponse, error) {
	var env map[string]interface{}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("reasoning: decode response from %s: %w", endpoint, err)
	}

	if e, ok := env["error"]; ok && present(e) {
		return nil, &NonRecoverableError{
			Endpoint: endpoint,
			Status:   200,
			Body:     truncate(fmt.Sprint(e), 500),
		}
	}

	return &port.StructuredResponse{
		Text:  outputText(env),
		Usage: usage(env),
		Raw:   json.RawMessage(body),
	}, nil
}

func outputText(env map[string]interface{}) string {
	var texts []string
	for _, item := range cast.ToSlice(env["output"]) {
		msg, ok := item.(map[string]interface{})
		if !ok || msg["type"] != "message" {
			continue
		}
		for _, c := range cast.ToSlice(msg["content"]) {
			part, ok := c.(map[string]interface{})
			if !ok || part["type"] != "output_text" {
				continue
			}
			if t, ok := part["text"].(string); ok && strings.TrimSpace(t) != "" {
				texts = append(texts, t)
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func usage(env map[string]interface{}) domain.Usage {
	u := cast.ToStringMap(env["usage"])
	return domain.Usage{
		InputTokens:  cast.ToInt(u["input_tokens"]),
		OutputTokens: cast.ToInt(u["output_tokens"]),
	}
}

// present reports whether a decoded JSON value carries information.
func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case map[string]interface{}:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}
