package mapping

import (
	"encoding/json"
	"fmt"

	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
	"scoreparse/internal/port"
)

const inferenceSystemPrompt = "You are a strict JSON generator. Output ONLY valid JSON (no markdown, no comments). " +
	"Infer a mapping plan that converts the described file into per-entity records of scored items. " +
	"If uncertain, set confidence low and explain in errors and recommendations."

// planShape documents the plan keys that execution reads.
var planShape = map[string]interface{}{
	"common": map[string]interface{}{
		"entity_name": map[string]interface{}{
			"source": "excel_column|text_heading|slide_title",
			"column": "string or int (xlsx)",
		},
		"total": map[string]interface{}{
			"column": "string or int (xlsx, optional)",
		},
		"items": map[string]interface{}{
			"mode":              "marker|explicit",
			"default_deduction": "number (marker mode)",
			"columns":           "(xlsx) list of column names or indices",
			"line_pattern":      "(docx/pptx) regex with two groups, like " + DefaultLinePattern,
		},
	},
	"excel": map[string]interface{}{
		"sheet":          "string (preferred) or null",
		"header_row":     "int (0-based)",
		"data_start_row": "int (0-based, usually header_row+1)",
	},
}

// resultSchema is the strict output contract for inference.
var resultSchema = &port.JSONSchema{
	Name:   "mapping_plan",
	Strict: true,
	Schema: map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"confidence":      map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1},
			"mapping":         map[string]interface{}{"type": "object", "additionalProperties": true},
			"errors":          map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"recommendations": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"confidence", "mapping", "errors", "recommendations"},
	},
}

// BuildInferencePrompt renders the user prompt embedding the file type, IR,
// preview and the expected plan shape.
func BuildInferencePrompt(ft domain.FileType, ir extract.IR, preview extract.Preview) (string, error) {
	body := map[string]interface{}{
		"task":      "infer_mapping_plan",
		"file_type": ft,
		"ir":        ir,
		"preview":   preview,
		"output_schema": map[string]interface{}{
			"confidence":      "number 0..1",
			"mapping":         "object (see mapping_schema)",
			"errors":          "string[]",
			"recommendations": "string[]",
			"mapping_schema":  planShape,
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal inference prompt: %w", err)
	}
	return string(b), nil
}
