package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cast"

	"scoreparse/internal/config"
	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
	"scoreparse/internal/port"
)

// Result is a normalized inference outcome. Confidence and diagnostics are
// advisory only.
type Result struct {
	Mapping         Plan         `json:"mapping"`
	Confidence      float64      `json:"confidence"`
	Errors          []string     `json:"errors"`
	Recommendations []string     `json:"recommendations"`
	Usage           domain.Usage `json:"usage"`
	RawText         string       `json:"-"`
}

// Inferrer requests mapping plans from the reasoning provider.
type Inferrer struct {
	client        port.ReasoningClient
	model         string
	fallbackModel string
	effort        string
}

// NewInferrer creates an Inferrer using the models configured in cfg.
func NewInferrer(client port.ReasoningClient, cfg *config.ReasoningConfig) *Inferrer {
	return &Inferrer{
		client:        client,
		model:         strings.TrimSpace(cfg.Model),
		fallbackModel: strings.TrimSpace(cfg.FallbackModel),
		effort:        strings.TrimSpace(cfg.ReasoningEffort),
	}
}

// Infer asks the provider for a mapping plan. Missing result fields default
// to an empty plan, zero confidence and no diagnostics. When the output is not
// a JSON object the error wraps domain.ErrMalformedMapping and the returned
// Result still carries usage and raw text.
func (i *Inferrer) Infer(ctx context.Context, ft domain.FileType, ir extract.IR, preview extract.Preview) (*Result, error) {
	userPrompt, err := BuildInferencePrompt(ft, ir, preview)
	if err != nil {
		return nil, err
	}

	resp, err := i.client.CreateStructuredResponse(ctx, port.StructuredRequest{
		Model:           i.model,
		FallbackModel:   i.fallbackModel,
		SystemPrompt:    inferenceSystemPrompt,
		UserPrompt:      userPrompt,
		ReasoningEffort: i.effort,
		Schema:          resultSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("infer mapping: %w", err)
	}

	res := &Result{
		Mapping:         Plan{},
		Errors:          []string{},
		Recommendations: []string{},
		Usage:           resp.Usage,
		RawText:         resp.Text,
	}

	obj, err := ParseJSONObject(resp.Text)
	if err != nil {
		slog.Warn("mapping.Inferrer.Infer: unparseable model output", "error", err, "chars", len(resp.Text))
		return res, fmt.Errorf("infer mapping: %w", err)
	}

	res.Confidence = clampConfidence(obj["confidence"])
	if m, ok := asMap(obj["mapping"]); ok {
		res.Mapping = Plan(m)
	}
	res.Errors = nonBlankStrings(obj["errors"])
	res.Recommendations = nonBlankStrings(obj["recommendations"])
	return res, nil
}

func clampConfidence(v interface{}) float64 {
	c := toFloat(v, 0)
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func nonBlankStrings(v interface{}) []string {
	out := []string{}
	list, ok := v.([]interface{})
	if !ok {
		return out
	}
	for _, e := range list {
		if e == nil {
			continue
		}
		s := strings.TrimSpace(cast.ToString(e))
		if s == "" {
			s = strings.TrimSpace(fmt.Sprint(e))
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
