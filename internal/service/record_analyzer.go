package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"scoreparse/internal/config"
	"scoreparse/internal/domain"
	"scoreparse/internal/mapping"
	"scoreparse/internal/port"
)

const analyzerSystemPrompt = "You are an experienced teacher writing feedback on one student's scored work. " +
	"Write a single paragraph of analysis that starts from the weak knowledge points, names each concretely, " +
	"and pairs each with a specific way to practise. Do not use headings or numbered lists. " +
	"Keep the tone professional and encouraging. " +
	`Respond with a JSON object {"analysis": string, "suggestions": string[]}.`

var analysisSchema = &port.JSONSchema{
	Name:   "record_analysis",
	Strict: true,
	Schema: map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			"analysis":    map[string]interface{}{"type": "string"},
			"suggestions": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
		},
		"required": []string{"analysis", "suggestions"},
	},
}

// RecordAnalyzer generates commentary for one record through the reasoning
// provider. It implements port.StyledEnricher.
type RecordAnalyzer struct {
	client          port.ReasoningClient
	model           string
	fallbackModel   string
	temperature     float64
	maxOutputTokens int
	example         string
}

// NewRecordAnalyzer creates a RecordAnalyzer from the enrichment settings.
func NewRecordAnalyzer(client port.ReasoningClient, cfg *config.EnrichConfig, fallbackModel string) *RecordAnalyzer {
	return &RecordAnalyzer{
		client:          client,
		model:           cfg.Model,
		fallbackModel:   fallbackModel,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
	}
}

// WithExample returns a copy that shows example as a style reference.
func (a *RecordAnalyzer) WithExample(example string) port.RecordEnricher {
	cp := *a
	cp.example = strings.TrimSpace(example)
	return &cp
}

// Enrich implements port.RecordEnricher.
func (a *RecordAnalyzer) Enrich(ctx context.Context, rec domain.NormalizedRecord) (*domain.EnrichedRecord, error) {
	system := analyzerSystemPrompt
	if a.example != "" {
		system += "\n\nReference example (match its style, length and tone; do not copy its content):\n" + a.example
	}
	temp := a.temperature

	resp, err := a.client.CreateStructuredResponse(ctx, port.StructuredRequest{
		Model:           a.model,
		FallbackModel:   a.fallbackModel,
		SystemPrompt:    system,
		UserPrompt:      analysisPrompt(rec),
		Temperature:     &temp,
		MaxOutputTokens: a.maxOutputTokens,
		Schema:          analysisSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %q: %w", rec.EntityName, err)
	}

	analysis, suggestions := parseAnalysis(resp.Text)
	if analysis == "" {
		return nil, fmt.Errorf("analyze %q: empty analysis", rec.EntityName)
	}
	return &domain.EnrichedRecord{
		NormalizedRecord: rec,
		Analysis:         analysis,
		Suggestions:      suggestions,
		DeductionSummary: DeductionSummary(rec.Items),
		Usage:            resp.Usage,
	}, nil
}

func analysisPrompt(rec domain.NormalizedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Student: %s\n", rec.EntityName)
	fmt.Fprintf(&b, "Total: %s\n", cast.ToString(rec.Total))

	labels := make([]string, 0, len(rec.Items))
	for _, it := range rec.Items {
		labels = append(labels, it.Label)
	}
	if len(labels) == 0 {
		b.WriteString("\nNo deductions were recorded.\n")
	} else {
		b.WriteString("\nWeak knowledge points:\n")
		b.WriteString(strings.Join(labels, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\nWrite the analysis and improvement suggestions for these points.")
	return b.String()
}

// parseAnalysis reads the JSON answer, falling back to the raw text.
func parseAnalysis(text string) (string, []string) {
	suggestions := []string{}
	obj, err := mapping.ParseJSONObject(text)
	if err != nil {
		return strings.TrimSpace(text), suggestions
	}
	for _, s := range cast.ToSlice(obj["suggestions"]) {
		if str := strings.TrimSpace(cast.ToString(s)); str != "" {
			suggestions = append(suggestions, str)
		}
	}
	return strings.TrimSpace(cast.ToString(obj["analysis"])), suggestions
}

// DeductionSummary groups item deductions by category, keeping item order.
func DeductionSummary(items []domain.Item) map[string][]domain.ItemDeduction {
	summary := make(map[string][]domain.ItemDeduction)
	for _, it := range items {
		summary[it.Category] = append(summary[it.Category], domain.ItemDeduction{Label: it.Label, Value: it.Value})
	}
	return summary
}
