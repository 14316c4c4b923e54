package port

import (
	"context"
	"encoding/json"

	"scoreparse/internal/domain"
)

// JSONSchema describes a strict structured-output contract.
type JSONSchema struct {
	Name   string
	Schema map[string]interface{}
	Strict bool
}

// StructuredRequest is one logical call to the reasoning provider.
type StructuredRequest struct {
	Model           string
	FallbackModel   string // used on the secondary endpoint when set
	SystemPrompt    string
	UserPrompt      string
	ReasoningEffort string   // when set, Temperature is not sent
	Temperature     *float64 // nil leaves the provider default
	MaxOutputTokens int
	Schema          *JSONSchema // nil requests free-form JSON
}

// StructuredResponse carries the reconstructed output text and token usage.
type StructuredResponse struct {
	Text  string
	Usage domain.Usage
	// Raw is the provider's response envelope.
	Raw json.RawMessage
}

// ReasoningClient abstracts the external reasoning provider.
type ReasoningClient interface {
	CreateStructuredResponse(ctx context.Context, req StructuredRequest) (*StructuredResponse, error)
}
