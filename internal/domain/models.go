package domain

import (
	"math"
)

// FullScale is the maximum total a record can carry.
const FullScale = 100.0

// Item is a single scored entry attached to a record.
type Item struct {
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Category string  `json:"category"`
}

// NormalizedRecord is the format-independent output of mapping execution.
type NormalizedRecord struct {
	EntityName string  `json:"entity_name"`
	Items      []Item  `json:"items"`
	Total      float64 `json:"total"`
}

// Usage counts tokens consumed by reasoning calls.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns the element-wise sum of u and o.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// ItemDeduction is one entry of a per-category deduction summary.
type ItemDeduction struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// EnrichedRecord is a NormalizedRecord plus generated commentary.
type EnrichedRecord struct {
	NormalizedRecord
	Analysis         string                     `json:"analysis"`
	Suggestions      []string                   `json:"suggestions"`
	DeductionSummary map[string][]ItemDeduction `json:"deduction_summary,omitempty"`
	Failed           bool                       `json:"failed,omitempty"`
	Usage            Usage                      `json:"usage"`
}

// SanitizeValue coerces v into a finite, non-negative number.
// NaN and infinities become 0; negative values are taken as magnitudes.
func SanitizeValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Abs(v)
}

// NewItem builds an Item with a sanitized value.
func NewItem(label string, value float64, category string) Item {
	return Item{Label: label, Value: SanitizeValue(value), Category: category}
}

// NewRecord builds a NormalizedRecord. A nil or non-finite total is repaired
// as clamp(FullScale - sum(items), 0, FullScale).
func NewRecord(entityName string, items []Item, total *float64) NormalizedRecord {
	clean := make([]Item, len(items))
	for i, it := range items {
		clean[i] = NewItem(it.Label, it.Value, it.Category)
	}
	rec := NormalizedRecord{EntityName: entityName, Items: clean}
	if total != nil && !math.IsNaN(*total) && !math.IsInf(*total, 0) {
		rec.Total = *total
	} else {
		rec.Total = RepairTotal(clean)
	}
	return rec
}

// RepairTotal derives a total from item deductions against FullScale.
func RepairTotal(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += SanitizeValue(it.Value)
	}
	t := FullScale - sum
	if t < 0 {
		return 0
	}
	if t > FullScale {
		return FullScale
	}
	return t
}

// SumValues returns the sum of all item values.
func SumValues(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Value
	}
	return sum
}
