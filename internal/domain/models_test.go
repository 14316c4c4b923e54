package domain_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"scoreparse/internal/domain"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"positive", 2.5, 2.5},
		{"zero", 0, 0},
		{"negative becomes magnitude", -3, 3},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.SanitizeValue(tt.in))
		})
	}
}

func TestNewRecord_KeepsFiniteTotal(t *testing.T) {
	total := 87.5
	rec := domain.NewRecord("Alice", []domain.Item{{Label: "Q1", Value: 2, Category: "Q1"}}, &total)

	assert.Equal(t, "Alice", rec.EntityName)
	assert.Equal(t, 87.5, rec.Total)
	assert.Len(t, rec.Items, 1)
}

func TestNewRecord_RepairsMissingTotal(t *testing.T) {
	items := []domain.Item{
		{Label: "Q1", Value: 3},
		{Label: "Q2", Value: math.NaN()},
		{Label: "Q3", Value: 4.5},
	}
	rec := domain.NewRecord("Bob", items, nil)

	assert.Equal(t, 92.5, rec.Total)
	assert.Equal(t, 0.0, rec.Items[1].Value)
}

func TestNewRecord_RepairsNonFiniteTotal(t *testing.T) {
	nan := math.NaN()
	rec := domain.NewRecord("Carol", []domain.Item{{Label: "Q1", Value: 10}}, &nan)
	assert.Equal(t, 90.0, rec.Total)

	inf := math.Inf(1)
	rec = domain.NewRecord("Carol", nil, &inf)
	assert.Equal(t, 100.0, rec.Total)
}

func TestNewRecord_RepairClampsAtZero(t *testing.T) {
	rec := domain.NewRecord("Dan", []domain.Item{{Label: "Q1", Value: 80}, {Label: "Q2", Value: 45}}, nil)
	assert.Equal(t, 0.0, rec.Total)
}

func TestNewRecord_ItemValuesAlwaysFiniteNonNegative(t *testing.T) {
	items := []domain.Item{
		{Label: "a", Value: math.Inf(1)},
		{Label: "b", Value: math.Inf(-1)},
		{Label: "c", Value: -7},
		{Label: "d", Value: math.NaN()},
	}
	rec := domain.NewRecord("Eve", items, nil)
	for _, it := range rec.Items {
		assert.False(t, math.IsNaN(it.Value) || math.IsInf(it.Value, 0))
		assert.GreaterOrEqual(t, it.Value, 0.0)
	}
}

func TestUsage_Add(t *testing.T) {
	u := domain.Usage{InputTokens: 10, OutputTokens: 3}.Add(domain.Usage{InputTokens: 5, OutputTokens: 7})
	assert.Equal(t, domain.Usage{InputTokens: 15, OutputTokens: 10}, u)
}

func TestDetectFileType(t *testing.T) {
	ft, err := domain.DetectFileType("Scores.XLSX")
	assert.NoError(t, err)
	assert.Equal(t, domain.FileTypeXLSX, ft)

	ft, err = domain.DetectFileType("notes.docx")
	assert.NoError(t, err)
	assert.Equal(t, domain.FileTypeDOCX, ft)

	_, err = domain.DetectFileType("legacy.xls")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = domain.DetectFileType("noext")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
