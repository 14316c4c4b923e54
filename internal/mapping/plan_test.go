package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scoreparse/internal/mapping"
)

func TestMerge_LeafOverrideKeepsSiblings(t *testing.T) {
	base := mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"mode": "marker", "default_deduction": 1},
	}}
	override := mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"mode": "explicit"},
	}}

	got := mapping.Merge(base, override)

	assert.Equal(t, mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"mode": "explicit", "default_deduction": 1},
	}}, got)
	assert.Equal(t, "marker", base["common"].(map[string]interface{})["items"].(map[string]interface{})["mode"])
}

func TestMerge_ScalarAndObjectReplacement(t *testing.T) {
	base := mapping.Plan{
		"excel":  map[string]interface{}{"sheet": "A", "header_row": 2},
		"common": "not-an-object",
		"keep":   []interface{}{1, 2},
	}
	override := mapping.Plan{
		"excel":  map[string]interface{}{"sheet": nil},
		"common": map[string]interface{}{"total": map[string]interface{}{"column": "Total"}},
		"extra":  true,
	}

	got := mapping.Merge(base, override)

	assert.Equal(t, map[string]interface{}{"sheet": nil, "header_row": 2}, got["excel"])
	assert.Equal(t, map[string]interface{}{"total": map[string]interface{}{"column": "Total"}}, got["common"])
	assert.Equal(t, []interface{}{1, 2}, got["keep"])
	assert.Equal(t, true, got["extra"])
}

func TestMerge_NilInputs(t *testing.T) {
	assert.Equal(t, mapping.Plan{}, mapping.Merge(nil, nil))
	assert.Equal(t, mapping.Plan{"a": 1}, mapping.Merge(nil, mapping.Plan{"a": 1}))
}

func TestMerge_DoesNotAliasOverride(t *testing.T) {
	override := mapping.Plan{"common": map[string]interface{}{"items": map[string]interface{}{"mode": "explicit"}}}

	got := mapping.Merge(mapping.Plan{}, override)
	got["common"].(map[string]interface{})["items"].(map[string]interface{})["mode"] = "marker"

	assert.Equal(t, "explicit", override["common"].(map[string]interface{})["items"].(map[string]interface{})["mode"])
}

func TestPlan_CommonDefaults(t *testing.T) {
	spec := mapping.Plan{}.Common()

	assert.Equal(t, 0, spec.EntityColumn)
	assert.Nil(t, spec.TotalColumn)
	assert.Equal(t, mapping.ModeMarker, spec.Items.Mode)
	assert.Equal(t, 1.0, spec.Items.DefaultDeduction)
	assert.Empty(t, spec.Items.Columns)
	assert.Equal(t, mapping.DefaultLinePattern, spec.Items.LinePattern)
}

func TestPlan_CommonAliasesAndRootFallback(t *testing.T) {
	plan := mapping.Plan{
		"student_name": map[string]interface{}{"column": "Name"},
		"total_score":  map[string]interface{}{"column": 4.0},
		"items": map[string]interface{}{
			"mode":              "EXPLICIT",
			"default_deduction": "2.5",
			"columns":           []interface{}{"Q1", 2.0},
		},
	}

	spec := plan.Common()

	assert.Equal(t, "Name", spec.EntityColumn)
	assert.Equal(t, 4.0, spec.TotalColumn)
	assert.Equal(t, mapping.ModeExplicit, spec.Items.Mode)
	assert.Equal(t, 2.5, spec.Items.DefaultDeduction)
	assert.Equal(t, []interface{}{"Q1", 2.0}, spec.Items.Columns)
}

func TestPlan_Tabular(t *testing.T) {
	assert.Equal(t, mapping.TabularSpec{HeaderRow: 0, DataStartRow: 1}, mapping.Plan{}.Tabular())

	spec := mapping.Plan{"excel": map[string]interface{}{
		"sheet": "Scores", "header_row": 2.0, "data_start_row": "5",
	}}.Tabular()
	assert.Equal(t, "Scores", spec.Sheet)
	assert.Equal(t, 2, spec.HeaderRow)
	assert.Equal(t, 5, spec.DataStartRow)

	spec = mapping.Plan{"excel": map[string]interface{}{"header_row": -3, "data_start_row": 0}}.Tabular()
	assert.Equal(t, 0, spec.HeaderRow)
	assert.Equal(t, 1, spec.DataStartRow)
}
