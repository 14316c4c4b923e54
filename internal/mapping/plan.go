// Package mapping infers mapping plans through the reasoning provider and
// executes them deterministically against source files.
package mapping

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Item extraction modes.
const (
	ModeMarker   = "marker"
	ModeExplicit = "explicit"
)

// DefaultLinePattern matches "label: value" lines with ASCII or full-width colons.
const DefaultLinePattern = `^(.+?)[:：]\s*(\d+(?:\.\d+)?)$`

// Plan is a weakly typed mapping plan as authored by the reasoning provider
// or a caller. Unknown keys are preserved and ignored; missing keys fall back
// to defaults in the typed accessors.
type Plan map[string]interface{}

// TabularSpec addresses the table inside a workbook.
type TabularSpec struct {
	// Sheet is a sheet name or index; nil selects the first sheet.
	Sheet        interface{}
	HeaderRow    int
	DataStartRow int
}

// ItemSpec describes how items are extracted.
type ItemSpec struct {
	Mode             string
	DefaultDeduction float64
	Columns          []interface{}
	LinePattern      string
}

// CommonSpec is the format-independent part of a plan.
type CommonSpec struct {
	// EntityColumn defaults to column 0.
	EntityColumn interface{}
	// TotalColumn is nil when the plan names no total source.
	TotalColumn interface{}
	Items       ItemSpec
}

// Clone returns a deep copy of p.
func (p Plan) Clone() Plan {
	if p == nil {
		return Plan{}
	}
	return Plan(cloneMap(p))
}

// Merge deep-merges override onto base and returns a new plan. Nested objects
// merge recursively; any other override value replaces the base value.
// Neither input is modified.
func Merge(base, override Plan) Plan {
	out := base.Clone()
	mergeInto(out, override)
	return out
}

func mergeInto(dst, src map[string]interface{}) {
	for k, v := range src {
		if sm, ok := asMap(v); ok {
			if dm, ok := asMap(dst[k]); ok {
				mergeInto(dm, sm)
				dst[k] = dm
				continue
			}
			dst[k] = cloneMap(sm)
			continue
		}
		dst[k] = cloneValue(v)
	}
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Plan:
		return map[string]interface{}(m), true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[cast.ToString(k)] = val
		}
		return out, true
	}
	return nil, false
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	if m, ok := asMap(v); ok {
		return cloneMap(m)
	}
	if s, ok := v.([]interface{}); ok {
		out := make([]interface{}, len(s))
		for i, e := range s {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

// section returns the first key of m holding an object.
func section(m map[string]interface{}, keys ...string) map[string]interface{} {
	for _, k := range keys {
		if sm, ok := asMap(m[k]); ok {
			return sm
		}
	}
	return map[string]interface{}{}
}

func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toFloat(v interface{}, def float64) float64 {
	if v == nil {
		return def
	}
	f, err := cast.ToFloat64E(strings.TrimSpace(cast.ToString(v)))
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func toInt(v interface{}, def int) int {
	if v == nil {
		return def
	}
	f := toFloat(v, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(f)
}

// Common returns the common section. A plan without a "common" object is
// read from its root.
func (p Plan) Common() CommonSpec {
	root := map[string]interface{}(p)
	common := root
	if sm, ok := asMap(root["common"]); ok {
		common = sm
	}

	spec := CommonSpec{EntityColumn: 0}
	entity := section(common, "entity_name", "student_name")
	if v, ok := lookup(entity, "column"); ok {
		spec.EntityColumn = v
	}
	total := section(common, "total", "total_score")
	if v, ok := lookup(total, "column"); ok {
		spec.TotalColumn = v
	}

	items := section(common, "items")
	spec.Items = ItemSpec{
		Mode:             strings.ToLower(strings.TrimSpace(cast.ToString(items["mode"]))),
		DefaultDeduction: toFloat(items["default_deduction"], 1.0),
		Columns:          cast.ToSlice(items["columns"]),
		LinePattern:      strings.TrimSpace(cast.ToString(items["line_pattern"])),
	}
	if spec.Items.Mode != ModeExplicit {
		spec.Items.Mode = ModeMarker
	}
	if spec.Items.LinePattern == "" {
		spec.Items.LinePattern = DefaultLinePattern
	}
	return spec
}

// Tabular returns the workbook addressing section.
func (p Plan) Tabular() TabularSpec {
	sec := section(map[string]interface{}(p), "excel", "tabular", "xlsx")
	spec := TabularSpec{
		Sheet:     sec["sheet"],
		HeaderRow: max(0, toInt(sec["header_row"], 0)),
	}
	spec.DataStartRow = max(spec.HeaderRow+1, toInt(sec["data_start_row"], spec.HeaderRow+1))
	return spec
}
