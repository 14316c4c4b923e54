package mapping_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/domain"
	"scoreparse/internal/mapping"
	"scoreparse/internal/testutil"
)

func scoreWorkbook(t *testing.T) []byte {
	t.Helper()
	return testutil.Workbook(t,
		testutil.Sheet{Name: "Cover", Rows: [][]interface{}{{"ignore me"}}},
		testutil.Sheet{Name: "Scores", Rows: [][]interface{}{
			{"Midterm results"},
			{"Name", "选择1", "填空2", "Essay", "总分"},
			{"Alice", "x", nil, 0, 92},
			{"Bob", nil, "NaN", "Infinity", "nan"},
			{"", "x", "x", "x", 10},
			{"Carol", 2, 3, -4, nil},
		}},
	)
}

func scorePlan() mapping.Plan {
	return mapping.Plan{
		"excel":  map[string]interface{}{"sheet": "Scores", "header_row": 1},
		"common": map[string]interface{}{"entity_name": map[string]interface{}{"column": "Name"}},
	}
}

func TestExecute_WorkbookMarkerMode(t *testing.T) {
	records, err := mapping.Execute(scoreWorkbook(t), "scores.xlsx", scorePlan())

	require.NoError(t, err)
	require.Len(t, records, 3)

	alice := records[0]
	assert.Equal(t, "Alice", alice.EntityName)
	assert.Equal(t, 92.0, alice.Total)
	require.Len(t, alice.Items, 1)
	assert.Equal(t, domain.Item{Label: "选择1", Value: 1, Category: mapping.CategoryChoice}, alice.Items[0])

	bob := records[1]
	assert.Equal(t, "Bob", bob.EntityName)
	require.Len(t, bob.Items, 1)
	assert.Equal(t, "Essay", bob.Items[0].Label)
	assert.Equal(t, 99.0, bob.Total)

	carol := records[2]
	assert.Len(t, carol.Items, 3)
	assert.Equal(t, 97.0, carol.Total)
}

func TestExecute_WorkbookExplicitModeSanitizesValues(t *testing.T) {
	plan := mapping.Merge(scorePlan(), mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"mode": "explicit"},
	}})

	records, err := mapping.Execute(scoreWorkbook(t), "scores.xlsx", plan)

	require.NoError(t, err)
	for _, r := range records {
		for _, it := range r.Items {
			assert.False(t, math.IsNaN(it.Value) || math.IsInf(it.Value, 0), "item %s of %s", it.Label, r.EntityName)
			assert.GreaterOrEqual(t, it.Value, 0.0)
		}
		assert.False(t, math.IsNaN(r.Total) || math.IsInf(r.Total, 0))
	}

	assert.Empty(t, records[0].Items)
	assert.Empty(t, records[1].Items)
	assert.Equal(t, 100.0, records[1].Total)

	carol := records[2]
	require.Len(t, carol.Items, 3)
	assert.Equal(t, []float64{2, 3, 4}, []float64{carol.Items[0].Value, carol.Items[1].Value, carol.Items[2].Value})
	assert.Equal(t, 91.0, carol.Total)
}

func TestExecute_ItemColumnsNeverIncludeEntityOrTotal(t *testing.T) {
	plan := mapping.Merge(scorePlan(), mapping.Plan{"common": map[string]interface{}{
		"total": map[string]interface{}{"column": "总分"},
		"items": map[string]interface{}{"columns": []interface{}{"Name", "总分", "Essay", "missing", 3}},
	}})

	records, err := mapping.Execute(scoreWorkbook(t), "scores.xlsx", plan)

	require.NoError(t, err)
	for _, r := range records {
		for _, it := range r.Items {
			assert.Equal(t, "Essay", it.Label)
		}
	}
	require.Len(t, records[2].Items, 1)
	assert.Equal(t, 99.0, records[2].Total)
}

func TestExecute_Deterministic(t *testing.T) {
	data := scoreWorkbook(t)
	plan := scorePlan()

	first, err := mapping.Execute(data, "scores.xlsx", plan)
	require.NoError(t, err)
	second, err := mapping.Execute(data, "scores.xlsx", plan)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExecute_UnknownSheetFallsBackToFirst(t *testing.T) {
	data := testutil.Workbook(t, testutil.Sheet{Name: "Only", Rows: [][]interface{}{
		{"Name", "Q1", "Q2"},
		{"Dana", "x", nil},
	}})
	plan := mapping.Plan{"excel": map[string]interface{}{"sheet": "Nope"}}

	records, err := mapping.Execute(data, "only.xlsx", plan)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Dana", records[0].EntityName)
}

func TestExecute_NoRecords(t *testing.T) {
	data := testutil.Workbook(t, testutil.Sheet{Name: "Empty", Rows: [][]interface{}{{"Name", "Q1", "Q2"}}})

	_, err := mapping.Execute(data, "empty.xlsx", mapping.Plan{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoExtractableData))
}

func TestExecute_UnsupportedFormat(t *testing.T) {
	_, err := mapping.Execute([]byte("a,b"), "scores.csv", mapping.Plan{})

	assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
}

func TestExecute_Document(t *testing.T) {
	data := testutil.Document(t, []string{
		"Period 3 review: 2",
		"Alice",
		"选择3: 2",
		"Fill-in 5：1.5",
		"Q9: 0",
		"not an item line here",
		"Bob Lee",
		"Carol",
		"Computation 7: 4",
	}, [][]string{{"Dan", "Q1: 5"}})

	records, err := mapping.Execute(data, "report.docx", mapping.Plan{})

	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Alice", records[0].EntityName)
	require.Len(t, records[0].Items, 2)
	assert.Equal(t, domain.Item{Label: "选择3", Value: 2, Category: mapping.CategoryChoice}, records[0].Items[0])
	assert.Equal(t, domain.Item{Label: "Fill-in 5", Value: 1.5, Category: mapping.CategoryFillIn}, records[0].Items[1])
	assert.Equal(t, 3.5, records[0].Total)

	assert.Equal(t, "Bob Lee", records[1].EntityName)
	assert.Empty(t, records[1].Items)
	assert.Equal(t, 100.0, records[1].Total)

	assert.Equal(t, "Carol", records[2].EntityName)
	assert.Equal(t, 4.0, records[2].Total)
}

func TestExecute_DocumentCustomPattern(t *testing.T) {
	data := testutil.Document(t, []string{"Alice", "Q1 - 3", "Q2 - 1"})
	plan := mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"line_pattern": `^(Q\d+)\s*-\s*(\d+)$`},
	}}

	records, err := mapping.Execute(data, "report.docx", plan)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Items, 2)
	assert.Equal(t, 4.0, records[0].Total)
}

func TestExecute_DocumentInvalidPatternFallsBack(t *testing.T) {
	data := testutil.Document(t, []string{"Alice", "Q1: 3"})
	plan := mapping.Plan{"common": map[string]interface{}{
		"items": map[string]interface{}{"line_pattern": `^(?<=x)(.+)$`},
	}}

	records, err := mapping.Execute(data, "report.docx", plan)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Items, 1)
}

func TestExecute_Slides(t *testing.T) {
	data := testutil.Deck(t,
		[]string{"Class summary: 3 groups"},
		[]string{"Alice", "选择3: 2\n判断1: 1"},
		[]string{"Bob", "Q2: 0"},
	)

	records, err := mapping.Execute(data, "review.pptx", mapping.Plan{})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].EntityName)
	require.Len(t, records[0].Items, 2)
	assert.Equal(t, mapping.CategoryJudgment, records[0].Items[1].Category)
	assert.Equal(t, 3.0, records[0].Total)
	assert.Equal(t, "Bob", records[1].EntityName)
	assert.Equal(t, 100.0, records[1].Total)
}
