package mapping

import (
	"log/slog"
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
)

// table is a header-labelled block of data rows.
type table struct {
	labels []string
	rows   [][]interface{}
}

func executeWorkbook(data []byte, plan Plan) ([]domain.NormalizedRecord, error) {
	f, err := extract.OpenWorkbook(data)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	addr := plan.Tabular()
	sheet := selectSheet(f, addr.Sheet)
	if sheet == "" {
		return nil, nil
	}
	grid, err := extract.ReadGrid(f, sheet, 0, 0)
	if err != nil {
		return nil, err
	}

	t := loadTable(grid.Rows, grid.TotalCols, addr)
	return tableRecords(t, plan.Common()), nil
}

// selectSheet resolves a sheet name or index, falling back to the first sheet.
func selectSheet(f *excelize.File, ref interface{}) string {
	names := f.GetSheetList()
	if len(names) == 0 {
		return ""
	}
	switch v := ref.(type) {
	case nil:
	case string:
		want := strings.TrimSpace(v)
		for _, n := range names {
			if n == want {
				return n
			}
		}
		for _, n := range names {
			if strings.EqualFold(strings.TrimSpace(n), want) {
				return n
			}
		}
		if isDigits(want) {
			if i := cast.ToInt(want); i < len(names) {
				return names[i]
			}
		}
		slog.Warn("mapping.selectSheet: sheet not found, using first sheet", "sheet", v, "first", names[0])
	default:
		if i, err := cast.ToIntE(v); err == nil && i >= 0 && i < len(names) {
			return names[i]
		}
	}
	return names[0]
}

func loadTable(rows [][]interface{}, width int, addr TabularSpec) table {
	t := table{labels: extract.ColumnLabels(rows, addr.HeaderRow, width)}
	if addr.DataStartRow < len(rows) {
		t.rows = rows[addr.DataStartRow:]
	}
	return t
}

func tableRecords(t table, spec CommonSpec) []domain.NormalizedRecord {
	if len(t.labels) == 0 {
		return nil
	}

	entityCol, err := ResolveColumn(t.labels, spec.EntityColumn)
	if err != nil {
		entityCol = 0
	}

	totalCol := -1
	if spec.TotalColumn != nil {
		if c, err := ResolveColumn(t.labels, spec.TotalColumn); err == nil && c != entityCol {
			totalCol = c
		}
	} else {
		totalCol = DetectTotalColumn(t.labels, t.rows, entityCol)
	}

	var itemCols []int
	if len(spec.Items.Columns) > 0 {
		for _, ref := range spec.Items.Columns {
			if c, err := ResolveColumn(t.labels, ref); err == nil {
				itemCols = append(itemCols, c)
			}
		}
	} else {
		for c := range t.labels {
			itemCols = append(itemCols, c)
		}
	}
	itemCols = excludeColumns(itemCols, entityCol, totalCol)

	var records []domain.NormalizedRecord
	for _, row := range t.rows {
		name := strings.TrimSpace(extract.CellString(cellAt(row, entityCol)))
		if name == "" || strings.EqualFold(name, "nan") {
			continue
		}

		var total *float64
		if totalCol >= 0 {
			if v, ok := cellNumber(cellAt(row, totalCol)); ok {
				total = &v
			}
		}

		var items []domain.Item
		for _, c := range itemCols {
			label := t.labels[c]
			cell := cellAt(row, c)
			switch spec.Items.Mode {
			case ModeExplicit:
				v, _ := cellNumber(cell)
				v = domain.SanitizeValue(v)
				if v == 0 {
					continue
				}
				items = append(items, domain.NewItem(label, v, Categorize(label)))
			default:
				if isBlankCell(cell) {
					continue
				}
				items = append(items, domain.NewItem(label, spec.Items.DefaultDeduction, Categorize(label)))
			}
		}

		records = append(records, domain.NewRecord(name, items, total))
	}
	return records
}

// excludeColumns drops duplicates and the entity and total columns.
func excludeColumns(cols []int, entityCol, totalCol int) []int {
	seen := make(map[int]bool, len(cols))
	out := make([]int, 0, len(cols))
	for _, c := range cols {
		if c == entityCol || c == totalCol || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func cellAt(row []interface{}, c int) interface{} {
	if c < 0 || c >= len(row) {
		return nil
	}
	if f, ok := row[c].(float64); ok && math.IsNaN(f) {
		return nil
	}
	return row[c]
}
