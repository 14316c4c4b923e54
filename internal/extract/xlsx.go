package extract

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Grid is a normalized block of sheet cells. Every row has the same width.
type Grid struct {
	Rows      [][]interface{}
	TotalRows int
	TotalCols int
}

// OpenWorkbook opens an in-memory xlsx workbook. The caller must Close it.
func OpenWorkbook(data []byte) (*excelize.File, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return f, nil
}

// ReadGrid streams sheet and keeps at most maxRows rows and maxCols columns
// (0 means unlimited) while counting the full extent.
func ReadGrid(f *excelize.File, sheet string, maxRows, maxCols int) (*Grid, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer func() { _ = rows.Close() }()

	g := &Grid{}
	var raw [][]string
	for rows.Next() {
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q row %d: %w", sheet, g.TotalRows+1, err)
		}
		g.TotalRows++
		if len(cols) > g.TotalCols {
			g.TotalCols = len(cols)
		}
		if maxRows == 0 || len(raw) < maxRows {
			raw = append(raw, cols)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate sheet %q: %w", sheet, err)
	}

	width := g.TotalCols
	if maxCols > 0 && width > maxCols {
		width = maxCols
	}
	g.Rows = make([][]interface{}, len(raw))
	for i, r := range raw {
		row := make([]interface{}, width)
		for j := 0; j < width && j < len(r); j++ {
			row[j] = NormalizeCell(r[j])
		}
		g.Rows[i] = row
	}
	return g, nil
}

func extractWorkbook(data []byte) (*TabularIR, *TabularPreview, error) {
	f, err := OpenWorkbook(data)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()

	names := f.GetSheetList()
	ir := &TabularIR{SheetNames: names}
	preview := &TabularPreview{}
	if len(names) == 0 {
		return ir, preview, nil
	}

	first := names[0]
	ir.FirstSheet = first
	preview.Sheet = first

	grid, err := ReadGrid(f, first, MaxSampleRows, MaxSampleCols)
	if err != nil {
		return nil, nil, err
	}
	ir.Shape = Shape{Rows: grid.TotalRows, Cols: grid.TotalCols}

	colCount := 0
	if len(grid.Rows) > 0 {
		colCount = len(grid.Rows[0])
	}

	ir.HeaderRowCandidates = DetectHeaderCandidates(grid.Rows, colCount)
	if len(ir.HeaderRowCandidates) > 0 {
		ir.SuggestedHeaderRow = ir.HeaderRowCandidates[0].RowIndex
	}

	labels := ColumnLabels(grid.Rows, ir.SuggestedHeaderRow, colCount)
	ir.ColumnStats = ComputeColumnStats(grid.Rows, labels)

	sample := grid.Rows
	if len(sample) > MaxPreviewRows {
		sample = sample[:MaxPreviewRows]
	}
	preview.SampleRows = sample
	preview.SampleRowCount = len(sample)
	preview.SampleColCount = colCount
	preview.ColumnLabels = labels
	preview.SuggestedHeaderRow = ir.SuggestedHeaderRow

	return ir, preview, nil
}
