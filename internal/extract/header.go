package extract

import (
	"fmt"
	"sort"
	"strings"
)

// ScoreHeaderRow scores row as a header candidate against a sheet of colCount
// columns. It reports false when the row has fewer than three non-null cells
// or no text-like cell.
func ScoreHeaderRow(rowIndex int, row []interface{}, colCount int) (HeaderCandidate, bool) {
	nonNull := 0
	var texts []string
	for _, c := range row {
		if c == nil {
			continue
		}
		nonNull++
		if IsTextLike(c) {
			texts = append(texts, strings.TrimSpace(c.(string)))
		}
	}
	if nonNull < 3 || len(texts) == 0 {
		return HeaderCandidate{}, false
	}

	unique := make(map[string]struct{}, len(texts))
	for _, t := range texts {
		unique[t] = struct{}{}
	}

	textRatio := float64(len(texts)) / float64(max(1, nonNull))
	uniqueRatio := float64(len(unique)) / float64(max(1, len(texts)))
	density := float64(nonNull) / float64(max(1, colCount))

	return HeaderCandidate{
		RowIndex:        rowIndex,
		Score:           round(0.6*textRatio+0.3*uniqueRatio+0.1*density, 4),
		NonNull:         nonNull,
		TextRatio:       round(textRatio, 4),
		UniqueTextRatio: round(uniqueRatio, 4),
	}, true
}

// DetectHeaderCandidates scores the first rows of a grid and returns the best
// candidates, highest score first. Ties keep the earlier row first.
func DetectHeaderCandidates(rows [][]interface{}, colCount int) []HeaderCandidate {
	limit := min(MaxHeaderScanRows, len(rows))
	var out []HeaderCandidate
	for i := 0; i < limit; i++ {
		if hc, ok := ScoreHeaderRow(i, rows[i], colCount); ok {
			out = append(out, hc)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	if len(out) > MaxHeaderCandidate {
		out = out[:MaxHeaderCandidate]
	}
	return out
}

// ColumnLabels derives labels from the header row. Empty cells become "#n"
// and repeated labels get a ".k" suffix so every label is unique.
func ColumnLabels(rows [][]interface{}, headerRow, colCount int) []string {
	labels := make([]string, colCount)
	for i := range labels {
		labels[i] = fmt.Sprintf("#%d", i+1)
	}
	if headerRow < 0 || headerRow >= len(rows) {
		return labels
	}
	for i, c := range rows[headerRow] {
		if i >= colCount {
			break
		}
		if s := strings.TrimSpace(CellString(c)); s != "" {
			labels[i] = s
		}
	}

	seen := make(map[string]int, len(labels))
	for i, l := range labels {
		n := seen[l]
		seen[l] = n + 1
		if n > 0 {
			labels[i] = fmt.Sprintf("%s.%d", l, n)
		}
	}
	return labels
}

// ComputeColumnStats summarizes each column over the header scan window.
func ComputeColumnStats(rows [][]interface{}, labels []string) []ColumnStat {
	window := rows
	if len(window) > MaxHeaderScanRows {
		window = window[:MaxHeaderScanRows]
	}

	stats := make([]ColumnStat, len(labels))
	for c := range labels {
		total, nonNull, numeric := 0, 0, 0
		textLen := 0
		textCount := 0
		for _, row := range window {
			total++
			if c >= len(row) || row[c] == nil {
				continue
			}
			nonNull++
			if s, ok := row[c].(string); ok {
				textLen += len([]rune(s))
				textCount++
			} else {
				numeric++
			}
		}

		st := ColumnStat{Index: c, Label: labels[c]}
		st.NullRatio = round(1-float64(nonNull)/float64(max(1, total)), 4)
		if nonNull > 0 {
			st.NumericRatio = round(float64(numeric)/float64(nonNull), 4)
		}
		if textCount > 0 {
			st.AvgTextLen = round(float64(textLen)/float64(textCount), 2)
		}
		stats[c] = st
	}
	return stats
}
