package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// totalKeywords mark a column as the total when the plan names none.
var totalKeywords = []string{"总分", "得分", "总成绩", "总计", "总评", "score", "total"}

// ResolveColumn finds the column referenced by ref, which may be an index or
// a label. Labels are tried exactly, trimmed, as a digit index, ignoring case
// and finally as a case-insensitive substring.
func ResolveColumn(labels []string, ref interface{}) (int, error) {
	inRange := func(i int) (int, error) {
		if i < 0 || i >= len(labels) {
			return -1, fmt.Errorf("column index %d out of range (%d columns)", i, len(labels))
		}
		return i, nil
	}

	switch v := ref.(type) {
	case nil:
		return -1, fmt.Errorf("no column given")
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return inRange(cast.ToInt(v))
	case float32, float64:
		f := cast.ToFloat64(v)
		if f != math.Trunc(f) {
			return -1, fmt.Errorf("column index %v is not an integer", f)
		}
		return inRange(int(f))
	}

	name := cast.ToString(ref)
	for i, l := range labels {
		if l == name {
			return i, nil
		}
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return -1, fmt.Errorf("empty column name")
	}
	for i, l := range labels {
		if strings.TrimSpace(l) == trimmed {
			return i, nil
		}
	}
	if isDigits(trimmed) {
		idx, err := strconv.Atoi(trimmed)
		if err == nil {
			return inRange(idx)
		}
	}
	for i, l := range labels {
		if strings.EqualFold(strings.TrimSpace(l), trimmed) {
			return i, nil
		}
	}
	lower := strings.ToLower(trimmed)
	for i, l := range labels {
		if strings.Contains(strings.ToLower(l), lower) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown column %q", name)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// DetectTotalColumn picks a total column by keyword, else the last column when
// at least 60% of its data cells are numeric. It never returns exclude and
// returns -1 when nothing qualifies.
func DetectTotalColumn(labels []string, rows [][]interface{}, exclude int) int {
	for i, l := range labels {
		if i == exclude {
			continue
		}
		ll := strings.ToLower(strings.TrimSpace(l))
		for _, kw := range totalKeywords {
			if strings.Contains(ll, kw) {
				return i
			}
		}
	}

	last := len(labels) - 1
	if last < 0 || last == exclude || len(rows) == 0 {
		return -1
	}
	numeric := 0
	for _, row := range rows {
		if last < len(row) {
			if _, ok := cellNumber(row[last]); ok {
				numeric++
			}
		}
	}
	if float64(numeric)/float64(len(rows)) >= 0.6 {
		return last
	}
	return -1
}

// cellNumber converts a normalized cell into a number.
func cellNumber(c interface{}) (float64, bool) {
	switch v := c.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// isBlankCell reports whether a normalized cell carries no marker.
func isBlankCell(c interface{}) bool {
	switch v := c.(type) {
	case nil:
		return true
	case float64:
		return v == 0 || math.IsNaN(v)
	case string:
		return strings.TrimSpace(v) == ""
	}
	return false
}
