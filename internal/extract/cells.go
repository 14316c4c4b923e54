package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericRe = regexp.MustCompile(`^[-+]?(\d+(\.\d*)?|\.\d+)([eE][-+]?\d+)?$`)

// missingTokens are spreadsheet strings treated as empty cells.
var missingTokens = map[string]bool{
	"#N/A": true, "#N/A N/A": true, "#NA": true, "-NaN": true, "-nan": true,
	"<NA>": true, "N/A": true, "NA": true, "NULL": true, "NaN": true,
	"None": true, "n/a": true, "nan": true, "null": true,
}

// NormalizeCell converts a raw cell string into nil (empty), float64 (numeric)
// or a trimmed string.
func NormalizeCell(raw string) interface{} {
	s := strings.TrimSpace(raw)
	if s == "" || missingTokens[s] {
		return nil
	}
	if numericRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) {
			return f
		}
	}
	return s
}

// IsTextLike reports whether a normalized cell holds text that is not a pure number.
func IsTextLike(c interface{}) bool {
	s, ok := c.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	return s != "" && !numericRe.MatchString(s)
}

// CellString renders a normalized cell as text; nil renders as "".
func CellString(c interface{}) string {
	switch v := c.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
