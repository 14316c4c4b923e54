package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"scoreparse/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var recordColumns = []string{
	"Name",
	"Total",
	"Deduction Count",
	"Deducted Points",
	"Deducted Items",
}

var analysisColumns = []string{
	"Analysis",
	"Suggestions",
	"Analysis Failed",
	"Input Tokens",
	"Output Tokens",
}

// Writer wraps csv.Writer for exporting records as CSV.
type Writer struct {
	csv      *csv.Writer
	analysis bool
}

// NewWriter creates a Writer that writes CSV to w. When withAnalysis is set,
// rows carry the enrichment columns as well.
func NewWriter(w io.Writer, withAnalysis bool) *Writer {
	return &Writer{csv: csv.NewWriter(w), analysis: withAnalysis}
}

// Columns returns the header row for this writer.
func (w *Writer) Columns() []string {
	cols := append([]string{}, recordColumns...)
	if w.analysis {
		cols = append(cols, analysisColumns...)
	}
	return cols
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(w.Columns())
}

// WriteRecords writes one row per normalized record.
func (w *Writer) WriteRecords(records []domain.NormalizedRecord) error {
	for i := range records {
		row := recordToRow(&records[i])
		if w.analysis {
			row = append(row, make([]string, len(analysisColumns))...)
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// WriteEnriched writes one row per enriched record.
func (w *Writer) WriteEnriched(records []domain.EnrichedRecord) error {
	for i := range records {
		rec := &records[i]
		row := recordToRow(&rec.NormalizedRecord)
		if w.analysis {
			row = append(row,
				rec.Analysis,
				strings.Join(rec.Suggestions, "; "),
				formatBool(rec.Failed),
				strconv.Itoa(rec.Usage.InputTokens),
				strconv.Itoa(rec.Usage.OutputTokens),
			)
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

func recordToRow(rec *domain.NormalizedRecord) []string {
	labels := make([]string, len(rec.Items))
	for i, it := range rec.Items {
		labels[i] = fmt.Sprintf("%s (%s)", it.Label, formatNumber(it.Value))
	}
	return []string{
		rec.EntityName,
		formatNumber(rec.Total),
		strconv.Itoa(len(rec.Items)),
		formatNumber(domain.SumValues(rec.Items)),
		strings.Join(labels, "; "),
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "records"
	}
	return s
}

// BuildFilename returns {sanitized_name}_{YYYY-MM-DD}.csv.
func BuildFilename(name string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", SanitizeFilename(name), now.Format("2006-01-02"))
}
