package mapping

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
)

var defaultLineRe = regexp.MustCompile(DefaultLinePattern)

// linePattern compiles the plan's pattern. Patterns the regexp engine cannot
// compile fall back to DefaultLinePattern.
func linePattern(pattern string) *regexp.Regexp {
	if pattern == DefaultLinePattern {
		return defaultLineRe
	}
	re, err := regexp.Compile(pattern)
	if err != nil || re.NumSubexp() < 2 {
		slog.Warn("mapping.linePattern: unusable line pattern, using default", "pattern", pattern, "error", err)
		return defaultLineRe
	}
	return re
}

// IsEntityLine reports whether line looks like an entity heading: no colon,
// at most two words and at most 20 characters.
func IsEntityLine(line string) bool {
	if strings.ContainsAny(line, ":：") {
		return false
	}
	return len(strings.Fields(line)) <= 2 && utf8.RuneCountInString(line) <= 20
}

// matchItem extracts a label/value item from line. The match must start at
// the beginning of the line.
func matchItem(re *regexp.Regexp, line string) (domain.Item, bool) {
	m := re.FindStringSubmatchIndex(line)
	if m == nil || m[0] != 0 || m[2] < 0 || m[4] < 0 {
		return domain.Item{}, false
	}
	label := strings.TrimSpace(line[m[2]:m[3]])
	v, err := strconv.ParseFloat(strings.TrimSpace(line[m[4]:m[5]]), 64)
	if err != nil {
		return domain.Item{}, false
	}
	v = domain.SanitizeValue(v)
	if v == 0 {
		return domain.Item{}, false
	}
	return domain.NewItem(label, v, Categorize(label)), true
}

// textTotal is the sum of item deductions, or the full scale when empty.
func textTotal(items []domain.Item) *float64 {
	total := domain.FullScale
	if len(items) > 0 {
		total = domain.SumValues(items)
	}
	return &total
}

// splitLines splits texts on newlines and drops blank lines.
func splitLines(texts []string) []string {
	var lines []string
	for _, t := range texts {
		for _, l := range strings.Split(t, "\n") {
			if l = strings.TrimSpace(l); l != "" {
				lines = append(lines, l)
			}
		}
	}
	return lines
}

func executeDocument(data []byte, plan Plan) ([]domain.NormalizedRecord, error) {
	body, err := extract.ReadDocument(data)
	if err != nil {
		return nil, err
	}
	return documentRecords(splitLines(body.Paragraphs), linePattern(plan.Common().Items.LinePattern)), nil
}

// documentRecords groups lines into records: an entity line opens a record and
// matching item lines attach to it until the next entity line.
func documentRecords(lines []string, re *regexp.Regexp) []domain.NormalizedRecord {
	var (
		records []domain.NormalizedRecord
		name    string
		items   []domain.Item
	)
	flush := func() {
		if name != "" {
			records = append(records, domain.NewRecord(name, items, textTotal(items)))
		}
		name, items = "", nil
	}

	for _, line := range lines {
		if IsEntityLine(line) {
			flush()
			name = line
			continue
		}
		if name == "" {
			continue
		}
		if it, ok := matchItem(re, line); ok {
			items = append(items, it)
		}
	}
	flush()
	return records
}

func executeSlides(data []byte, plan Plan) ([]domain.NormalizedRecord, error) {
	slides, err := extract.ReadSlides(data)
	if err != nil {
		return nil, err
	}
	re := linePattern(plan.Common().Items.LinePattern)

	var records []domain.NormalizedRecord
	for _, s := range slides {
		if rec, ok := slideRecord(splitLines(s.Texts), re); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// slideRecord builds one record per slide: the first entity line names it and
// every matching line on the slide is an item.
func slideRecord(lines []string, re *regexp.Regexp) (domain.NormalizedRecord, bool) {
	name := ""
	for _, l := range lines {
		if IsEntityLine(l) {
			name = l
			break
		}
	}
	if name == "" {
		return domain.NormalizedRecord{}, false
	}

	var items []domain.Item
	for _, l := range lines {
		if it, ok := matchItem(re, l); ok {
			items = append(items, it)
		}
	}
	return domain.NewRecord(name, items, textTotal(items)), true
}
