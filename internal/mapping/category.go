package mapping

import "strings"

// Item categories recognised by Categorize.
const (
	CategoryChoice      = "choice"
	CategoryFillIn      = "fill-in"
	CategoryComputation = "computation"
	CategoryApplication = "application"
	CategoryJudgment    = "judgment"
	CategoryShortAnswer = "short-answer"
	CategoryDiagram     = "diagram"
)

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryChoice, []string{"选择", "单选", "多选", "choice"}},
	{CategoryFillIn, []string{"填空", "fill-in", "fill in", "blank"}},
	{CategoryComputation, []string{"计算", "computation", "calculation", "calculate"}},
	{CategoryApplication, []string{"应用", "解答", "application", "word problem"}},
	{CategoryJudgment, []string{"判断", "judgment", "judgement", "true/false", "true or false"}},
	{CategoryShortAnswer, []string{"简答", "short answer", "short-answer"}},
	{CategoryDiagram, []string{"作图", "画图", "diagram", "drawing"}},
}

// Categorize maps an item label onto the fixed category vocabulary. Labels
// that match no keyword are their own category.
func Categorize(label string) string {
	l := strings.ToLower(label)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(l, kw) {
				return c.category
			}
		}
	}
	return label
}
