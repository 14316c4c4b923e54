package extract

import "scoreparse/internal/domain"

// Sampling caps that bound what is sent to the reasoning provider.
const (
	MaxSampleRows      = 40
	MaxSampleCols      = 40
	MaxPreviewRows     = 15
	MaxHeaderScanRows  = 8
	MaxHeaderCandidate = 3
	MaxParagraphs      = 40
	MaxTables          = 3
	MaxTableRows       = 10
	MaxTableCols       = 10
	MaxSlides          = 10
	MaxSlideTexts      = 20
)

// Shape is the row/column extent of a sheet.
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// HeaderCandidate is a row scored as a potential table header.
type HeaderCandidate struct {
	RowIndex        int     `json:"row_index"`
	Score           float64 `json:"score"`
	NonNull         int     `json:"non_null"`
	TextRatio       float64 `json:"text_ratio"`
	UniqueTextRatio float64 `json:"unique_text_ratio"`
}

// ColumnStat summarizes one column of the sampled grid.
type ColumnStat struct {
	Index        int     `json:"index"`
	Label        string  `json:"label"`
	NullRatio    float64 `json:"null_ratio"`
	NumericRatio float64 `json:"numeric_ratio"`
	AvgTextLen   float64 `json:"avg_text_len"`
}

// TabularIR describes a workbook.
type TabularIR struct {
	SheetNames          []string          `json:"sheet_names"`
	FirstSheet          string            `json:"first_sheet"`
	Shape               Shape             `json:"shape"`
	HeaderRowCandidates []HeaderCandidate `json:"header_row_candidates"`
	SuggestedHeaderRow  int               `json:"suggested_header_row"`
	ColumnStats         []ColumnStat      `json:"column_stats"`
}

// DocumentIR describes a flow document.
type DocumentIR struct {
	ParagraphCount int `json:"paragraph_count"`
	TableCount     int `json:"table_count"`
}

// SlideIR describes a slide deck.
type SlideIR struct {
	SlideCount int `json:"slide_count"`
}

// IR is the intermediate representation of a source file. Exactly one of the
// format sections is set. It holds no reference to the source bytes.
type IR struct {
	Tabular  *TabularIR  `json:"tabular,omitempty"`
	Document *DocumentIR `json:"document,omitempty"`
	Slides   *SlideIR    `json:"slides,omitempty"`
}

// TabularPreview is a bounded sample of the first sheet.
type TabularPreview struct {
	Sheet              string          `json:"sheet"`
	SampleRows         [][]interface{} `json:"sample_rows"`
	SampleRowCount     int             `json:"sample_row_count"`
	SampleColCount     int             `json:"sample_col_count"`
	ColumnLabels       []string        `json:"column_labels"`
	SuggestedHeaderRow int             `json:"suggested_header_row"`
}

// DocumentPreview is a bounded sample of document paragraphs and tables.
type DocumentPreview struct {
	Paragraphs []string     `json:"paragraphs"`
	Tables     [][][]string `json:"tables"`
}

// SlideSample holds the texts of one slide.
type SlideSample struct {
	SlideIndex int      `json:"slide_index"`
	Texts      []string `json:"texts"`
}

// SlidePreview is a bounded sample of slide texts.
type SlidePreview struct {
	Slides []SlideSample `json:"slides"`
}

// Preview is the size-bounded sample sent alongside the IR.
type Preview struct {
	Tabular  *TabularPreview  `json:"tabular,omitempty"`
	Document *DocumentPreview `json:"document,omitempty"`
	Slides   *SlidePreview    `json:"slides,omitempty"`
}

// Result is the output of ExtractPreview.
type Result struct {
	FileType domain.FileType `json:"file_type"`
	IR       IR              `json:"ir"`
	Preview  Preview         `json:"preview"`
}
