package extract_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
	"scoreparse/internal/testutil"
)

func TestExtractPreview_UnsupportedFormat(t *testing.T) {
	_, err := extract.ExtractPreview([]byte("hello"), "scores.csv")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedFormat))
}

func TestExtractPreview_Workbook(t *testing.T) {
	rows := [][]interface{}{
		{"Grade 7 midterm"},
		{"Name", "Choice 1", "Fill-in 2", "Total"},
	}
	for i := 0; i < 50; i++ {
		rows = append(rows, []interface{}{"Student", 1, nil, 90})
	}
	data := testutil.Workbook(t,
		testutil.Sheet{Name: "Scores", Rows: rows},
		testutil.Sheet{Name: "Notes", Rows: [][]interface{}{{"n/a"}}},
	)
	original := append([]byte(nil), data...)

	res, err := extract.ExtractPreview(data, "Midterm.XLSX")

	require.NoError(t, err)
	assert.Equal(t, original, data)
	assert.Equal(t, domain.FileTypeXLSX, res.FileType)
	require.NotNil(t, res.IR.Tabular)
	assert.Nil(t, res.IR.Document)

	ir := res.IR.Tabular
	assert.Equal(t, []string{"Scores", "Notes"}, ir.SheetNames)
	assert.Equal(t, "Scores", ir.FirstSheet)
	assert.Equal(t, 52, ir.Shape.Rows)
	assert.Equal(t, 4, ir.Shape.Cols)
	require.NotEmpty(t, ir.HeaderRowCandidates)
	assert.Equal(t, 1, ir.SuggestedHeaderRow)
	require.Len(t, ir.ColumnStats, 4)
	assert.Equal(t, "Total", ir.ColumnStats[3].Label)

	p := res.Preview.Tabular
	require.NotNil(t, p)
	assert.Equal(t, extract.MaxPreviewRows, p.SampleRowCount)
	assert.Len(t, p.SampleRows, extract.MaxPreviewRows)
	assert.Equal(t, []string{"Name", "Choice 1", "Fill-in 2", "Total"}, p.ColumnLabels)
	assert.Equal(t, 90.0, p.SampleRows[2][3])
}

func TestExtractPreview_Document(t *testing.T) {
	paras := make([]string, 0, 45)
	for i := 0; i < 45; i++ {
		paras = append(paras, "line")
	}
	table := [][]string{{"Name", "Q1"}, {"Alice", "2"}}
	data := testutil.Document(t, paras, table)

	res, err := extract.ExtractPreview(data, "report.docx")

	require.NoError(t, err)
	assert.Equal(t, domain.FileTypeDOCX, res.FileType)
	require.NotNil(t, res.IR.Document)
	assert.Equal(t, 45, res.IR.Document.ParagraphCount)
	assert.Equal(t, 1, res.IR.Document.TableCount)
	assert.Len(t, res.Preview.Document.Paragraphs, extract.MaxParagraphs)
	assert.Equal(t, [][][]string{table}, res.Preview.Document.Tables)
}

func TestExtractPreview_Slides(t *testing.T) {
	data := testutil.Deck(t,
		[]string{"Alice", "Choice 3: 2"},
		[]string{"Bob", "Fill-in 5: 4\nApplication 9: 6"},
	)

	res, err := extract.ExtractPreview(data, "review.pptx")

	require.NoError(t, err)
	require.NotNil(t, res.IR.Slides)
	assert.Equal(t, 2, res.IR.Slides.SlideCount)
	require.Len(t, res.Preview.Slides.Slides, 2)
	assert.Equal(t, []string{"Alice", "Choice 3: 2"}, res.Preview.Slides.Slides[0].Texts)
	assert.Equal(t, 1, res.Preview.Slides.Slides[1].SlideIndex)
	assert.Equal(t, "Fill-in 5: 4\nApplication 9: 6", res.Preview.Slides.Slides[1].Texts[1])
}

func TestExtractPreview_CorruptArchive(t *testing.T) {
	_, err := extract.ExtractPreview([]byte("not a zip"), "report.docx")

	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrUnsupportedFormat))
}

func TestReadDocument_TableParagraphsStayInCells(t *testing.T) {
	data := testutil.Document(t, []string{"Intro", "  ", "Outro"}, [][]string{{"a", "b"}})

	body, err := extract.ReadDocument(data)

	require.NoError(t, err)
	assert.Equal(t, []string{"Intro", "Outro"}, body.Paragraphs)
	assert.Equal(t, [][][]string{{{"a", "b"}}}, body.Tables)
}
