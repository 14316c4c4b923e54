// Package testutil builds small in-memory office files for tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a generated workbook.
type Sheet struct {
	Name string
	Rows [][]interface{}
}

// Workbook returns xlsx bytes holding the given sheets in order.
func Workbook(t testing.TB, sheets ...Sheet) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sh := range sheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", sh.Name))
		} else {
			_, err := f.NewSheet(sh.Name)
			require.NoError(t, err)
		}
		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			values := row
			require.NoError(t, f.SetSheetRow(sh.Name, cell, &values))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

func writeZip(t testing.TB, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func wordParagraph(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`
}

// Document returns docx bytes with the paragraphs followed by the tables.
func Document(t testing.TB, paragraphs []string, tables ...[][]string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(wordParagraph(p))
	}
	for _, tbl := range tables {
		body.WriteString("<w:tbl>")
		for _, row := range tbl {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				body.WriteString("<w:tc>" + wordParagraph(cell) + "</w:tc>")
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}
	return writeZip(t, files, []string{"[Content_Types].xml", "word/document.xml"})
}

// Deck returns pptx bytes; each slide holds one text shape per entry.
// Slides are stored in reverse file order so readers must honour the
// presentation order.
func Deck(t testing.TB, slides ...[]string) []byte {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
	}
	order := []string{"[Content_Types].xml"}

	var ids, rels strings.Builder
	n := len(slides)
	for i, texts := range slides {
		fileNo := n - i
		name := fmt.Sprintf("slide%d.xml", fileNo)
		rid := fmt.Sprintf("rId%d", i+2)
		ids.WriteString(fmt.Sprintf(`<p:sldId id="%d" r:id="%s"/>`, 256+i, rid))
		rels.WriteString(fmt.Sprintf(`<Relationship Id="%s" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide" Target="slides/%s"/>`, rid, name))

		var shapes strings.Builder
		for _, text := range texts {
			shapes.WriteString(`<p:sp><p:txBody>`)
			for _, line := range strings.Split(text, "\n") {
				shapes.WriteString(`<a:p><a:r><a:t>` + escape(line) + `</a:t></a:r></a:p>`)
			}
			shapes.WriteString(`</p:txBody></p:sp>`)
		}
		files["ppt/slides/"+name] = `<?xml version="1.0" encoding="UTF-8"?>` +
			`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
			`<p:cSld><p:spTree>` + shapes.String() + `</p:spTree></p:cSld></p:sld>`
		order = append(order, "ppt/slides/"+name)
	}

	files["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<p:sldIdLst>` + ids.String() + `</p:sldIdLst></p:presentation>`
	files["ppt/_rels/presentation.xml.rels"] = `<?xml version="1.0" encoding="UTF-8"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + rels.String() + `</Relationships>`
	order = append(order, "ppt/presentation.xml", "ppt/_rels/presentation.xml.rels")

	return writeZip(t, files, order)
}
