package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DocumentBody holds the body-level paragraphs and tables of a .docx file.
type DocumentBody struct {
	Paragraphs []string
	Tables     [][][]string
}

// Slide holds the non-empty shape texts of one slide, in document order.
type Slide struct {
	Index int
	Texts []string
}

func openZip(data []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return r, nil
}

func zipEntry(r *zip.Reader, name string) *zip.File {
	for _, f := range r.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// ReadDocument parses word/document.xml. Paragraphs nested in tables are
// reported as table cells, not body paragraphs.
func ReadDocument(data []byte) (*DocumentBody, error) {
	r, err := openZip(data)
	if err != nil {
		return nil, err
	}
	docFile := zipEntry(r, "word/document.xml")
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in archive")
	}
	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	body := &DocumentBody{}
	decoder := xml.NewDecoder(rc)

	var (
		para       strings.Builder
		inPara     bool
		inText     bool
		tableDepth int
		table      [][]string
		row        []string
		cellParas  []string
		inCell     bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					inCell = true
					cellParas = nil
				}
			case "p":
				inPara = true
				para.Reset()
			case "t":
				inText = inPara
			case "tab":
				if inPara {
					para.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					para.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if !inPara {
					continue
				}
				inPara = false
				text := strings.TrimSpace(para.String())
				switch {
				case tableDepth == 0 && text != "":
					body.Paragraphs = append(body.Paragraphs, text)
				case tableDepth == 1 && inCell:
					cellParas = append(cellParas, text)
				}
			case "tc":
				if tableDepth == 1 && inCell {
					row = append(row, strings.TrimSpace(strings.Join(cellParas, "\n")))
					inCell = false
				}
			case "tr":
				if tableDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if tableDepth == 1 {
					body.Tables = append(body.Tables, table)
				}
				tableDepth--
			}
		}
	}
	return body, nil
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

type relationships struct {
	Items []relationship `xml:"Relationship"`
}

type presentationXML struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// ReadSlides returns the slides of a .pptx file in presentation order.
func ReadSlides(data []byte) ([]Slide, error) {
	r, err := openZip(data)
	if err != nil {
		return nil, err
	}

	order := slideOrder(r)
	slides := make([]Slide, 0, len(order))
	for _, name := range order {
		f := zipEntry(r, name)
		if f == nil {
			continue
		}
		texts, err := readSlideTexts(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		slides = append(slides, Slide{Index: len(slides), Texts: texts})
	}
	return slides, nil
}

// slideOrder follows ppt/presentation.xml and its relationships, falling back
// to numeric slide file order when those parts are missing.
func slideOrder(r *zip.Reader) []string {
	if order := presentationOrder(r); len(order) > 0 {
		return order
	}

	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for _, f := range r.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		found = append(found, numbered{n, f.Name})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	names := make([]string, len(found))
	for i, s := range found {
		names[i] = s.name
	}
	return names
}

func presentationOrder(r *zip.Reader) []string {
	var pres presentationXML
	if err := decodeZipXML(r, "ppt/presentation.xml", &pres); err != nil {
		return nil
	}
	var rels relationships
	if err := decodeZipXML(r, "ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil
	}
	targets := make(map[string]string, len(rels.Items))
	for _, rel := range rels.Items {
		targets[rel.ID] = rel.Target
	}

	var names []string
	for _, id := range pres.SlideIDs {
		target, ok := targets[id.RID]
		if !ok {
			continue
		}
		if strings.HasPrefix(target, "/") {
			names = append(names, strings.TrimPrefix(target, "/"))
		} else {
			names = append(names, path.Join("ppt", target))
		}
	}
	return names
}

func decodeZipXML(r *zip.Reader, name string, v interface{}) error {
	f := zipEntry(r, name)
	if f == nil {
		return fmt.Errorf("%s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(rc).Decode(v)
}

// readSlideTexts collects the text of each shape; a shape's paragraphs are
// joined with newlines.
func readSlideTexts(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		texts  []string
		shapes int
		paras  []string
		para   strings.Builder
		inPara bool
		inText bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode slide: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				shapes++
				if shapes == 1 {
					paras = nil
				}
			case "p":
				if shapes > 0 {
					inPara = true
					para.Reset()
				}
			case "t":
				inText = inPara
			case "br":
				if inPara {
					para.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inText {
				para.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					paras = append(paras, para.String())
					inPara = false
				}
			case "sp":
				if shapes == 0 {
					continue
				}
				shapes--
				if shapes == 0 {
					if text := strings.TrimSpace(strings.Join(paras, "\n")); text != "" {
						texts = append(texts, text)
					}
				}
			}
		}
	}
	return texts, nil
}
