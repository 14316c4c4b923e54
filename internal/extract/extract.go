// Package extract turns raw xlsx, docx and pptx bytes into an intermediate
// representation and a bounded preview for mapping inference.
package extract

import (
	"fmt"

	"scoreparse/internal/domain"
)

// ExtractPreview detects the format from filename and extracts IR and preview.
// The input buffer is neither modified nor retained.
func ExtractPreview(data []byte, filename string) (*Result, error) {
	ft, err := domain.DetectFileType(filename)
	if err != nil {
		return nil, fmt.Errorf("extract %q: %w", filename, err)
	}

	res := &Result{FileType: ft}
	switch ft {
	case domain.FileTypeXLSX:
		ir, preview, err := extractWorkbook(data)
		if err != nil {
			return nil, fmt.Errorf("extract xlsx: %w", err)
		}
		res.IR.Tabular, res.Preview.Tabular = ir, preview
	case domain.FileTypeDOCX:
		ir, preview, err := extractDocument(data)
		if err != nil {
			return nil, fmt.Errorf("extract docx: %w", err)
		}
		res.IR.Document, res.Preview.Document = ir, preview
	case domain.FileTypePPTX:
		ir, preview, err := extractSlides(data)
		if err != nil {
			return nil, fmt.Errorf("extract pptx: %w", err)
		}
		res.IR.Slides, res.Preview.Slides = ir, preview
	}
	return res, nil
}

func extractDocument(data []byte) (*DocumentIR, *DocumentPreview, error) {
	body, err := ReadDocument(data)
	if err != nil {
		return nil, nil, err
	}

	paras := body.Paragraphs
	if len(paras) > MaxParagraphs {
		paras = paras[:MaxParagraphs]
	}

	tables := make([][][]string, 0, MaxTables)
	for i, tbl := range body.Tables {
		if i >= MaxTables {
			break
		}
		grid := make([][]string, 0, MaxTableRows)
		for r, row := range tbl {
			if r >= MaxTableRows {
				break
			}
			if len(row) > MaxTableCols {
				row = row[:MaxTableCols]
			}
			grid = append(grid, append([]string(nil), row...))
		}
		tables = append(tables, grid)
	}

	ir := &DocumentIR{ParagraphCount: len(body.Paragraphs), TableCount: len(body.Tables)}
	preview := &DocumentPreview{Paragraphs: append([]string(nil), paras...), Tables: tables}
	return ir, preview, nil
}

func extractSlides(data []byte) (*SlideIR, *SlidePreview, error) {
	slides, err := ReadSlides(data)
	if err != nil {
		return nil, nil, err
	}

	samples := make([]SlideSample, 0, MaxSlides)
	for i, s := range slides {
		if i >= MaxSlides {
			break
		}
		texts := s.Texts
		if len(texts) > MaxSlideTexts {
			texts = texts[:MaxSlideTexts]
		}
		samples = append(samples, SlideSample{SlideIndex: i, Texts: append([]string(nil), texts...)})
	}

	return &SlideIR{SlideCount: len(slides)}, &SlidePreview{Slides: samples}, nil
}
