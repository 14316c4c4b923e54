package mapping

import (
	"fmt"

	"scoreparse/internal/domain"
)

// Execute re-parses the whole file into records following plan. It never
// calls the reasoning provider and returns the same records for the same
// inputs. It fails with domain.ErrNoExtractableData when nothing was found.
func Execute(data []byte, filename string, plan Plan) ([]domain.NormalizedRecord, error) {
	ft, err := domain.DetectFileType(filename)
	if err != nil {
		return nil, fmt.Errorf("execute %q: %w", filename, err)
	}

	var records []domain.NormalizedRecord
	switch ft {
	case domain.FileTypeXLSX:
		records, err = executeWorkbook(data, plan)
	case domain.FileTypeDOCX:
		records, err = executeDocument(data, plan)
	case domain.FileTypePPTX:
		records, err = executeSlides(data, plan)
	}
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", ft, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("execute %q: %w", filename, domain.ErrNoExtractableData)
	}
	return records, nil
}
