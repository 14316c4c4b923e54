package port

import (
	"context"

	"scoreparse/internal/domain"
)

// RecordEnricher generates commentary for a single record.
type RecordEnricher interface {
	Enrich(ctx context.Context, record domain.NormalizedRecord) (*domain.EnrichedRecord, error)
}

// StyledEnricher is a RecordEnricher that can take a style reference for
// one batch without mutating the shared instance.
type StyledEnricher interface {
	RecordEnricher
	WithExample(example string) RecordEnricher
}
