package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scoreparse/internal/domain"
	"scoreparse/internal/service"
)

// MockBatchEnricher is a mock implementation of service.BatchEnricher.
type MockBatchEnricher struct {
	mock.Mock
}

func (m *MockBatchEnricher) Enrich(ctx context.Context, records []domain.NormalizedRecord, opts service.EnrichOptions) ([]domain.EnrichedRecord, domain.Usage) {
	args := m.Called(ctx, records, opts)
	var out []domain.EnrichedRecord
	if v := args.Get(0); v != nil {
		out = v.([]domain.EnrichedRecord)
	}
	return out, args.Get(1).(domain.Usage)
}
