package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scoreparse/internal/domain"
)

// MockEnricher is a mock implementation of port.RecordEnricher.
type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) Enrich(ctx context.Context, record domain.NormalizedRecord) (*domain.EnrichedRecord, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EnrichedRecord), args.Error(1)
}
