package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"scoreparse/internal/port"
)

// MockReasoningClient is a mock implementation of port.ReasoningClient.
type MockReasoningClient struct {
	mock.Mock
}

func (m *MockReasoningClient) CreateStructuredResponse(ctx context.Context, req port.StructuredRequest) (*port.StructuredResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.StructuredResponse), args.Error(1)
}
