package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"scoreparse/internal/domain"
	"scoreparse/internal/service"
)

// MockParseService is a mock implementation of service.ParseService.
type MockParseService struct {
	mock.Mock
}

func (m *MockParseService) Preview(ctx context.Context, input *service.PreviewInput) (*service.PreviewResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PreviewResult), args.Error(1)
}

func (m *MockParseService) Confirm(ctx context.Context, input *service.ConfirmInput) (*service.ConfirmResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ConfirmResult), args.Error(1)
}

func (m *MockParseService) GetSession(ctx context.Context, ownerID, sessionID string) (*domain.ParseSession, error) {
	args := m.Called(ctx, ownerID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseSession), args.Error(1)
}

func (m *MockParseService) ListRecords(ctx context.Context, ownerID, sessionID string, query service.RecordQuery) ([]domain.NormalizedRecord, error) {
	args := m.Called(ctx, ownerID, sessionID, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.NormalizedRecord), args.Error(1)
}

func (m *MockParseService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}
