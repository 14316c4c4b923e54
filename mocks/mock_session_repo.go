package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"scoreparse/internal/domain"
)

// MockSessionRepo is a mock implementation of port.ParseSessionRepository.
type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Create(ctx context.Context, s *domain.ParseSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSessionRepo) GetByID(ctx context.Context, id string) (*domain.ParseSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ParseSession), args.Error(1)
}

func (m *MockSessionRepo) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockSessionRepo) MarkConfirmed(ctx context.Context, id string, mapping, records domain.JSONBlob, confirmedAt time.Time) error {
	args := m.Called(ctx, id, mapping, records, confirmedAt)
	return args.Error(0)
}

func (m *MockSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}
