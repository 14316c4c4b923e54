package port

import (
	"context"
	"time"

	"scoreparse/internal/domain"
)

// ParseSessionRepository defines the contract for parse session persistence.
type ParseSessionRepository interface {
	Create(ctx context.Context, s *domain.ParseSession) error
	GetByID(ctx context.Context, id string) (*domain.ParseSession, error)
	UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error
	// MarkConfirmed moves a previewed session to confirmed. It returns
	// domain.ErrSessionAlreadyConfirmed when the session is no longer previewed.
	MarkConfirmed(ctx context.Context, id string, mapping, records domain.JSONBlob, confirmedAt time.Time) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
