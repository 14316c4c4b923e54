package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"scoreparse/internal/domain"
	"scoreparse/internal/port"
)

const sessionColumns = `id, owner_id, file_key, file_name, file_type, status,
	ir_json, mapping_json, records_json, confidence, created_at, expires_at, confirmed_at`

type parseSessionRepo struct {
	db *sqlx.DB
}

// NewParseSessionRepo creates a ParseSessionRepository on a pgx or sqlite handle.
// Queries are written with ? placeholders and rebound for the driver.
func NewParseSessionRepo(db *sqlx.DB) port.ParseSessionRepository {
	return &parseSessionRepo{db: db}
}

func (r *parseSessionRepo) Create(ctx context.Context, s *domain.ParseSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = domain.SessionStatusPreviewed
	}

	query := r.db.Rebind(`INSERT INTO parse_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.FileKey, s.FileName, s.FileType, s.Status,
		s.IR, s.Mapping, nullableBlob(s.Records), s.Confidence,
		s.CreatedAt.UTC(), s.ExpiresAt.UTC(), nullableTime(s.ConfirmedAt))
	if err != nil {
		return fmt.Errorf("parseSessionRepo.Create: %w", err)
	}
	return nil
}

func (r *parseSessionRepo) GetByID(ctx context.Context, id string) (*domain.ParseSession, error) {
	var s domain.ParseSession
	err := r.db.GetContext(ctx, &s,
		r.db.Rebind(`SELECT `+sessionColumns+` FROM parse_sessions WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("parseSessionRepo.GetByID: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	if s.ConfirmedAt != nil {
		t := s.ConfirmedAt.UTC()
		s.ConfirmedAt = &t
	}
	return &s, nil
}

func (r *parseSessionRepo) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE parse_sessions SET status = ? WHERE id = ?"), status, id)
	if err != nil {
		return fmt.Errorf("parseSessionRepo.UpdateStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *parseSessionRepo) MarkConfirmed(ctx context.Context, id string, mapping, records domain.JSONBlob, confirmedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE parse_sessions
		SET status = ?, mapping_json = ?, records_json = ?, confirmed_at = ?
		WHERE id = ? AND status = ?`),
		domain.SessionStatusConfirmed, mapping, nullableBlob(records), confirmedAt.UTC(),
		id, domain.SessionStatusPreviewed)
	if err != nil {
		return fmt.Errorf("parseSessionRepo.MarkConfirmed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	// Nothing updated: report why.
	var status domain.SessionStatus
	err = r.db.GetContext(ctx, &status,
		r.db.Rebind("SELECT status FROM parse_sessions WHERE id = ?"), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return fmt.Errorf("parseSessionRepo.MarkConfirmed status: %w", err)
	case status == domain.SessionStatusExpired:
		return domain.ErrSessionExpired
	default:
		return domain.ErrSessionAlreadyConfirmed
	}
}

func (r *parseSessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind("DELETE FROM parse_sessions WHERE status <> ? AND expires_at < ?"),
		domain.SessionStatusConfirmed, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("parseSessionRepo.DeleteExpired: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func nullableBlob(b domain.JSONBlob) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
