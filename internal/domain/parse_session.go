package domain

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"time"
)

// DefaultSessionTTL is how long a previewed session stays confirmable.
const DefaultSessionTTL = 10 * time.Minute

// JSONBlob is a raw JSON document stored in a jsonb or text column.
type JSONBlob []byte

// Value implements driver.Valuer.
func (j JSONBlob) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner for both []byte and string columns.
func (j *JSONBlob) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONBlob(v)
	default:
		return fmt.Errorf("JSONBlob: unsupported scan type %T", src)
	}
	return nil
}

// MarshalJSON emits the blob verbatim.
func (j JSONBlob) MarshalJSON() ([]byte, error) {
	if len(bytes.TrimSpace(j)) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of data.
func (j *JSONBlob) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

// ParseSession binds one uploaded file to a previewed mapping pending confirmation.
// It holds serialized snapshots of the IR and mapping so confirmation does not
// depend on the objects that produced them.
type ParseSession struct {
	ID          string        `db:"id" json:"id"`
	OwnerID     string        `db:"owner_id" json:"owner_id"`
	FileKey     string        `db:"file_key" json:"file_key"`
	FileName    string        `db:"file_name" json:"file_name"`
	FileType    FileType      `db:"file_type" json:"file_type"`
	Status      SessionStatus `db:"status" json:"status"`
	IR          JSONBlob      `db:"ir_json" json:"ir"`
	Mapping     JSONBlob      `db:"mapping_json" json:"mapping"`
	Records     JSONBlob      `db:"records_json" json:"records,omitempty"`
	Confidence  float64       `db:"confidence" json:"confidence"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time     `db:"expires_at" json:"expires_at"`
	ConfirmedAt *time.Time    `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// Refresh moves a previewed session past its TTL into the expired state.
// It reports whether the status changed so callers can persist it.
func (s *ParseSession) Refresh(now time.Time) bool {
	if s.Status == SessionStatusPreviewed && now.After(s.ExpiresAt) {
		s.Status = SessionStatusExpired
		return true
	}
	return false
}

// Confirm transitions a previewed session to confirmed with the final mapping.
func (s *ParseSession) Confirm(now time.Time, mapping JSONBlob) error {
	s.Refresh(now)
	switch s.Status {
	case SessionStatusExpired:
		return ErrSessionExpired
	case SessionStatusConfirmed:
		return ErrSessionAlreadyConfirmed
	}
	s.Status = SessionStatusConfirmed
	s.Mapping = mapping
	confirmed := now.UTC()
	s.ConfirmedAt = &confirmed
	return nil
}
