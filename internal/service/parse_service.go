package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"scoreparse/internal/domain"
	"scoreparse/internal/extract"
	"scoreparse/internal/mapping"
	"scoreparse/internal/port"
)

// MappingInferrer proposes a mapping plan for an extracted file.
type MappingInferrer interface {
	Infer(ctx context.Context, ft domain.FileType, ir extract.IR, preview extract.Preview) (*mapping.Result, error)
}

// PreviewInput is the DTO for previewing an uploaded file.
type PreviewInput struct {
	OwnerID  string
	FileName string
	Data     []byte
}

// PreviewResult is returned by Preview.
type PreviewResult struct {
	Session *domain.ParseSession `json:"session"`
	IR      extract.IR           `json:"ir"`
	Preview extract.Preview      `json:"preview"`
	Mapping *mapping.Result      `json:"mapping_result"`
}

// ConfirmInput is the DTO for confirming a previewed session.
type ConfirmInput struct {
	OwnerID   string
	SessionID string
	// Override is deep-merged onto the previewed mapping.
	Override       mapping.Plan
	Enrich         bool
	MaxConcurrency int
	// Example is an optional style reference for enrichment.
	Example string
}

// ConfirmResult is returned by Confirm.
type ConfirmResult struct {
	SessionID string                    `json:"session_id"`
	Mapping   mapping.Plan              `json:"mapping"`
	Records   []domain.NormalizedRecord `json:"records"`
	Enriched  []domain.EnrichedRecord   `json:"enriched,omitempty"`
	Usage     domain.Usage              `json:"usage"`
}

// RecordQuery filters the records of a confirmed session. Entity matches a
// name exactly; Keyword matches a name substring, case-insensitively.
type RecordQuery struct {
	Entity  string
	Keyword string
}

// ParseService runs the preview/confirm pipeline over parse sessions.
type ParseService interface {
	Preview(ctx context.Context, input *PreviewInput) (*PreviewResult, error)
	Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmResult, error)
	GetSession(ctx context.Context, ownerID, sessionID string) (*domain.ParseSession, error)
	ListRecords(ctx context.Context, ownerID, sessionID string, query RecordQuery) ([]domain.NormalizedRecord, error)
	PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type parseService struct {
	sessions port.ParseSessionRepository
	blobs    port.BlobStore
	inferrer MappingInferrer
	enricher BatchEnricher
	ttl      time.Duration
	now      func() time.Time
}

// ParseServiceOption customizes a ParseService.
type ParseServiceOption func(*parseService)

// WithClock replaces the time source used for session expiry.
func WithClock(now func() time.Time) ParseServiceOption {
	return func(s *parseService) { s.now = now }
}

// NewParseService creates a new ParseService. enricher may be nil when
// enrichment is not available.
func NewParseService(
	sessions port.ParseSessionRepository,
	blobs port.BlobStore,
	inferrer MappingInferrer,
	enricher BatchEnricher,
	ttl time.Duration,
	opts ...ParseServiceOption,
) ParseService {
	if ttl <= 0 {
		ttl = domain.DefaultSessionTTL
	}
	s := &parseService{
		sessions: sessions,
		blobs:    blobs,
		inferrer: inferrer,
		enricher: enricher,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func blobKey(ownerID, sessionID, filename string) string {
	name := unsafeKeyChars.ReplaceAllString(filepath.Base(filename), "_")
	return fmt.Sprintf("parse/%s/%s/%s", unsafeKeyChars.ReplaceAllString(ownerID, "_"), sessionID, name)
}

func (s *parseService) Preview(ctx context.Context, input *PreviewInput) (*PreviewResult, error) {
	extracted, err := extract.ExtractPreview(input.Data, input.FileName)
	if err != nil {
		return nil, err
	}

	inferred, err := s.inferrer.Infer(ctx, extracted.FileType, extracted.IR, extracted.Preview)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrMalformedMapping) && inferred != nil:
		// Unparseable plans degrade to an empty mapping so the caller can
		// supply one manually.
		slog.Warn("service.ParseService.Preview: mapping degraded to empty", "file", input.FileName, "error", err)
		inferred.Mapping = mapping.Plan{}
		inferred.Confidence = 0
		inferred.Errors = append(inferred.Errors, err.Error())
	default:
		return nil, err
	}

	irJSON, err := json.Marshal(extracted.IR)
	if err != nil {
		return nil, fmt.Errorf("marshal IR: %w", err)
	}
	mappingJSON, err := json.Marshal(inferred.Mapping)
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}

	now := s.now().UTC()
	session := &domain.ParseSession{
		ID:         uuid.New().String(),
		OwnerID:    input.OwnerID,
		FileName:   filepath.Base(input.FileName),
		FileType:   extracted.FileType,
		Status:     domain.SessionStatusPreviewed,
		IR:         irJSON,
		Mapping:    mappingJSON,
		Confidence: inferred.Confidence,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}

	key, err := s.blobs.Write(ctx, blobKey(input.OwnerID, session.ID, input.FileName), input.Data, domain.ContentTypes[extracted.FileType])
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	session.FileKey = key

	if err := s.sessions.Create(ctx, session); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			slog.Warn("service.ParseService.Preview: orphaned upload", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.Info("service.ParseService.Preview: session created",
		"session_id", session.ID, "file_type", session.FileType, "confidence", session.Confidence,
		"input_tokens", inferred.Usage.InputTokens, "output_tokens", inferred.Usage.OutputTokens)

	return &PreviewResult{
		Session: session,
		IR:      extracted.IR,
		Preview: extracted.Preview,
		Mapping: inferred,
	}, nil
}

// load fetches a session for its owner and persists lazy expiry.
func (s *parseService) load(ctx context.Context, ownerID, sessionID string) (*domain.ParseSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	if session.Refresh(s.now()) {
		if err := s.sessions.UpdateStatus(ctx, session.ID, session.Status); err != nil {
			slog.Error("service.ParseService: failed to persist expiry", "session_id", session.ID, "error", err)
		}
	}
	return session, nil
}

func (s *parseService) GetSession(ctx context.Context, ownerID, sessionID string) (*domain.ParseSession, error) {
	return s.load(ctx, ownerID, sessionID)
}

func (s *parseService) ListRecords(ctx context.Context, ownerID, sessionID string, query RecordQuery) ([]domain.NormalizedRecord, error) {
	session, err := s.load(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusConfirmed {
		return nil, domain.ErrSessionNotConfirmed
	}

	var records []domain.NormalizedRecord
	if len(session.Records) > 0 {
		if err := json.Unmarshal(session.Records, &records); err != nil {
			return nil, fmt.Errorf("decode stored records: %w", err)
		}
	}

	entity := strings.TrimSpace(query.Entity)
	keyword := strings.ToLower(strings.TrimSpace(query.Keyword))
	out := make([]domain.NormalizedRecord, 0, len(records))
	for _, rec := range records {
		if entity != "" && rec.EntityName != entity {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(rec.EntityName), keyword) {
			continue
		}
		out = append(out, rec)
	}
	if entity != "" && len(out) == 0 {
		return nil, fmt.Errorf("record %q: %w", entity, domain.ErrNotFound)
	}
	return out, nil
}

func (s *parseService) Confirm(ctx context.Context, input *ConfirmInput) (*ConfirmResult, error) {
	session, err := s.load(ctx, input.OwnerID, input.SessionID)
	if err != nil {
		return nil, err
	}
	switch session.Status {
	case domain.SessionStatusExpired:
		return nil, domain.ErrSessionExpired
	case domain.SessionStatusConfirmed:
		return nil, domain.ErrSessionAlreadyConfirmed
	}

	var base mapping.Plan
	if len(session.Mapping) > 0 {
		if err := json.Unmarshal(session.Mapping, &base); err != nil {
			return nil, fmt.Errorf("decode stored mapping: %w", err)
		}
	}
	final := mapping.Merge(base, input.Override)

	data, err := s.blobs.Read(ctx, session.FileKey)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	records, err := mapping.Execute(data, session.FileName, final)
	if err != nil {
		return nil, err
	}

	mappingJSON, err := json.Marshal(final)
	if err != nil {
		return nil, fmt.Errorf("marshal mapping: %w", err)
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}

	if err := session.Confirm(s.now(), mappingJSON); err != nil {
		return nil, err
	}
	if err := s.sessions.MarkConfirmed(ctx, session.ID, mappingJSON, recordsJSON, *session.ConfirmedAt); err != nil {
		return nil, err
	}

	result := &ConfirmResult{SessionID: session.ID, Mapping: final, Records: records}
	if input.Enrich && s.enricher != nil {
		result.Enriched, result.Usage = s.enricher.Enrich(ctx, records, EnrichOptions{
			MaxConcurrency: input.MaxConcurrency,
			Example:        input.Example,
		})
	}

	slog.Info("service.ParseService.Confirm: session confirmed",
		"session_id", session.ID, "records", len(records), "enriched", len(result.Enriched))
	return result, nil
}

func (s *parseService) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now().Add(-olderThan))
}
