package service

import (
	"context"
	"log/slog"
	"time"
)

// SessionJanitorConfig holds settings for the session janitor.
type SessionJanitorConfig struct {
	Interval time.Duration
	// Retention is how long past expiry a session row is kept.
	Retention time.Duration
}

// SessionJanitor periodically deletes parse sessions long past their expiry.
type SessionJanitor struct {
	svc ParseService
	cfg SessionJanitorConfig
}

// NewSessionJanitor creates a new SessionJanitor.
func NewSessionJanitor(svc ParseService, cfg SessionJanitorConfig) *SessionJanitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &SessionJanitor{svc: svc, cfg: cfg}
}

// Start runs the purge loop until ctx is canceled.
func (j *SessionJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.cfg.Interval)
	defer ticker.Stop()

	slog.Info("service.SessionJanitor: started", "interval", j.cfg.Interval, "retention", j.cfg.Retention)

	for {
		select {
		case <-ctx.Done():
			slog.Info("service.SessionJanitor: shutdown complete")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single purge pass.
func (j *SessionJanitor) RunOnce(ctx context.Context) {
	n, err := j.svc.PurgeExpired(ctx, j.cfg.Retention)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("service.SessionJanitor: purge failed", "error", err)
		}
		return
	}
	if n > 0 {
		slog.Info("service.SessionJanitor: purged sessions", "count", n)
	}
}
