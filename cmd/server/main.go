package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scoreparse/internal/auth"
	"scoreparse/internal/config"
	"scoreparse/internal/handler"
	"scoreparse/internal/logging"
	"scoreparse/internal/mapping"
	"scoreparse/internal/reasoning"
	"scoreparse/internal/repository/sqlstore"
	"scoreparse/internal/router"
	"scoreparse/internal/service"
	s3storage "scoreparse/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log)

	db, err := sqlstore.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to session store: %w", err)
	}
	defer db.Close()
	if cfg.DB.Driver == sqlstore.DriverSQLite {
		if err := sqlstore.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate session store: %w", err)
		}
	}

	// Initialize repositories and storage
	sessionRepo := sqlstore.NewParseSessionRepo(db)
	blobs, err := s3storage.NewBlobStore(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Reasoning provider
	client, err := reasoning.NewClient(&cfg.Reasoning)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning client: %w", err)
	}
	inferrer := mapping.NewInferrer(client, &cfg.Reasoning)
	analyzer := service.NewRecordAnalyzer(client, &cfg.Enrich, cfg.Reasoning.FallbackModel)

	// Initialize services
	enricher := service.NewBatchEnricher(analyzer, cfg.Enrich.MaxConcurrency)
	parseSvc := service.NewParseService(sessionRepo, blobs, inferrer, enricher, cfg.Session.TTL)

	validator, err := auth.NewTokenValidator(&cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token validator: %w", err)
	}

	// Initialize handlers
	parseH := handler.NewParseHandler(parseSvc, cfg.S3.MaxFileSizeMB<<20)
	recordsH := handler.NewRecordsHandler(enricher)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(validator, cfg.CORS.AllowedOrigins, parseH, recordsH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := service.NewSessionJanitor(parseSvc, service.SessionJanitorConfig{
		Interval:  cfg.Session.PurgeInterval,
		Retention: cfg.Session.Retention,
	})
	go janitor.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
