package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"scoreparse/internal/domain"
	"scoreparse/internal/port"
)

// DefaultMaxConcurrency bounds in-flight enrichment calls when none is given.
const DefaultMaxConcurrency = 50

// EnrichOptions tunes a single batch.
type EnrichOptions struct {
	// MaxConcurrency caps in-flight calls; 0 selects the configured default.
	MaxConcurrency int
	// Example is an optional style reference, applied when the enricher
	// supports it.
	Example string
}

// BatchEnricher fans enrichment out over records under a concurrency cap.
type BatchEnricher interface {
	// Enrich runs one enrichment per record. Results keep input order.
	// A record whose enrichment fails is kept, marked failed, with zero usage.
	// A record whose enrichment panics is dropped from results and usage.
	Enrich(ctx context.Context, records []domain.NormalizedRecord, opts EnrichOptions) ([]domain.EnrichedRecord, domain.Usage)
}

type batchEnricher struct {
	enricher       port.RecordEnricher
	maxConcurrency int
}

// NewBatchEnricher creates a BatchEnricher around a single-record enricher.
func NewBatchEnricher(enricher port.RecordEnricher, maxConcurrency int) BatchEnricher {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &batchEnricher{enricher: enricher, maxConcurrency: maxConcurrency}
}

type enrichOutcome struct {
	record domain.EnrichedRecord
	done   bool
}

func (b *batchEnricher) Enrich(ctx context.Context, records []domain.NormalizedRecord, opts EnrichOptions) ([]domain.EnrichedRecord, domain.Usage) {
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = b.maxConcurrency
	}
	enricher := b.enricher
	if example := strings.TrimSpace(opts.Example); example != "" {
		if styled, ok := enricher.(port.StyledEnricher); ok {
			enricher = styled.WithExample(example)
		} else {
			slog.Warn("service.BatchEnricher.Enrich: enricher ignores style examples")
		}
	}
	sem := semaphore.NewWeighted(int64(maxConcurrency))
	outcomes := make([]enrichOutcome, len(records))

	var wg sync.WaitGroup
	for i := range records {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Stop launching; records not yet started are reported as skipped.
			for j := i; j < len(records); j++ {
				outcomes[j] = enrichOutcome{record: failedRecord(records[j], "analysis skipped", err), done: true}
			}
			slog.Warn("service.BatchEnricher.Enrich: cancelled, remaining records skipped",
				"skipped", len(records)-i, "error", err)
			break
		}

		wg.Add(1)
		go func(i int, rec domain.NormalizedRecord) {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					slog.Error("service.BatchEnricher.Enrich: enrichment panicked, record dropped",
						"entity", rec.EntityName, "panic", r)
				}
			}()

			out, err := enricher.Enrich(ctx, rec)
			if err == nil && out == nil {
				err = errors.New("enricher returned no result")
			}
			if err != nil {
				slog.Warn("service.BatchEnricher.Enrich: enrichment failed", "entity", rec.EntityName, "error", err)
				outcomes[i] = enrichOutcome{record: failedRecord(rec, "analysis failed", err), done: true}
				return
			}
			out.NormalizedRecord = rec
			outcomes[i] = enrichOutcome{record: *out, done: true}
		}(i, records[i])
	}
	wg.Wait()

	results := make([]domain.EnrichedRecord, 0, len(records))
	var usage domain.Usage
	for _, o := range outcomes {
		if !o.done {
			continue
		}
		results = append(results, o.record)
		usage = usage.Add(o.record.Usage)
	}
	return results, usage
}

func failedRecord(rec domain.NormalizedRecord, prefix string, err error) domain.EnrichedRecord {
	return domain.EnrichedRecord{
		NormalizedRecord: rec,
		Analysis:         fmt.Sprintf("%s: %v", prefix, err),
		Suggestions:      []string{},
		DeductionSummary: DeductionSummary(rec.Items),
		Failed:           true,
	}
}
