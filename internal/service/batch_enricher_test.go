package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/domain"
	"scoreparse/internal/port"
	"scoreparse/internal/service"
	"scoreparse/mocks"
)

func namedRecords(n int) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, n)
	for i := range out {
		out[i] = domain.NewRecord(fmt.Sprintf("student-%d", i), []domain.Item{domain.NewItem("Q1", 1, "Q1")}, nil)
	}
	return out
}

func enrichedFor(rec domain.NormalizedRecord, in, out int) *domain.EnrichedRecord {
	return &domain.EnrichedRecord{
		NormalizedRecord: rec,
		Analysis:         "analysis for " + rec.EntityName,
		Usage:            domain.Usage{InputTokens: in, OutputTokens: out},
	}
}

func TestBatchEnricher_IsolatesFailures(t *testing.T) {
	records := namedRecords(5)
	enricher := new(mocks.MockEnricher)
	for i, rec := range records {
		if i == 2 {
			enricher.On("Enrich", mock.Anything, rec).Return(nil, errors.New("provider timeout"))
			continue
		}
		enricher.On("Enrich", mock.Anything, rec).Return(enrichedFor(rec, 100+i, 10+i), nil)
	}

	results, usage := service.NewBatchEnricher(enricher, 50).Enrich(context.Background(), records, service.EnrichOptions{MaxConcurrency: 2})

	require.Len(t, results, 5)
	for i, r := range results {
		assert.Equal(t, records[i].EntityName, r.EntityName)
	}
	failed := results[2]
	assert.True(t, failed.Failed)
	assert.Equal(t, "analysis failed: provider timeout", failed.Analysis)
	assert.Equal(t, domain.Usage{}, failed.Usage)
	assert.Equal(t, domain.Usage{InputTokens: 100 + 101 + 103 + 104, OutputTokens: 10 + 11 + 13 + 14}, usage)
	enricher.AssertExpectations(t)
}

type panickyEnricher struct {
	panicOn string
}

func (p *panickyEnricher) Enrich(_ context.Context, rec domain.NormalizedRecord) (*domain.EnrichedRecord, error) {
	if rec.EntityName == p.panicOn {
		panic("unexpected state")
	}
	return enrichedFor(rec, 5, 1), nil
}

func TestBatchEnricher_DropsPanickedTasks(t *testing.T) {
	records := namedRecords(4)

	results, usage := service.NewBatchEnricher(&panickyEnricher{panicOn: "student-1"}, 2).
		Enrich(context.Background(), records, service.EnrichOptions{})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotEqual(t, "student-1", r.EntityName)
		assert.False(t, r.Failed)
	}
	assert.Equal(t, domain.Usage{InputTokens: 15, OutputTokens: 3}, usage)
}

type gaugeEnricher struct {
	mu       sync.Mutex
	inFlight int
	peak     int
	calls    int32
}

func (g *gaugeEnricher) Enrich(_ context.Context, rec domain.NormalizedRecord) (*domain.EnrichedRecord, error) {
	atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.inFlight++
	if g.inFlight > g.peak {
		g.peak = g.inFlight
	}
	g.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	g.mu.Lock()
	g.inFlight--
	g.mu.Unlock()
	return enrichedFor(rec, 1, 1), nil
}

func TestBatchEnricher_BoundsConcurrency(t *testing.T) {
	for _, n := range []int{5, 200} {
		g := &gaugeEnricher{}

		results, usage := service.NewBatchEnricher(g, 50).Enrich(context.Background(), namedRecords(n), service.EnrichOptions{MaxConcurrency: 3})

		assert.Len(t, results, n)
		assert.Equal(t, domain.Usage{InputTokens: n, OutputTokens: n}, usage)
		assert.LessOrEqual(t, g.peak, 3)
		assert.Equal(t, int32(n), atomic.LoadInt32(&g.calls))
	}
}

func TestBatchEnricher_CancelledStopsLaunching(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := &gaugeEnricher{}

	results, usage := service.NewBatchEnricher(g, 2).Enrich(ctx, namedRecords(3), service.EnrichOptions{})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.Failed)
		assert.Contains(t, r.Analysis, "analysis skipped")
	}
	assert.Equal(t, domain.Usage{}, usage)
	assert.Equal(t, int32(0), atomic.LoadInt32(&g.calls))
}

func TestBatchEnricher_Empty(t *testing.T) {
	results, usage := service.NewBatchEnricher(&gaugeEnricher{}, 0).Enrich(context.Background(), nil, service.EnrichOptions{})

	assert.Empty(t, results)
	assert.Equal(t, domain.Usage{}, usage)
}

type styledGauge struct {
	gaugeEnricher
	example string
}

func (s *styledGauge) WithExample(example string) port.RecordEnricher {
	return &styledGauge{example: example}
}

func (s *styledGauge) Enrich(ctx context.Context, rec domain.NormalizedRecord) (*domain.EnrichedRecord, error) {
	out, err := s.gaugeEnricher.Enrich(ctx, rec)
	if err == nil {
		out.Analysis = s.example
	}
	return out, err
}

func TestBatchEnricher_AppliesExamplePerBatch(t *testing.T) {
	base := &styledGauge{}
	b := service.NewBatchEnricher(base, 2)

	styled, _ := b.Enrich(context.Background(), namedRecords(2), service.EnrichOptions{Example: "  Keep it short.  "})
	plain, _ := b.Enrich(context.Background(), namedRecords(1), service.EnrichOptions{})

	require.Len(t, styled, 2)
	assert.Equal(t, "Keep it short.", styled[0].Analysis)
	assert.Equal(t, "Keep it short.", styled[1].Analysis)
	require.Len(t, plain, 1)
	assert.Empty(t, plain[0].Analysis)
	assert.Empty(t, base.example)
}

func TestBatchEnricher_ExampleIgnoredByPlainEnricher(t *testing.T) {
	g := &gaugeEnricher{}

	results, _ := service.NewBatchEnricher(g, 2).Enrich(context.Background(), namedRecords(2), service.EnrichOptions{Example: "unused"})

	require.Len(t, results, 2)
	assert.Equal(t, "analysis for student-0", results[0].Analysis)
}
