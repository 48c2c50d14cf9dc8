package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/snapshots"
	"github.com/aristath/riskmap/internal/timeseries"
)

type stubSyncer struct {
	synced  []string
	syncErr error
	started chan struct{}
	block   chan struct{}
}

func (s *stubSyncer) Sync(ctx context.Context, symbols []string) (*history.SyncReport, error) {
	if s.block != nil {
		close(s.started)
		<-s.block
	}
	s.synced = symbols
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	return &history.SyncReport{Symbols: len(symbols), Failed: map[string]string{"QQQ": "timeout"}}, nil
}

func (s *stubSyncer) RawTable(symbols []string) (*timeseries.Table, error) {
	return timeseries.New(nil, symbols)
}

type stubAnalyzer struct {
	err error
}

func (a *stubAnalyzer) Universe() domain.Universe {
	return domain.Universe{
		ReportingCurrency: domain.CurrencyJPY,
		ReferenceRates:    map[domain.Currency]string{domain.CurrencyUSD: "JPY=X"},
		Assets: []domain.Asset{
			{ID: "Stk_JP", Symbol: "1348.T", Currency: domain.CurrencyJPY},
			{ID: "Stk_US", Symbol: "QQQ", Currency: domain.CurrencyUSD},
		},
	}
}

func (a *stubAnalyzer) Run(raw *timeseries.Table) (*domain.AnalysisResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	return &domain.AnalysisResult{
		GeneratedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		TickerOrder: raw.Columns(),
		Periods:     map[string]domain.PeriodResult{"1y": {}},
	}, nil
}

type stubPublisher struct {
	published *domain.AnalysisResult
}

func (p *stubPublisher) Publish(_ context.Context, r *domain.AnalysisResult) error {
	p.published = r
	return nil
}

type stubStore struct {
	saved int
}

func (s *stubStore) Save(r *domain.AnalysisResult) (*snapshots.Run, error) {
	s.saved++
	return &snapshots.Run{ID: "run-1", GeneratedAt: r.GeneratedAt, Periods: r.PeriodLabels()}, nil
}

func TestRefreshAnalysisJob_FullCycle(t *testing.T) {
	syncer := &stubSyncer{}
	pub := &stubPublisher{}
	store := &stubStore{}
	job := NewRefreshAnalysisJob(syncer, &stubAnalyzer{}, pub, store, zerolog.Nop())

	assert.Equal(t, "refresh_analysis", job.Name())

	outcome, err := job.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"1348.T", "QQQ", "JPY=X"}, syncer.synced)
	require.NotNil(t, pub.published)
	assert.Equal(t, []string{"1348.T", "QQQ", "JPY=X"}, pub.published.TickerOrder)
	assert.Equal(t, 1, store.saved)
	assert.Equal(t, "run-1", outcome.Run.ID)
	assert.Contains(t, outcome.Sync.Failed, "QQQ")
}

func TestRefreshAnalysisJob_NilStore(t *testing.T) {
	job := NewRefreshAnalysisJob(&stubSyncer{}, &stubAnalyzer{}, &stubPublisher{}, nil, zerolog.Nop())
	outcome, err := job.Refresh(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome.Run)
}

func TestRefreshAnalysisJob_StopsOnAnalysisError(t *testing.T) {
	pub := &stubPublisher{}
	job := NewRefreshAnalysisJob(&stubSyncer{}, &stubAnalyzer{err: domain.ErrMissingReferenceRate}, pub, nil, zerolog.Nop())

	err := job.Run()
	assert.ErrorIs(t, err, domain.ErrMissingReferenceRate)
	assert.Nil(t, pub.published)
}

func TestRefreshAnalysisJob_SyncAborted(t *testing.T) {
	job := NewRefreshAnalysisJob(&stubSyncer{syncErr: context.Canceled}, &stubAnalyzer{}, &stubPublisher{}, nil, zerolog.Nop())
	_, err := job.Refresh(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRefreshAnalysisJob_RejectsOverlap(t *testing.T) {
	syncer := &stubSyncer{started: make(chan struct{}), block: make(chan struct{})}
	job := NewRefreshAnalysisJob(syncer, &stubAnalyzer{}, &stubPublisher{}, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := job.Refresh(context.Background())
		done <- err
	}()

	<-syncer.started

	_, err := job.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(syncer.block)
	assert.NoError(t, <-done)
}
