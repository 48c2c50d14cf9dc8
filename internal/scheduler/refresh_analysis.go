package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/history"
	"github.com/aristath/riskmap/internal/modules/snapshots"
)

// ErrRefreshInProgress is returned when a refresh is requested while one is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// RefreshOutcome describes one completed refresh.
type RefreshOutcome struct {
	Run      *snapshots.Run
	Sync     *history.SyncReport
	Result   *domain.AnalysisResult
	Duration time.Duration
}

// RefreshAnalysisJob syncs price history, runs the analysis, publishes the
// document and stores a snapshot. Runs never overlap.
type RefreshAnalysisJob struct {
	mu        sync.Mutex
	syncer    HistorySyncer
	analyzer  Analyzer
	publisher ResultPublisher
	store     SnapshotStore
	timeout   time.Duration
	log       zerolog.Logger
}

// NewRefreshAnalysisJob creates the refresh job. Store may be nil.
func NewRefreshAnalysisJob(syncer HistorySyncer, analyzer Analyzer, publisher ResultPublisher, store SnapshotStore, log zerolog.Logger) *RefreshAnalysisJob {
	return &RefreshAnalysisJob{
		syncer:    syncer,
		analyzer:  analyzer,
		publisher: publisher,
		store:     store,
		timeout:   30 * time.Minute,
		log:       log.With().Str("job", "refresh_analysis").Logger(),
	}
}

// Name returns the job name
func (j *RefreshAnalysisJob) Name() string {
	return "refresh_analysis"
}

// Run executes a refresh with the job's own timeout.
func (j *RefreshAnalysisJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.Refresh(ctx)
	return err
}

// Refresh performs one full refresh. Per-symbol download failures are logged
// and the analysis runs on whatever history is stored.
func (j *RefreshAnalysisJob) Refresh(ctx context.Context) (*RefreshOutcome, error) {
	if !j.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer j.mu.Unlock()

	start := time.Now()
	symbols := j.analyzer.Universe().Symbols()

	report, err := j.syncer.Sync(ctx, symbols)
	if err != nil {
		return nil, fmt.Errorf("sync history: %w", err)
	}
	if len(report.Failed) > 0 {
		j.log.Warn().Int("failed", len(report.Failed)).Msg("Some symbols failed to sync, using stored history")
	}

	raw, err := j.syncer.RawTable(symbols)
	if err != nil {
		return nil, fmt.Errorf("build raw table: %w", err)
	}

	result, err := j.analyzer.Run(raw)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	if err := j.publisher.Publish(ctx, result); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}

	outcome := &RefreshOutcome{Sync: report, Result: result}
	if j.store != nil {
		run, err := j.store.Save(result)
		if err != nil {
			return nil, fmt.Errorf("store snapshot: %w", err)
		}
		outcome.Run = run
	}
	outcome.Duration = time.Since(start)

	j.log.Info().
		Dur("duration", outcome.Duration).
		Strs("periods", result.PeriodLabels()).
		Msg("Analysis refreshed")

	return outcome, nil
}
