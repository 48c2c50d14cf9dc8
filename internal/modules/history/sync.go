package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/aristath/riskmap/internal/utils"
)

// PriceProvider downloads daily closes for one symbol.
type PriceProvider interface {
	DailyCloses(ctx context.Context, symbol string, from, to time.Time) ([]timeseries.Point, error)
}

// SyncService keeps history.db current and builds the raw price table.
type SyncService struct {
	repo        *Repository
	provider    PriceProvider
	start       time.Time
	concurrency int
	now         func() time.Time
	log         zerolog.Logger
}

// SyncReport summarizes one Sync call.
type SyncReport struct {
	Symbols  int               `json:"symbols"`
	Updated  int               `json:"updated"`
	UpToDate int               `json:"up_to_date"`
	Points   int               `json:"points"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// NewSyncService creates a sync service. Symbols with no stored history are
// downloaded from start; concurrency bounds parallel downloads.
func NewSyncService(repo *Repository, provider PriceProvider, start time.Time, concurrency int, log zerolog.Logger) *SyncService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncService{
		repo:        repo,
		provider:    provider,
		start:       timeseries.Day(start),
		concurrency: concurrency,
		now:         time.Now,
		log:         log.With().Str("component", "history_sync").Logger(),
	}
}

// SetClock overrides the time source (used by tests).
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// Sync downloads missing closes for every symbol. A failure for one symbol is
// recorded in the report and does not stop the others; only a cancelled
// context aborts the whole sync.
func (s *SyncService) Sync(ctx context.Context, symbols []string) (*SyncReport, error) {
	defer utils.OperationTimer("history_sync", s.log)()

	report := &SyncReport{Symbols: len(symbols), Failed: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := s.syncSymbol(gctx, symbol)
			if recErr := s.repo.RecordSync(symbol, s.now(), err); recErr != nil {
				s.log.Warn().Err(recErr).Str("symbol", symbol).Msg("Failed to record sync state")
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed[symbol] = err.Error()
				s.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol sync failed")
			case n == 0:
				report.UpToDate++
			default:
				report.Updated++
				report.Points += n
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("history sync aborted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("history sync aborted: %w", err)
	}

	s.log.Info().
		Int("symbols", report.Symbols).
		Int("updated", report.Updated).
		Int("up_to_date", report.UpToDate).
		Int("points", report.Points).
		Int("failed", len(report.Failed)).
		Msg("History sync complete")

	return report, nil
}

func (s *SyncService) syncSymbol(ctx context.Context, symbol string) (int, error) {
	from := s.start
	last, ok, err := s.repo.LastDate(symbol)
	if err != nil {
		return 0, err
	}
	if ok {
		from = last.AddDate(0, 0, 1)
	}

	now := s.now()
	if from.After(now) {
		return 0, nil
	}

	points, err := s.provider.DailyCloses(ctx, symbol, from, now)
	if err != nil {
		return 0, err
	}

	// Providers may return the bar for the last stored day again.
	fresh := points[:0:0]
	for _, p := range points {
		if !p.Date.Before(from) {
			fresh = append(fresh, p)
		}
	}

	return s.repo.Upsert(symbol, fresh)
}

// RawTable builds the raw close table for symbols: one column per symbol in
// the given order, rows on the union of trading days, NaN where a symbol did
// not trade. Symbols with nothing stored become all-missing columns.
func (s *SyncService) RawTable(symbols []string) (*timeseries.Table, error) {
	defer utils.OperationTimer("history_raw_table", s.log)()

	series := make(map[string][]timeseries.Point, len(symbols))
	for _, symbol := range symbols {
		points, err := s.repo.Closes(symbol)
		if err != nil {
			return nil, err
		}
		if len(points) == 0 {
			s.log.Warn().Str("symbol", symbol).Msg("No stored history")
		}
		series[symbol] = points
	}

	table, err := timeseries.FromSeries(symbols, series)
	if err != nil {
		return nil, fmt.Errorf("failed to align raw closes: %w", err)
	}

	s.log.Debug().Int("rows", table.Len()).Int("columns", len(symbols)).Msg("Built raw price table")
	return table, nil
}
