// Package analysis runs the price-normalization and multi-horizon estimation
// pipeline and assembles the document consumed by the visualization layer.
package analysis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/backfill"
	"github.com/aristath/riskmap/internal/modules/currency"
	"github.com/aristath/riskmap/internal/modules/resample"
	"github.com/aristath/riskmap/internal/modules/statistics"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
)

// Default analysis parameters.
const (
	DefaultPeriodsPerYear = 12
)

// DefaultHorizons are the look-back windows analysed when none are configured.
var DefaultHorizons = []int{1, 3, 5, 10, 20}

// Config holds the estimation parameters.
type Config struct {
	Horizons       []int
	PeriodsPerYear int
	ReturnMethod   statistics.ReturnMethod
	// Parallel runs horizons concurrently. Results are identical either way.
	Parallel bool
}

// Service runs the full pipeline for one universe.
type Service struct {
	universe   domain.Universe
	cfg        Config
	targets    []backfill.Target
	normalizer *currency.Normalizer
	extender   *backfill.Extender
	selector   *statistics.WindowSelector
	estimator  *statistics.Estimator
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new analysis service.
func NewService(universe domain.Universe, cfg Config, log zerolog.Logger) *Service {
	if len(cfg.Horizons) == 0 {
		cfg.Horizons = DefaultHorizons
	}
	if cfg.PeriodsPerYear <= 0 {
		cfg.PeriodsPerYear = DefaultPeriodsPerYear
	}
	return &Service{
		universe:   universe,
		cfg:        cfg,
		targets:    backfill.TargetsFromUniverse(universe),
		normalizer: currency.NewNormalizer(log),
		extender:   backfill.NewExtender(log),
		selector:   statistics.NewWindowSelector(log),
		estimator:  statistics.NewEstimator(cfg.ReturnMethod, cfg.PeriodsPerYear),
		now:        time.Now,
		log:        log.With().Str("component", "analysis").Logger(),
	}
}

// SetClock overrides the timestamp source for GeneratedAt.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Universe returns the analysed universe.
func (s *Service) Universe() domain.Universe {
	return s.universe
}

// Run converts a raw close table (one column per provider symbol) into the
// per-horizon statistics document.
//
// Missing or empty reference rates and back-fill targets without any
// observation abort the run. A horizon with too few surviving assets or
// observations is logged and left out of the result.
func (s *Service) Run(raw *timeseries.Table) (*domain.AnalysisResult, error) {
	started := s.now()

	normalized, err := s.normalizer.Normalize(raw, s.universe)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize prices: %w", err)
	}

	extended, err := s.extender.Extend(normalized, s.targets)
	if err != nil {
		return nil, fmt.Errorf("failed to extend history: %w", err)
	}

	monthly, err := resample.Monthly(extended)
	if err != nil {
		return nil, fmt.Errorf("failed to resample: %w", err)
	}

	s.log.Info().
		Int("daily_rows", extended.Len()).
		Int("monthly_rows", monthly.Len()).
		Int("assets", len(s.universe.Assets)).
		Msg("Prepared monthly price table")

	estimates, err := s.estimateHorizons(monthly)
	if err != nil {
		return nil, err
	}

	result := Assemble(s.now().UTC(), s.universe.IDs(), s.cfg.Horizons, estimates)

	s.log.Info().
		Int("periods", len(result.Periods)).
		Int("horizons", len(s.cfg.Horizons)).
		Dur("elapsed", s.now().Sub(started)).
		Msg("Analysis complete")

	return result, nil
}

// estimateHorizons evaluates every horizon against the shared monthly table.
// Each horizon writes only its own slot.
func (s *Service) estimateHorizons(monthly *timeseries.Table) (map[int]*statistics.Estimate, error) {
	var (
		mu        sync.Mutex
		estimates = make(map[int]*statistics.Estimate, len(s.cfg.Horizons))
	)

	run := func(years int) error {
		est, err := s.estimateHorizon(monthly, years)
		if err != nil {
			if isSkippable(err) {
				s.log.Warn().
					Str("period", domain.HorizonLabel(years)).
					Err(err).
					Msg("Skipping horizon")
				return nil
			}
			return fmt.Errorf("horizon %s: %w", domain.HorizonLabel(years), err)
		}
		mu.Lock()
		estimates[years] = est
		mu.Unlock()

		s.log.Info().
			Str("period", domain.HorizonLabel(years)).
			Int("assets", len(est.Assets)).
			Msg("Horizon complete")
		return nil
	}

	if !s.cfg.Parallel {
		for _, years := range s.cfg.Horizons {
			if err := run(years); err != nil {
				return nil, err
			}
		}
		return estimates, nil
	}

	var g errgroup.Group
	for _, years := range s.cfg.Horizons {
		years := years
		g.Go(func() error { return run(years) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return estimates, nil
}

func (s *Service) estimateHorizon(monthly *timeseries.Table, years int) (*statistics.Estimate, error) {
	window, err := s.selector.Select(monthly, years, s.cfg.PeriodsPerYear)
	if err != nil {
		return nil, err
	}
	return s.estimator.Estimate(window.Table)
}

func isSkippable(err error) bool {
	return errors.Is(err, domain.ErrInsufficientUniverse) ||
		errors.Is(err, domain.ErrInsufficientObservations)
}
