// Package statistics selects look-back windows from a monthly price table and
// estimates annualized return, risk and covariance over them.
package statistics

import (
	"fmt"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
)

// MinSurvivors is the smallest universe a window may produce a result for.
const MinSurvivors = 2

// Window is the trailing slice of the monthly table for one horizon.
type Window struct {
	Years   int
	Table   *timeseries.Table
	Dropped []string
}

// WindowSelector cuts horizons out of a monthly table.
type WindowSelector struct {
	fill timeseries.Policy
	drop timeseries.Policy
	log  zerolog.Logger
}

// NewWindowSelector creates a selector with the fill-then-drop policy:
// forward-fill, back-fill, then drop any asset still missing a value
// (or holding a non-positive price).
func NewWindowSelector(log zerolog.Logger) *WindowSelector {
	return &WindowSelector{
		fill: timeseries.FillGaps,
		drop: timeseries.Chain(timeseries.DropIncomplete, timeseries.DropNonPositive),
		log:  log.With().Str("component", "window_selector").Logger(),
	}
}

// Select returns the trailing years*periodsPerYear rows of monthly (fewer if
// the table is shorter) after gap filling and dropping incomplete assets.
//
// When fewer than MinSurvivors assets remain, the window is still returned
// together with an error wrapping ErrInsufficientUniverse.
func (s *WindowSelector) Select(monthly *timeseries.Table, years, periodsPerYear int) (*Window, error) {
	if years <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", years)
	}
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("periods per year must be positive, got %d", periodsPerYear)
	}

	tail := monthly.Tail(years * periodsPerYear)
	filled := s.fill(tail)
	kept := s.drop(filled)

	w := &Window{
		Years:   years,
		Table:   kept,
		Dropped: timeseries.Dropped(tail, kept),
	}

	if len(w.Dropped) > 0 {
		s.log.Debug().
			Int("years", years).
			Strs("dropped", w.Dropped).
			Msg("Dropped assets with incomplete window")
	}

	if n := len(kept.Columns()); n < MinSurvivors {
		return w, fmt.Errorf("%w: %d survivor(s) for %s, need %d",
			domain.ErrInsufficientUniverse, n, domain.HorizonLabel(years), MinSurvivors)
	}
	return w, nil
}
