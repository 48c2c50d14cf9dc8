// Package backfill synthesizes missing early history for assets whose real
// series starts later than the analysis needs.
//
// The proxy is a fixed-rate discount model: walking backward from the first
// real observation, the anchor value is discounted at AnnualRate compounded on
// an actual/365 day count. It approximates the class-level yield of a
// long-duration asset (e.g. a domestic government bond index) over a span the
// listed product did not yet exist.
package backfill

import (
	"fmt"
	"math"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
)

// DefaultLookbackYears is used when a target leaves LookbackYears unset.
const DefaultLookbackYears = 20

// Target names one asset to extend and its model parameters.
type Target struct {
	AssetID       string
	AnnualRate    float64
	LookbackYears int
}

// TargetsFromUniverse collects every asset flagged for back-fill, in registry order.
func TargetsFromUniverse(u domain.Universe) []Target {
	var targets []Target
	for _, a := range u.Assets {
		if a.Backfill == nil {
			continue
		}
		targets = append(targets, Target{
			AssetID:       a.ID,
			AnnualRate:    a.Backfill.AnnualRate,
			LookbackYears: a.Backfill.LookbackYears,
		})
	}
	return targets
}

// Extender applies synthetic back-fill to a normalized price table.
type Extender struct {
	log zerolog.Logger
}

// NewExtender creates a new extender.
func NewExtender(log zerolog.Logger) *Extender {
	return &Extender{
		log: log.With().Str("component", "backfill").Logger(),
	}
}

// Extend returns a copy of table with every target's pre-history synthesized.
//
// For a target, rows in [latest - LookbackYears, firstObserved) are replaced by
// refValue / (1+AnnualRate)^(days/365), where days is the distance to the first
// real observation. Rows before the lookback start and rows from the first
// observation on are left as they are.
//
// A target column with no real observation fails with ErrInsufficientHistory.
func (e *Extender) Extend(table *timeseries.Table, targets []Target) (*timeseries.Table, error) {
	if len(targets) == 0 {
		return table, nil
	}
	if table.Len() == 0 {
		return nil, domain.ErrEmptyTable
	}

	out := table.Clone()
	latest := out.Date(out.Len() - 1)

	for _, target := range targets {
		if target.AnnualRate <= -1 {
			return nil, fmt.Errorf("asset %s: annual rate %.4f must be greater than -1", target.AssetID, target.AnnualRate)
		}
		if !out.HasColumn(target.AssetID) {
			return nil, fmt.Errorf("%w: back-fill target %s", domain.ErrUnknownAsset, target.AssetID)
		}

		first, ok := out.FirstObserved(target.AssetID)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no observed price", domain.ErrInsufficientHistory, target.AssetID)
		}

		years := target.LookbackYears
		if years <= 0 {
			years = DefaultLookbackYears
		}
		windowStart := latest.AddDate(-years, 0, 0)
		anchorDate := out.Date(first)
		refValue := out.At(target.AssetID, first)

		synthesized := 0
		for i := 0; i < first; i++ {
			d := out.Date(i)
			if d.Before(windowStart) {
				continue
			}
			days := anchorDate.Sub(d).Hours() / 24
			value := refValue / math.Pow(1+target.AnnualRate, days/365)
			if err := out.Set(target.AssetID, i, value); err != nil {
				return nil, err
			}
			synthesized++
		}

		e.log.Info().
			Str("asset", target.AssetID).
			Time("first_observed", anchorDate).
			Time("window_start", windowStart).
			Float64("ref_value", refValue).
			Float64("annual_rate", target.AnnualRate).
			Int("synthesized_rows", synthesized).
			Msg("Extended history with synthetic back-fill")
	}

	return out, nil
}
