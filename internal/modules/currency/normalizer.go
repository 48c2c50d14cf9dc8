// Package currency converts local-currency price series into the reporting currency.
package currency

import (
	"fmt"
	"math"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
)

// Normalizer turns a symbol-keyed raw close table into an asset-keyed table
// expressed in the universe's reporting currency.
type Normalizer struct {
	fill timeseries.Policy
	log  zerolog.Logger
}

// NewNormalizer creates a normalizer that forward- then back-fills the raw
// table before conversion.
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{
		fill: timeseries.FillGaps,
		log:  log.With().Str("component", "currency_normalizer").Logger(),
	}
}

// Normalize converts raw (one column per provider symbol, including the
// reference rate symbols) into one column per asset id in registry order.
//
// Conversion happens after gap filling: price(t) * rate(t). Assets already in
// the reporting currency are copied unchanged. The observation mask of every
// output column is the raw mask of the asset's own symbol, so filled cells are
// never reported as real observations downstream.
func (n *Normalizer) Normalize(raw *timeseries.Table, universe domain.Universe) (*timeseries.Table, error) {
	if raw.Len() == 0 {
		return nil, domain.ErrEmptyTable
	}

	rateSymbols := make(map[domain.Currency]string)
	for _, cur := range universe.ForeignCurrencies() {
		sym, ok := universe.ReferenceRates[cur]
		if !ok || sym == "" {
			return nil, fmt.Errorf("%w: no reference symbol configured for %s", domain.ErrMissingReferenceRate, cur)
		}
		if _, observed := raw.FirstObserved(sym); !observed {
			return nil, fmt.Errorf("%w: %s (%s->%s) absent from raw table",
				domain.ErrMissingReferenceRate, sym, cur, universe.ReportingCurrency)
		}
		rateSymbols[cur] = sym
	}

	filled := n.fill(raw)

	out, err := timeseries.New(raw.Dates(), nil)
	if err != nil {
		return nil, err
	}

	converted := 0
	for _, asset := range universe.Assets {
		local, ok := filled.Column(asset.Symbol)
		if !ok {
			n.log.Warn().
				Str("asset", asset.ID).
				Str("symbol", asset.Symbol).
				Msg("Symbol absent from raw table, column left empty")
			if err := out.SetColumnObserved(asset.ID, nanSlice(raw.Len()), make([]bool, raw.Len())); err != nil {
				return nil, err
			}
			continue
		}
		observed, _ := raw.Observed(asset.Symbol)

		if asset.Currency != universe.ReportingCurrency {
			rate, _ := filled.Column(rateSymbols[asset.Currency])
			for i := range local {
				local[i] *= rate[i]
			}
			converted++
		}

		if err := out.SetColumnObserved(asset.ID, local, observed); err != nil {
			return nil, fmt.Errorf("failed to set column %s: %w", asset.ID, err)
		}
	}

	n.log.Debug().
		Int("rows", out.Len()).
		Int("assets", len(universe.Assets)).
		Int("converted", converted).
		Str("reporting_currency", string(universe.ReportingCurrency)).
		Msg("Normalized prices to reporting currency")

	return out, nil
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
