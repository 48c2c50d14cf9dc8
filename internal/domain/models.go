// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"sort"
	"time"
)

// Currency represents an ISO currency code
type Currency string

const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// BackfillSpec flags an asset for synthetic history extension.
// The anchor value is discounted backward at AnnualRate (actual/365 compounding)
// over the trailing LookbackYears of the table.
type BackfillSpec struct {
	AnnualRate    float64 `json:"annual_rate" yaml:"annual_rate" validate:"gt=-1"`
	LookbackYears int     `json:"lookback_years" yaml:"lookback_years" validate:"gte=0"`
}

// Asset is one member of the analysed universe.
type Asset struct {
	ID       string        `json:"id" yaml:"id" validate:"required"`
	Symbol   string        `json:"symbol" yaml:"symbol" validate:"required"`
	Currency Currency      `json:"currency" yaml:"currency" validate:"required,len=3"`
	Backfill *BackfillSpec `json:"backfill,omitempty" yaml:"backfill,omitempty"`
}

// Universe is the ordered asset registry. The order of Assets is the canonical
// output order and is preserved by every stage of the pipeline.
type Universe struct {
	ReportingCurrency Currency
	// ReferenceRates maps a foreign currency to the provider symbol quoting
	// it in the reporting currency (e.g. USD -> "JPY=X" for a JPY report).
	ReferenceRates map[Currency]string
	Assets         []Asset
}

// IDs returns asset ids in registry order.
func (u Universe) IDs() []string {
	ids := make([]string, len(u.Assets))
	for i, a := range u.Assets {
		ids[i] = a.ID
	}
	return ids
}

// Asset looks up an asset by id.
func (u Universe) Asset(id string) (Asset, bool) {
	for _, a := range u.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// ForeignCurrencies returns the distinct non-reporting currencies used by the
// universe, in first-seen registry order.
func (u Universe) ForeignCurrencies() []Currency {
	seen := make(map[Currency]bool)
	var out []Currency
	for _, a := range u.Assets {
		if a.Currency == u.ReportingCurrency || seen[a.Currency] {
			continue
		}
		seen[a.Currency] = true
		out = append(out, a.Currency)
	}
	return out
}

// Symbols returns every provider symbol the pipeline needs: asset symbols in
// registry order followed by the reference rate symbols actually in use.
func (u Universe) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, a := range u.Assets {
		add(a.Symbol)
	}
	for _, c := range u.ForeignCurrencies() {
		add(u.ReferenceRates[c])
	}
	return out
}

// AssetStatistic holds the annualized return and risk of one surviving asset.
type AssetStatistic struct {
	Name   string  `json:"name"`
	Return float64 `json:"return"`
	Risk   float64 `json:"risk"`
}

// CovarianceMatrix is square and symmetric, ordered like the period's assets.
type CovarianceMatrix [][]float64

// PeriodResult is the statistics for one look-back horizon.
type PeriodResult struct {
	Assets           []AssetStatistic `json:"assets"`
	CovarianceMatrix CovarianceMatrix `json:"covarianceMatrix"`
}

// AnalysisResult is the document handed to the visualization layer.
type AnalysisResult struct {
	GeneratedAt time.Time               `json:"generatedAt"`
	TickerOrder []string                `json:"tickerOrder"`
	Periods     map[string]PeriodResult `json:"periods"`
}

// HorizonLabel formats a horizon in years as its periods key ("5y").
func HorizonLabel(years int) string {
	return fmt.Sprintf("%dy", years)
}

// PeriodLabels lists the result's horizon keys, shortest horizon first.
func (r AnalysisResult) PeriodLabels() []string {
	labels := make([]string, 0, len(r.Periods))
	for label := range r.Periods {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		yi, yj := labelYears(labels[i]), labelYears(labels[j])
		if yi != yj {
			return yi < yj
		}
		return labels[i] < labels[j]
	})
	return labels
}

func labelYears(label string) int {
	var years int
	if _, err := fmt.Sscanf(label, "%dy", &years); err != nil {
		return 0
	}
	return years
}
