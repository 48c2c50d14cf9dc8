package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/modules/statistics"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

// weekdays returns every weekday from start for the given number of months.
func weekdays(start time.Time, months int) []time.Time {
	end := start.AddDate(0, months, 0)
	var out []time.Time
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func series(dates []time.Time, from int, f func(i int) float64) []timeseries.Point {
	var pts []timeseries.Point
	for i, d := range dates {
		if i < from {
			continue
		}
		pts = append(pts, timeseries.Point{Date: d, Value: f(i)})
	}
	return pts
}

func newTestService(u domain.Universe, cfg Config) *Service {
	svc := NewService(u, cfg, zerolog.Nop())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func jpyUniverse(assets ...domain.Asset) domain.Universe {
	return domain.Universe{
		ReportingCurrency: domain.CurrencyJPY,
		ReferenceRates:    map[domain.Currency]string{domain.CurrencyUSD: "JPY=X"},
		Assets:            assets,
	}
}

func TestRun_ConstantForeignSeriesExample(t *testing.T) {
	dates := weekdays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 24)
	raw, err := timeseries.FromSeries([]string{"AAA", "BBB", "JPY=X"}, map[string][]timeseries.Point{
		"AAA":   series(dates, 0, func(i int) float64 { return 1000 * (1 + 0.02*math.Sin(float64(i)/7)) }),
		"BBB":   series(dates, 0, func(int) float64 { return 10 }),
		"JPY=X": series(dates, 0, func(int) float64 { return 150 }),
	})
	require.NoError(t, err)

	u := jpyUniverse(
		domain.Asset{ID: "A", Symbol: "AAA", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "B", Symbol: "BBB", Currency: domain.CurrencyUSD},
	)
	res, err := newTestService(u, Config{Horizons: []int{1}}).Run(raw)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, res.GeneratedAt)
	assert.Equal(t, []string{"A", "B"}, res.TickerOrder)
	require.Contains(t, res.Periods, "1y")

	p := res.Periods["1y"]
	require.Len(t, p.Assets, 2)
	assert.Equal(t, "A", p.Assets[0].Name)
	assert.Equal(t, "B", p.Assets[1].Name)
	assert.Equal(t, 0.0, p.Assets[1].Risk)
	assert.Equal(t, 0.0, p.Assets[1].Return)
	assert.Greater(t, p.Assets[0].Risk, 0.0)
	assert.InDelta(t, 0.0, p.CovarianceMatrix[0][1], 1e-15)
}

func TestRun_HorizonSkippedWithSingleSurvivor(t *testing.T) {
	dates := weekdays(time.Date(2004, 1, 1, 0, 0, 0, 0, time.UTC), 21*12)
	raw, err := timeseries.FromSeries([]string{"AAA", "CCC"}, map[string][]timeseries.Point{
		"AAA": series(dates, 0, func(i int) float64 { return 100 + float64(i%50) }),
	})
	require.NoError(t, err)

	u := jpyUniverse(
		domain.Asset{ID: "A", Symbol: "AAA", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "C", Symbol: "CCC", Currency: domain.CurrencyJPY},
	)
	res, err := newTestService(u, Config{Horizons: []int{1, 20}}).Run(raw)
	require.NoError(t, err)

	assert.NotContains(t, res.Periods, "20y")
	assert.NotContains(t, res.Periods, "1y")
	assert.Equal(t, []string{"A", "C"}, res.TickerOrder)
}

func TestRun_InvariantsAndRegistryOrder(t *testing.T) {
	dates := weekdays(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), 72)
	raw, err := timeseries.FromSeries([]string{"SPY", "1348.T", "QQQ", "JPY=X"}, map[string][]timeseries.Point{
		"SPY":    series(dates, 0, func(i int) float64 { return 300 * (1 + 0.1*math.Sin(float64(i)/40)) * (1 + float64(i)/5000) }),
		"1348.T": series(dates, 0, func(i int) float64 { return 2000 * (1 + 0.05*math.Cos(float64(i)/25)) }),
		"QQQ":    series(dates, 400, func(i int) float64 { return 250 * (1 + 0.15*math.Sin(float64(i)/30+1)) }),
		"JPY=X":  series(dates, 0, func(i int) float64 { return 110 + 30*float64(i)/float64(len(dates)) }),
	})
	require.NoError(t, err)

	// registry order differs from raw column order
	u := jpyUniverse(
		domain.Asset{ID: "Stk_Nasdaq", Symbol: "QQQ", Currency: domain.CurrencyUSD},
		domain.Asset{ID: "Stk_JP_Topix", Symbol: "1348.T", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "Stk_SP500", Symbol: "SPY", Currency: domain.CurrencyUSD},
	)
	res, err := newTestService(u, Config{Horizons: []int{1, 3, 5}}).Run(raw)
	require.NoError(t, err)

	require.Len(t, res.Periods, 3)
	for label, p := range res.Periods {
		require.Len(t, p.Assets, 3, label)
		assert.Equal(t, "Stk_Nasdaq", p.Assets[0].Name)
		assert.Equal(t, "Stk_JP_Topix", p.Assets[1].Name)
		assert.Equal(t, "Stk_SP500", p.Assets[2].Name)

		require.Len(t, p.CovarianceMatrix, len(p.Assets))
		for i := range p.CovarianceMatrix {
			require.Len(t, p.CovarianceMatrix[i], len(p.Assets))
			assert.InEpsilon(t, p.Assets[i].Risk*p.Assets[i].Risk, p.CovarianceMatrix[i][i], 1e-9, label)
			for j := range p.CovarianceMatrix {
				assert.Equal(t, p.CovarianceMatrix[i][j], p.CovarianceMatrix[j][i])
			}
		}
	}
}

func TestRun_DeterministicAcrossModes(t *testing.T) {
	dates := weekdays(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), 120)
	raw, err := timeseries.FromSeries([]string{"X", "Y", "Z"}, map[string][]timeseries.Point{
		"X": series(dates, 0, func(i int) float64 { return 50 + 10*math.Sin(float64(i)/17) }),
		"Y": series(dates, 0, func(i int) float64 { return 80 + 5*math.Cos(float64(i)/11) }),
		"Z": series(dates, 0, func(i int) float64 { return 20 + float64(i%13) }),
	})
	require.NoError(t, err)

	u := jpyUniverse(
		domain.Asset{ID: "X", Symbol: "X", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "Y", Symbol: "Y", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "Z", Symbol: "Z", Currency: domain.CurrencyJPY},
	)

	encode := func(cfg Config) []byte {
		res, err := newTestService(u, cfg).Run(raw)
		require.NoError(t, err)
		b, err := json.Marshal(res)
		require.NoError(t, err)
		return b
	}

	seq := encode(Config{Horizons: DefaultHorizons, ReturnMethod: statistics.ReturnCompounded})
	par := encode(Config{Horizons: DefaultHorizons, ReturnMethod: statistics.ReturnCompounded, Parallel: true})
	again := encode(Config{Horizons: DefaultHorizons, ReturnMethod: statistics.ReturnCompounded})

	assert.Equal(t, seq, par)
	assert.Equal(t, seq, again)
}

func TestRun_BackfilledAssetReachesLongHorizon(t *testing.T) {
	dates := weekdays(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC), 25*12)
	firstObs := len(dates) - 5*261
	raw, err := timeseries.FromSeries([]string{"EQ", "BND"}, map[string][]timeseries.Point{
		"EQ":  series(dates, 0, func(i int) float64 { return 100 * (1 + 0.1*math.Sin(float64(i)/60)) }),
		"BND": series(dates, firstObs, func(i int) float64 { return 1000 + float64(i-firstObs)*0.05 }),
	})
	require.NoError(t, err)

	u := jpyUniverse(
		domain.Asset{ID: "Stk", Symbol: "EQ", Currency: domain.CurrencyJPY},
		domain.Asset{ID: "Bnd_JP", Symbol: "BND", Currency: domain.CurrencyJPY,
			Backfill: &domain.BackfillSpec{AnnualRate: 0.012, LookbackYears: 20}},
	)
	res, err := newTestService(u, Config{Horizons: []int{20}}).Run(raw)
	require.NoError(t, err)

	require.Contains(t, res.Periods, "20y")
	p := res.Periods["20y"]
	require.Len(t, p.Assets, 2)
	assert.Equal(t, "Bnd_JP", p.Assets[1].Name)
	// the synthetic segment grows at 1.2% a year and the real one slowly drifts up
	assert.Greater(t, p.Assets[1].Return, 0.0)
	assert.Less(t, p.Assets[1].Return, 0.05)
}

func TestRun_FatalErrors(t *testing.T) {
	dates := weekdays(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 3)

	t.Run("missing reference rate", func(t *testing.T) {
		raw, err := timeseries.FromSeries([]string{"SPY"}, map[string][]timeseries.Point{
			"SPY": series(dates, 0, func(int) float64 { return 1 }),
		})
		require.NoError(t, err)
		u := jpyUniverse(domain.Asset{ID: "S", Symbol: "SPY", Currency: domain.CurrencyUSD})

		_, err = newTestService(u, Config{}).Run(raw)
		assert.True(t, errors.Is(err, domain.ErrMissingReferenceRate))
	})

	t.Run("back-fill target without data", func(t *testing.T) {
		raw, err := timeseries.FromSeries([]string{"A", "B"}, map[string][]timeseries.Point{
			"A": series(dates, 0, func(int) float64 { return 1 }),
		})
		require.NoError(t, err)
		u := jpyUniverse(
			domain.Asset{ID: "A", Symbol: "A", Currency: domain.CurrencyJPY},
			domain.Asset{ID: "Bnd", Symbol: "B", Currency: domain.CurrencyJPY, Backfill: &domain.BackfillSpec{AnnualRate: 0.012}},
		)

		_, err = newTestService(u, Config{}).Run(raw)
		assert.True(t, errors.Is(err, domain.ErrInsufficientHistory))
	})
}
