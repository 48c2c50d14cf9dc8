package statistics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthEnds(n int) []time.Time {
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2000, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC)
	}
	return dates
}

func buildTable(t *testing.T, n int, cols map[string]func(i int) float64, order []string) *timeseries.Table {
	t.Helper()
	tbl, err := timeseries.New(monthEnds(n), nil)
	require.NoError(t, err)
	for _, name := range order {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = cols[name](i)
		}
		require.NoError(t, tbl.SetColumn(name, vals))
	}
	return tbl
}

func TestSelect_TakesTrailingRowsAndFills(t *testing.T) {
	tbl := buildTable(t, 36, map[string]func(int) float64{
		"A": func(i int) float64 { return 100 + float64(i) },
		// B only starts inside the 1y window: back-filled, kept
		"B": func(i int) float64 {
			if i < 30 {
				return math.NaN()
			}
			return 50
		},
		"C": func(int) float64 { return math.NaN() },
	}, []string{"A", "B", "C"})

	w, err := NewWindowSelector(zerolog.Nop()).Select(tbl, 1, 12)
	require.NoError(t, err)

	assert.Equal(t, 12, w.Table.Len())
	assert.Equal(t, []string{"A", "B"}, w.Table.Columns())
	assert.Equal(t, []string{"C"}, w.Dropped)
	assert.Equal(t, 124.0, w.Table.At("A", 0))
	assert.Equal(t, 50.0, w.Table.At("B", 0))
}

func TestSelect_ShorterTableUsesAllRows(t *testing.T) {
	tbl := buildTable(t, 10, map[string]func(int) float64{
		"A": func(i int) float64 { return 1 + float64(i) },
		"B": func(i int) float64 { return 2 + float64(i) },
	}, []string{"A", "B"})

	w, err := NewWindowSelector(zerolog.Nop()).Select(tbl, 20, 12)
	require.NoError(t, err)
	assert.Equal(t, 10, w.Table.Len())
}

func TestSelect_InsufficientUniverse(t *testing.T) {
	tbl := buildTable(t, 240, map[string]func(int) float64{
		"A": func(i int) float64 { return 1 + float64(i) },
		"B": func(int) float64 { return math.NaN() },
	}, []string{"A", "B"})

	w, err := NewWindowSelector(zerolog.Nop()).Select(tbl, 20, 12)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientUniverse))
	require.NotNil(t, w)
	assert.Equal(t, []string{"A"}, w.Table.Columns())
}

func TestSelect_DropsNonPositivePrices(t *testing.T) {
	tbl := buildTable(t, 12, map[string]func(int) float64{
		"A": func(i int) float64 { return 1 + float64(i) },
		"B": func(i int) float64 { return 2 + float64(i) },
		"Z": func(i int) float64 { return float64(i) },
	}, []string{"A", "B", "Z"})

	w, err := NewWindowSelector(zerolog.Nop()).Select(tbl, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z"}, w.Dropped)
}

func TestSelect_RejectsBadArguments(t *testing.T) {
	tbl := buildTable(t, 2, map[string]func(int) float64{"A": func(int) float64 { return 1 }}, []string{"A"})
	sel := NewWindowSelector(zerolog.Nop())

	_, err := sel.Select(tbl, 0, 12)
	assert.Error(t, err)
	_, err = sel.Select(tbl, 1, 0)
	assert.Error(t, err)
}
