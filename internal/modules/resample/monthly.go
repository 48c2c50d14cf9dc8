// Package resample converts daily price tables to a coarser, period-end cadence.
package resample

import (
	"math"
	"time"

	"github.com/aristath/riskmap/internal/domain"
	"github.com/aristath/riskmap/internal/timeseries"
)

// MonthEnd returns the last calendar day of t's month (UTC midnight).
func MonthEnd(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

// Monthly resamples table to one row per calendar month spanned by its dates,
// keyed by month end. Each row holds the last non-missing value of that month;
// months without any value are then forward-filled from the prior month.
func Monthly(table *timeseries.Table) (*timeseries.Table, error) {
	if table.Len() == 0 {
		return nil, domain.ErrEmptyTable
	}

	first := MonthEnd(table.Date(0))
	last := MonthEnd(table.Date(table.Len() - 1))

	var months []time.Time
	for m := first; !m.After(last); m = MonthEnd(m.AddDate(0, 0, 1)) {
		months = append(months, m)
	}
	rowOf := make(map[time.Time]int, len(months))
	for i, m := range months {
		rowOf[m] = i
	}

	out, err := timeseries.New(months, nil)
	if err != nil {
		return nil, err
	}

	for _, name := range table.Columns() {
		daily, _ := table.Column(name)
		vals := make([]float64, len(months))
		for i := range vals {
			vals[i] = math.NaN()
		}
		for i, v := range daily {
			if math.IsNaN(v) {
				continue
			}
			// dates ascend, so the last write per month wins
			vals[rowOf[MonthEnd(table.Date(i))]] = v
		}
		if err := out.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}

	return timeseries.ForwardFill(out), nil
}
