// Package timeseries provides an aligned time-series table: every column shares
// one ordered set of date keys, and a missing observation is stored as NaN.
//
// Alongside the values the table tracks, per column, which cells hold a real
// observation. Fill policies change values but never mark a filled cell as
// observed, so later stages can still tell provider data from filler.
package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Point is a single dated observation.
type Point struct {
	Date  time.Time
	Value float64
}

// Table is a column-oriented, date-aligned table.
type Table struct {
	dates    []time.Time
	columns  []string
	values   map[string][]float64
	observed map[string][]bool
}

// New creates a table over dates with the given columns, all cells missing.
// Dates must be strictly increasing.
func New(dates []time.Time, columns []string) (*Table, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dates not strictly increasing at index %d (%s <= %s)",
				i, dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
	}

	t := &Table{
		dates:    append([]time.Time(nil), dates...),
		values:   make(map[string][]float64, len(columns)),
		observed: make(map[string][]bool, len(columns)),
	}
	for _, c := range columns {
		if _, dup := t.values[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		t.addEmpty(c)
	}
	return t, nil
}

// FromSeries aligns irregular per-column series on the union of their dates.
// Columns appear in the given order; a column without a series is all missing.
// Dates are truncated to the day, and a later point on the same day wins.
func FromSeries(columns []string, series map[string][]Point) (*Table, error) {
	dateSet := make(map[time.Time]bool)
	for _, c := range columns {
		for _, p := range series[c] {
			dateSet[Day(p.Date)] = true
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	t, err := New(dates, columns)
	if err != nil {
		return nil, err
	}

	index := make(map[time.Time]int, len(dates))
	for i, d := range dates {
		index[d] = i
	}
	for _, c := range columns {
		vals := t.values[c]
		obs := t.observed[c]
		for _, p := range series[c] {
			if math.IsNaN(p.Value) {
				continue
			}
			i := index[Day(p.Date)]
			vals[i] = p.Value
			obs[i] = true
		}
	}
	return t, nil
}

// Day truncates a timestamp to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (t *Table) addEmpty(name string) {
	vals := make([]float64, len(t.dates))
	for i := range vals {
		vals[i] = math.NaN()
	}
	t.columns = append(t.columns, name)
	t.values[name] = vals
	t.observed[name] = make([]bool, len(t.dates))
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.dates) }

// Dates returns a copy of the row keys.
func (t *Table) Dates() []time.Time { return append([]time.Time(nil), t.dates...) }

// Date returns the key of row i.
func (t *Table) Date(i int) time.Time { return t.dates[i] }

// Columns returns column names in table order.
func (t *Table) Columns() []string { return append([]string(nil), t.columns...) }

// HasColumn reports whether name is a column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.values[name]
	return ok
}

// Column returns a copy of a column's values.
func (t *Table) Column(name string) ([]float64, bool) {
	v, ok := t.values[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Observed returns a copy of a column's observation mask.
func (t *Table) Observed(name string) ([]bool, bool) {
	o, ok := t.observed[name]
	if !ok {
		return nil, false
	}
	return append([]bool(nil), o...), true
}

// At returns the value at row i of a column (NaN for an unknown column).
func (t *Table) At(name string, i int) float64 {
	v, ok := t.values[name]
	if !ok {
		return math.NaN()
	}
	return v[i]
}

// Set overwrites one cell without changing its observation flag.
func (t *Table) Set(name string, i int, value float64) error {
	v, ok := t.values[name]
	if !ok {
		return fmt.Errorf("column %q not found", name)
	}
	if i < 0 || i >= len(v) {
		return fmt.Errorf("row %d out of range [0,%d)", i, len(v))
	}
	v[i] = value
	return nil
}

// SetColumn replaces (or appends) a column. Non-NaN cells count as observed.
func (t *Table) SetColumn(name string, values []float64) error {
	obs := make([]bool, len(values))
	for i, v := range values {
		obs[i] = !math.IsNaN(v)
	}
	return t.SetColumnObserved(name, values, obs)
}

// SetColumnObserved replaces (or appends) a column with an explicit mask.
func (t *Table) SetColumnObserved(name string, values []float64, observed []bool) error {
	if len(values) != len(t.dates) || len(observed) != len(t.dates) {
		return fmt.Errorf("column %q has %d values and %d flags, table has %d rows",
			name, len(values), len(observed), len(t.dates))
	}
	if !t.HasColumn(name) {
		t.columns = append(t.columns, name)
	}
	t.values[name] = append([]float64(nil), values...)
	t.observed[name] = append([]bool(nil), observed...)
	return nil
}

// FirstObserved returns the index of the first real observation in a column.
func (t *Table) FirstObserved(name string) (int, bool) {
	for i, ok := range t.observed[name] {
		if ok {
			return i, true
		}
	}
	return -1, false
}

// Missing counts NaN cells in a column.
func (t *Table) Missing(name string) int {
	n := 0
	for _, v := range t.values[name] {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		dates:    append([]time.Time(nil), t.dates...),
		columns:  append([]string(nil), t.columns...),
		values:   make(map[string][]float64, len(t.columns)),
		observed: make(map[string][]bool, len(t.columns)),
	}
	for _, name := range t.columns {
		c.values[name] = append([]float64(nil), t.values[name]...)
		c.observed[name] = append([]bool(nil), t.observed[name]...)
	}
	return c
}

// Select returns a new table with only the named columns, in the given order.
func (t *Table) Select(columns []string) (*Table, error) {
	out := &Table{
		dates:    append([]time.Time(nil), t.dates...),
		values:   make(map[string][]float64, len(columns)),
		observed: make(map[string][]bool, len(columns)),
	}
	for _, name := range columns {
		if !t.HasColumn(name) {
			return nil, fmt.Errorf("column %q not found", name)
		}
		out.columns = append(out.columns, name)
		out.values[name] = append([]float64(nil), t.values[name]...)
		out.observed[name] = append([]bool(nil), t.observed[name]...)
	}
	return out, nil
}

// Tail returns the last n rows (all rows when n exceeds the length).
func (t *Table) Tail(n int) *Table {
	if n < 0 {
		n = 0
	}
	start := len(t.dates) - n
	if start < 0 {
		start = 0
	}
	out := &Table{
		dates:    append([]time.Time(nil), t.dates[start:]...),
		columns:  append([]string(nil), t.columns...),
		values:   make(map[string][]float64, len(t.columns)),
		observed: make(map[string][]bool, len(t.columns)),
	}
	for _, name := range t.columns {
		out.values[name] = append([]float64(nil), t.values[name][start:]...)
		out.observed[name] = append([]bool(nil), t.observed[name][start:]...)
	}
	return out
}
