package timeseries

import "math"

// Policy is a named missing-data rule. Policies never mutate their input.
type Policy func(*Table) *Table

// Chain applies policies left to right.
func Chain(policies ...Policy) Policy {
	return func(t *Table) *Table {
		for _, p := range policies {
			t = p(t)
		}
		return t
	}
}

// ForwardFill carries the last known value forward over gaps.
func ForwardFill(t *Table) *Table {
	out := t.Clone()
	for _, name := range out.columns {
		vals := out.values[name]
		last := math.NaN()
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = last
			} else {
				last = v
			}
		}
	}
	return out
}

// BackFill carries the next known value backward over gaps (leading gaps included).
func BackFill(t *Table) *Table {
	out := t.Clone()
	for _, name := range out.columns {
		vals := out.values[name]
		next := math.NaN()
		for i := len(vals) - 1; i >= 0; i-- {
			if math.IsNaN(vals[i]) {
				vals[i] = next
			} else {
				next = vals[i]
			}
		}
	}
	return out
}

// FillGaps is forward-fill followed by back-fill.
var FillGaps = Chain(ForwardFill, BackFill)

// DropIncomplete removes every column still holding a missing value.
func DropIncomplete(t *Table) *Table {
	return t.keep(func(vals []float64) bool {
		for _, v := range vals {
			if math.IsNaN(v) {
				return false
			}
		}
		return true
	})
}

// DropNonPositive removes every column holding a zero, negative or infinite
// value, since a price return is undefined across such a cell.
func DropNonPositive(t *Table) *Table {
	return t.keep(func(vals []float64) bool {
		for _, v := range vals {
			if v <= 0 || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	})
}

func (t *Table) keep(pred func([]float64) bool) *Table {
	var names []string
	for _, name := range t.columns {
		if pred(t.values[name]) {
			names = append(names, name)
		}
	}
	out, _ := t.Select(names)
	return out
}

// Dropped lists columns of before that are absent from after, in before's order.
func Dropped(before, after *Table) []string {
	var out []string
	for _, name := range before.columns {
		if !after.HasColumn(name) {
			out = append(out, name)
		}
	}
	return out
}
