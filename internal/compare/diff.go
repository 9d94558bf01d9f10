package compare

import (
	"slices"

	"mdpvis/internal/percentile"
	"mdpvis/internal/stats"

	"gonum.org/v1/gonum/floats"
)

// DiffTable holds the element-wise difference base - comparator of two
// statistics tables. Rows are aligned by index, not by semantic time.
type DiffTable struct {
	Percentiles map[string][]percentile.Row `json:"percentiles"`
	// ExpectedValue is set only when both tables carry one.
	ExpectedValue *float64 `json:"expectedValue,omitempty"`
	// Truncated lists variables whose tables differed in length; their
	// rows stop at the shorter table.
	Truncated []string `json:"truncated,omitempty"`
}

// Diff subtracts comparator from base for every variable present in both
// tables. Each row's Count is the smaller of the two counts.
func Diff(base, comparator *stats.Table) *DiffTable {
	out := &DiffTable{
		Percentiles: make(map[string][]percentile.Row),
	}
	if base == nil || comparator == nil {
		return out
	}

	for _, name := range base.Variables() {
		a := base.Percentiles[name]
		b, ok := comparator.Percentiles[name]
		if !ok {
			continue
		}
		n := min(len(a), len(b))
		if len(a) != len(b) {
			out.Truncated = append(out.Truncated, name)
		}

		rows := make([]percentile.Row, n)
		diff := make([]float64, len(percentile.Labels))
		for i := 0; i < n; i++ {
			floats.SubTo(diff, a[i].Values(), b[i].Values())
			rows[i] = percentile.FromValues(a[i].Time, diff, min(a[i].Count, b[i].Count))
		}
		out.Percentiles[name] = rows
	}

	if base.ExpectedValue != nil && comparator.ExpectedValue != nil {
		ev := *base.ExpectedValue - *comparator.ExpectedValue
		out.ExpectedValue = &ev
	}
	return out
}

// Negate returns the diff with every value's sign flipped, i.e. the diff
// taken in the opposite direction over the same rows.
func (d *DiffTable) Negate() *DiffTable {
	out := &DiffTable{
		Percentiles: make(map[string][]percentile.Row, len(d.Percentiles)),
		Truncated:   slices.Clone(d.Truncated),
	}
	for name, rows := range d.Percentiles {
		negated := make([]percentile.Row, len(rows))
		for i, r := range rows {
			values := r.Values()
			floats.Scale(-1, values)
			negated[i] = percentile.FromValues(r.Time, values, r.Count)
		}
		out.Percentiles[name] = negated
	}
	if d.ExpectedValue != nil {
		ev := -*d.ExpectedValue
		out.ExpectedValue = &ev
	}
	return out
}

// Variables returns the diff's variable names, sorted.
func (d *DiffTable) Variables() []string {
	names := make([]string, 0, len(d.Percentiles))
	for name := range d.Percentiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
