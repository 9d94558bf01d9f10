package stats

import (
	"errors"
	"slices"

	"mdpvis/internal/percentile"
)

// ErrNoData is returned when statistics are requested for an empty
// trajectory set. Callers surface it as a "no data" state.
var ErrNoData = errors.New("no trajectories to summarise")

// Table is the full percentile table for a trajectory set: for every
// variable one row per time step, plus the expected cumulative reward.
type Table struct {
	Percentiles   map[string][]percentile.Row `json:"percentiles"`
	ExpectedValue *float64                    `json:"expectedValue,omitempty"`
	Trajectories  int                         `json:"trajectories"`
	MaxLength     int                         `json:"maxLength"`
	Sampled       bool                        `json:"sampled,omitempty"`
	SampleSize    int                         `json:"sampleSize,omitempty"`
}

// Variables returns the table's variable names, sorted.
func (t *Table) Variables() []string {
	names := make([]string, 0, len(t.Percentiles))
	for name := range t.Percentiles {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Row returns the row for a variable at a time step.
func (t *Table) Row(variable string, step int) (percentile.Row, bool) {
	rows, ok := t.Percentiles[variable]
	if !ok || step < 0 || step >= len(rows) {
		return percentile.Row{}, false
	}
	return rows[step], true
}

// Summary is a compact view of a table used in listings and tool output.
type Summary struct {
	Trajectories  int      `json:"trajectories"`
	MaxLength     int      `json:"maxLength"`
	Variables     []string `json:"variables"`
	ExpectedValue *float64 `json:"expectedValue,omitempty"`
	Sampled       bool     `json:"sampled,omitempty"`
}

// Summarize returns the table's summary.
func (t *Table) Summarize() Summary {
	return Summary{
		Trajectories:  t.Trajectories,
		MaxLength:     t.MaxLength,
		Variables:     t.Variables(),
		ExpectedValue: t.ExpectedValue,
		Sampled:       t.Sampled,
	}
}
