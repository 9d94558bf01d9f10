package visuals

import (
	"strings"
	"testing"

	"mdpvis/internal/compare"
	"mdpvis/internal/engine"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/histogram"
	"mdpvis/internal/percentile"
	"mdpvis/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanChart(t *testing.T) {
	rows := []percentile.Row{
		percentile.NewRow(0, []float64{1, 2, 3}),
		percentile.NewRow(1, []float64{10, 20, 30}),
	}

	chart := FanChart("x", rows)

	assert.True(t, strings.HasPrefix(chart, "```mermaid\nxychart-beta\n"))
	assert.Contains(t, chart, `x-axis "Time step" [0, 1]`)
	assert.Contains(t, chart, "line [1, 10]") // p0
	assert.Contains(t, chart, "line [3, 30]") // p100
	assert.Equal(t, len(fanLabels), strings.Count(chart, "line ["))
	assert.Empty(t, FanChart("x", nil))
}

func TestFanChart_TrailingEmptyRows(t *testing.T) {
	rows := []percentile.Row{
		percentile.NewRow(0, []float64{1, 2, 3}),
		percentile.NewRow(1, []float64{10, 20}),
		percentile.NewRow(2, []float64{percentile.Missing, percentile.Missing}),
		percentile.NewRow(3, nil),
	}

	chart := FanChart("x", rows)

	assert.Contains(t, chart, `x-axis "Time step" [0, 1]`)
	assert.Contains(t, chart, "line [1, 10]")
	assert.Empty(t, FanChart("x", rows[2:]))
}

func TestDiffChart(t *testing.T) {
	diff := &compare.DiffTable{Percentiles: map[string][]percentile.Row{
		"x": {percentile.FromValues(0, []float64{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1}, 2)},
	}}

	chart := DiffChart("x", diff)

	assert.Contains(t, chart, "primary - comparator")
	assert.Contains(t, chart, "line [-1]")
	assert.Empty(t, DiffChart("x", nil))
}

func TestHistogram(t *testing.T) {
	c := engine.Counts{
		Variable: "x",
		Domain:   histogram.Domain{Min: 0, Max: 9},
		Edges:    histogram.Edges(histogram.Domain{Min: 0, Max: 9}, 10),
		Total:    []int{2, 1, 0, 0, 1, 0, 0, 0, 0, 1},
		Active:   []int{0, 1, 0, 0, 1, 0, 0, 0, 0, 0},
	}

	chart := Histogram(c)

	assert.Contains(t, chart, "bar [2, 1, 0, 0, 1, 0, 0, 0, 0, 1]")
	assert.Contains(t, chart, "line [0, 1, 0, 0, 1, 0, 0, 0, 0, 0]")
	assert.Contains(t, chart, `"x at time step 0 (2 of 5 active)"`)

	c.Difference = []int{1, -1, 0, 0, 0, 0, 0, 0, 0, 0}
	chart = Histogram(c)
	assert.Contains(t, chart, `y-axis "Trajectories" -1 -->`)
	assert.NotContains(t, chart, "line [")
	assert.Contains(t, chart, "(primary - comparator)")
}

func TestReport(t *testing.T) {
	table, err := stats.Compute([]ensemble.Trajectory{
		{{"x": 1.0, "Discounted Reward": 2.0}},
		{{"x": 3.0, "Discounted Reward": 4.0}},
	}, stats.Options{})
	require.NoError(t, err)

	doc := Report("Session", table, nil)

	assert.True(t, strings.HasPrefix(doc, "# Session\n"))
	assert.Contains(t, doc, "- Trajectories: 2")
	assert.Contains(t, doc, "- Expected value: 3")
	assert.Contains(t, doc, "## x")
	assert.Contains(t, doc, "## Discounted Reward")

	assert.Contains(t, Report("Empty", nil, nil), "No trajectories")
}
