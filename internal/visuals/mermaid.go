package visuals

import (
	"fmt"
	"math"
	"strings"

	"mdpvis/internal/compare"
	"mdpvis/internal/engine"
	"mdpvis/internal/histogram"
	"mdpvis/internal/percentile"
	"mdpvis/internal/stats"
)

// fanLabels are the percentile lines drawn by the fan chart, outermost band
// first.
var fanLabels = []int{0, 100, 10, 90, 40, 60}

// FanChart creates a Mermaid xychart-beta of a variable's percentile bands
// over time.
func FanChart(variable string, rows []percentile.Row) string {
	return fanChart(fmt.Sprintf("%s percentiles", variable), variable, rows)
}

// DiffChart plots a comparison diff's percentile bands.
func DiffChart(variable string, diff *compare.DiffTable) string {
	if diff == nil {
		return ""
	}
	return fanChart(fmt.Sprintf("%s difference (primary - comparator)", variable), variable, diff.Percentiles[variable])
}

func fanChart(title, axis string, rows []percentile.Row) string {
	// Mermaid lines cannot break, so the axis stops at the last populated step.
	for len(rows) > 0 && rows[len(rows)-1].Empty() {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return ""
	}

	labels := make([]string, len(rows))
	lines := make([][]string, len(fanLabels))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, row := range rows {
		labels[i] = fmt.Sprintf("%d", row.Time)
		for j, p := range fanLabels {
			v, _ := row.Get(p)
			lines[j] = append(lines[j], formatValue(v))
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %q\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis \"Time step\" [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis %q %s --> %s\n", axis, formatValue(padLow(lo, hi)), formatValue(padHigh(lo, hi))))
	for _, line := range lines {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(line, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// Histogram creates a Mermaid bar chart of a variable's brush counts: all
// eligible trajectories as bars, the filtered ones as a line.
func Histogram(c engine.Counts) string {
	if len(c.Total) == 0 {
		return ""
	}

	labels := make([]string, len(c.Edges))
	for i, edge := range c.Edges {
		labels[i] = fmt.Sprintf("%q", formatValue(edge))
	}
	bars := c.Total
	title := fmt.Sprintf("%s at time step %d (%d of %d active)", c.Variable, c.AnchorTime, histogram.Total(c.Active), histogram.Total(c.Total))
	if c.Difference != nil {
		bars = c.Difference
		title = fmt.Sprintf("%s at time step %d (primary - comparator)", c.Variable, c.AnchorTime)
	}

	maxVal, minVal := 0, 0
	for _, n := range bars {
		maxVal, minVal = max(maxVal, n), min(minVal, n)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title %q\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Trajectories\" %d --> %d\n", minVal, maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", joinInts(bars)))
	if c.Difference == nil {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", joinInts(c.Active)))
	}
	sb.WriteString("```")
	return sb.String()
}

// Report renders a Markdown document with the summary, a fan chart per
// variable and, when counts are given, its histogram.
func Report(title string, table *stats.Table, counts map[string]engine.Counts) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if table == nil {
		sb.WriteString("No trajectories match the current filters.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("- Trajectories: %d\n", table.Trajectories))
	sb.WriteString(fmt.Sprintf("- Time steps: %d\n", table.MaxLength))
	if table.ExpectedValue != nil {
		sb.WriteString(fmt.Sprintf("- Expected value: %s\n", formatValue(*table.ExpectedValue)))
	}
	if table.Sampled {
		sb.WriteString(fmt.Sprintf("- Percentiles computed on a stratified sample of %d\n", table.SampleSize))
	}

	for _, v := range table.Variables() {
		sb.WriteString(fmt.Sprintf("\n## %s\n\n", v))
		sb.WriteString(FanChart(v, table.Percentiles[v]))
		sb.WriteString("\n")
		if c, ok := counts[v]; ok {
			sb.WriteString("\n")
			sb.WriteString(Histogram(c))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e12 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.3g", v)
}

func padLow(lo, hi float64) float64 {
	return math.Floor(lo - 0.1*math.Max(hi-lo, 1))
}

func padHigh(lo, hi float64) float64 {
	return math.Ceil(hi + 0.1*math.Max(hi-lo, 1))
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ", ")
}
