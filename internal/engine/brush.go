package engine

import (
	"mdpvis/internal/ensemble"
	"mdpvis/internal/histogram"
	"mdpvis/internal/percentile"
)

// Counts is the histogram of one variable at the anchor time.
type Counts struct {
	Variable   string           `json:"variable"`
	AnchorTime int              `json:"anchorTime"`
	Domain     histogram.Domain `json:"domain"`
	Edges      []float64        `json:"edges"`
	// Total counts every eligible trajectory, Active only the filtered ones.
	Total  []int `json:"total"`
	Active []int `json:"active"`
	// Comparator and Difference are set in comparison mode; all bins then
	// share the union domain of both ensembles.
	Comparator []int `json:"comparator,omitempty"`
	Difference []int `json:"difference,omitempty"`
}

// BrushResult carries the brush counts for one variable.
type BrushResult struct {
	Status  Status  `json:"status"`
	Version uint64  `json:"version"`
	Counts  *Counts `json:"counts,omitempty"`
}

// BrushCounts bins the variable's values at the anchor time.
func (e *Engine) BrushCounts(variable string) BrushResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := BrushResult{Version: e.version, Status: e.status}
	primary := e.store.Primary()
	if primary.Empty() {
		r.Status = StatusNoData
		return r
	}
	if !e.store.HasVariable(primary, variable) {
		r.Status = StatusMissingVariable
		return r
	}
	c, ok := e.counts(variable)
	if !ok {
		r.Status = StatusNoData
		return r
	}
	r.Counts = &c
	return r
}

func (e *Engine) allCounts() map[string]Counts {
	primary := e.store.Primary()
	if primary.Empty() {
		return nil
	}
	out := make(map[string]Counts)
	for _, v := range e.store.VariableNames(primary) {
		if c, ok := e.counts(v); ok {
			out[v] = c
		}
	}
	return out
}

func (e *Engine) counts(variable string) (Counts, bool) {
	primary := e.store.Primary()
	all := valuesAt(primary.Trajectories, nil, variable, e.anchor)
	active := valuesAt(primary.Trajectories, e.active, variable, e.anchor)

	var comparator []float64
	secondary := e.store.Secondary()
	comparing := e.state == StateComparison && !secondary.Empty()
	if comparing {
		comparator = valuesAt(secondary.Trajectories, nil, variable, e.anchor)
	}

	domain, ok := histogram.DomainOf(all, comparator)
	if !ok {
		return Counts{}, false
	}
	c := Counts{
		Variable:   variable,
		AnchorTime: e.anchor,
		Domain:     domain,
		Edges:      histogram.Edges(domain, e.cfg.Bins),
	}
	c.Total, _ = histogram.Bin(all, domain, e.cfg.Bins)
	c.Active, _ = histogram.Bin(active, domain, e.cfg.Bins)
	if comparing {
		c.Comparator, _ = histogram.Bin(comparator, domain, e.cfg.Bins)
		c.Difference = histogram.Diff(c.Total, c.Comparator)
	}
	return c, true
}

// valuesAt collects the variable at step from the selected trajectories
// (all when indices is nil). Trajectories that have ended contribute the
// missing marker.
func valuesAt(trajectories []ensemble.Trajectory, indices []int, variable string, step int) []float64 {
	value := func(t ensemble.Trajectory) float64 {
		if step >= len(t) {
			return percentile.Missing
		}
		v, ok := t[step].Float(variable)
		if !ok {
			return percentile.Missing
		}
		return v
	}
	if indices == nil {
		out := make([]float64, len(trajectories))
		for i, t := range trajectories {
			out[i] = value(t)
		}
		return out
	}
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = value(trajectories[idx])
	}
	return out
}
