package engine

import (
	"slices"
	"time"

	"mdpvis/internal/compare"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/stats"
)

// FilteredResult lists the active trajectories of the primary ensemble.
type FilteredResult struct {
	Status       Status                `json:"status"`
	Version      uint64                `json:"version"`
	Indices      []int                 `json:"indices"`
	Trajectories []ensemble.Trajectory `json:"-"`
	Total        int                   `json:"total"`
}

// StatisticsResult carries the primary ensemble's statistics.
type StatisticsResult struct {
	Status     Status       `json:"status"`
	Version    uint64       `json:"version"`
	Statistics *stats.Table `json:"statistics,omitempty"`
	// Comparator holds the secondary ensemble's statistics in comparison mode.
	Comparator *stats.Table `json:"comparator,omitempty"`
}

// DiffResult carries the comparison diff.
type DiffResult struct {
	Status  Status             `json:"status"`
	Version uint64             `json:"version"`
	Diff    *compare.DiffTable `json:"diff,omitempty"`
}

// EnsembleInfo describes an archived ensemble.
type EnsembleInfo struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Query         string    `json:"query,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	Trajectories  int       `json:"trajectories"`
	MaxLength     int       `json:"maxLength"`
	ExpectedValue *float64  `json:"expectedValue,omitempty"`
	Primary       bool      `json:"primary,omitempty"`
	Secondary     bool      `json:"secondary,omitempty"`
}

// FilteredTrajectories returns the trajectories passing every filter, in
// ensemble order.
func (e *Engine) FilteredTrajectories() FilteredResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := FilteredResult{Version: e.version, Status: e.status}
	primary := e.store.Primary()
	if primary.Empty() {
		r.Status = StatusNoData
		return r
	}
	r.Indices = slices.Clone(e.active)
	r.Trajectories = pick(primary.Trajectories, e.active)
	r.Total = primary.Len()
	if len(r.Indices) == 0 {
		r.Status = StatusNoData
	}
	return r
}

// Statistics returns the statistics of the filtered primary ensemble.
func (e *Engine) Statistics() StatisticsResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := StatisticsResult{Version: e.version, Status: e.status}
	if e.table == nil {
		r.Status = StatusNoData
		return r
	}
	r.Statistics = e.table
	r.Comparator = e.secondaryTable
	return r
}

// ComparisonDiff returns primary minus comparator statistics.
func (e *Engine) ComparisonDiff() DiffResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := DiffResult{Version: e.version, Status: e.status}
	switch {
	case e.state != StateComparison:
		r.Status = StatusNotComparing
	case e.diff == nil:
		r.Status = StatusNoData
	default:
		r.Diff = e.diff
	}
	return r
}

// Ensembles lists the archive in fetch order.
func (e *Engine) Ensembles() []EnsembleInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	primary, secondary := e.store.Primary(), e.store.Secondary()
	list := e.archive.List()
	infos := make([]EnsembleInfo, 0, len(list))
	for _, ens := range list {
		info := EnsembleInfo{
			ID:           ens.ID,
			Name:         ens.Name,
			Query:        ens.Query,
			CreatedAt:    ens.CreatedAt,
			Trajectories: ens.Len(),
			MaxLength:    e.store.MaxLength(ens),
			Primary:      primary != nil && primary.ID == ens.ID,
			Secondary:    secondary != nil && secondary.ID == ens.ID,
		}
		if ev, ok := stats.ExpectedValue(ens.Trajectories, e.cfg.RewardField); ok {
			info.ExpectedValue = &ev
		}
		infos = append(infos, info)
	}
	return infos
}

// Variables returns the primary ensemble's numeric variables.
func (e *Engine) Variables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.VariableNames(e.store.Primary())
}
