package engine

import (
	"fmt"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/filter"
)

// Snapshot is everything needed to rebuild the session's view: the
// primary ensemble, the filters and the anchor time, plus the comparator
// when comparing.
type Snapshot struct {
	EnsembleID   string          `json:"ensembleId"`
	ComparatorID string          `json:"comparatorId,omitempty"`
	AnchorTime   int             `json:"anchorTime"`
	Filters      []filter.Filter `json:"filters"`
}

// Snapshot captures the current view.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		AnchorTime: e.anchor,
		Filters:    e.filters.Filters(),
	}
	if p := e.store.Primary(); p != nil {
		s.EnsembleID = p.ID
	}
	if sec := e.store.Secondary(); sec != nil && e.state == StateComparison {
		s.ComparatorID = sec.ID
	}
	return s
}

// Restore rebuilds the view from a snapshot of archived ensembles. The
// result is identical to replaying the snapshot's operations by hand. A
// snapshot with an invalid filter is rejected whole and leaves the engine
// unchanged.
func (e *Engine) Restore(s Snapshot) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	primary, err := e.archive.Get(s.EnsembleID)
	if err != nil {
		return Result{}, err
	}
	if s.AnchorTime < 0 {
		return Result{}, fmt.Errorf("%w: negative anchor time %d", filter.ErrInvalidRange, s.AnchorTime)
	}

	filters := filter.NewSet()
	for _, f := range s.Filters {
		if !e.store.HasVariable(primary, f.Variable) {
			return Result{}, fmt.Errorf("restoring filter %s: %w %q", f.Key(), ErrMissingVariable, f.Variable)
		}
		if _, err := filters.AddOrReplace(f.Variable, f.AnchorTime, f.Lower, f.Upper); err != nil {
			return Result{}, fmt.Errorf("restoring filter %s: %w", f.Key(), err)
		}
	}

	var secondary *ensemble.Ensemble
	if s.ComparatorID != "" {
		if secondary, err = e.archive.Get(s.ComparatorID); err != nil {
			return Result{}, err
		}
	}

	e.store.ReplacePrimary(primary)
	e.store.ClearSecondary()
	e.state = StateIdle
	if secondary != nil {
		e.store.SetSecondary(secondary)
		e.state = StateComparison
	}
	e.filters = filters
	e.anchor = s.AnchorTime
	return e.result(e.recompute()), nil
}
