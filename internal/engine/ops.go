package engine

import (
	"errors"

	"mdpvis/internal/ensemble"
	"mdpvis/internal/filter"

	"github.com/rs/zerolog/log"
)

// OnNewEnsemble archives a freshly fetched batch and makes it the primary
// ensemble. Filters and any comparison are discarded; the anchor time is
// kept. An empty batch leaves the engine idle with a no-data status.
func (e *Engine) OnNewEnsemble(name, query string, trajectories []ensemble.Trajectory) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	ens := ensemble.New(name, query, trajectories)
	if !ens.Empty() {
		e.archive.Add(ens)
	}
	log.Info().
		Str("ensemble", ens.ID).
		Str("name", name).
		Int("trajectories", ens.Len()).
		Msg("New ensemble received")
	return e.show(ens)
}

// ViewEnsemble makes an archived ensemble primary again, leaving
// comparison mode.
func (e *Engine) ViewEnsemble(id string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ens, err := e.archive.Get(id)
	if err != nil {
		return Result{}, err
	}
	return e.show(ens), nil
}

func (e *Engine) show(ens *ensemble.Ensemble) Result {
	e.filters.RemoveAll()
	e.store.ClearSecondary()
	e.store.ReplacePrimary(ens)
	e.state = StateIdle

	if ens.Empty() {
		e.version++
		e.active, e.secondaryActive = nil, nil
		e.table, e.secondaryTable, e.diff = nil, nil, nil
		e.status = StatusNoData
		e.notify()
		r := e.result(StatusNoData)
		r.Message = "ensemble has no trajectories"
		return r
	}
	return e.result(e.recompute())
}

// AddFilter upserts the filter for (variable, anchorTime). Unknown
// variables and invalid bounds leave the engine unchanged.
func (e *Engine) AddFilter(variable string, anchorTime int, lower, upper float64) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	primary := e.store.Primary()
	if primary.Empty() {
		return e.result(StatusNoData)
	}
	if !e.store.HasVariable(primary, variable) {
		r := e.result(StatusMissingVariable)
		r.Message = "unknown variable " + variable
		return r
	}

	change, err := e.filters.AddOrReplace(variable, anchorTime, lower, upper)
	if err != nil {
		r := e.result(StatusInvalidRange)
		r.Message = err.Error()
		return r
	}
	if change.Op == filter.Unchanged {
		r := e.result(e.status)
		r.Change = &change
		return r
	}
	r := e.result(e.recompute())
	r.Change = &change
	return r
}

// RemoveFilter deletes the filter for (variable, anchorTime). Removing an
// absent filter changes nothing.
func (e *Engine) RemoveFilter(variable string, anchorTime int) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.filters.Remove(variable, anchorTime) {
		return e.result(e.status)
	}
	return e.result(e.recompute())
}

// ClearFilters removes every filter.
func (e *Engine) ClearFilters() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.filters.Len() == 0 {
		return e.result(e.status)
	}
	e.filters.RemoveAll()
	return e.result(e.recompute())
}

// ChangeAnchorTime moves the anchor and every filter to anchorTime.
func (e *Engine) ChangeAnchorTime(anchorTime int) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.filters.Reanchor(anchorTime); err != nil {
		r := e.result(StatusInvalidRange)
		r.Message = err.Error()
		return r
	}
	e.anchor = anchorTime
	if e.store.Primary().Empty() {
		return e.result(StatusNoData)
	}
	return e.result(e.recompute())
}

// CompareTo enters comparison mode against an archived ensemble. Filters
// are cleared on entry.
func (e *Engine) CompareTo(id string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Primary().Empty() {
		return e.result(StatusNoData), nil
	}
	secondary, err := e.archive.Get(id)
	if err != nil {
		return Result{}, err
	}
	e.filters.RemoveAll()
	e.store.SetSecondary(secondary)
	e.state = StateComparison
	log.Info().Str("comparator", id).Msg("Entered comparison mode")
	return e.result(e.recompute()), nil
}

// ExitComparison drops the comparator and returns to normal viewing of
// the primary ensemble.
func (e *Engine) ExitComparison() Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateComparison {
		return e.result(StatusNotComparing)
	}
	e.store.ClearSecondary()
	e.state = StateIdle
	return e.result(e.recompute())
}

// IsNotFound reports whether err names an ensemble missing from the archive.
func IsNotFound(err error) bool {
	return errors.Is(err, ensemble.ErrNotFound)
}
