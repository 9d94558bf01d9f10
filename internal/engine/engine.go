// Package engine sequences filter mutations, re-filtering and statistics
// recomputation over the current ensemble, and notifies subscribed views.
package engine

import (
	"errors"
	"fmt"
	"sync"

	"mdpvis/internal/compare"
	"mdpvis/internal/ensemble"
	"mdpvis/internal/filter"
	"mdpvis/internal/histogram"
	"mdpvis/internal/stats"

	"github.com/rs/zerolog/log"
)

// ErrStale is returned by CheckVersion for results computed against an
// earlier ensemble or filter set.
var ErrStale = errors.New("result is stale")

// ErrMissingVariable is returned by Restore for a filter on a variable the
// primary ensemble does not record.
var ErrMissingVariable = errors.New("missing variable")

// State is the orchestrator's mode.
type State string

const (
	StateIdle       State = "idle"
	StateFiltering  State = "filtering"
	StateComparison State = "comparison"
)

// Status tags every result.
type Status string

const (
	StatusOK              Status = "ok"
	StatusNoData          Status = "no_data"
	StatusMissingVariable Status = "missing_variable"
	StatusInvalidRange    Status = "invalid_range"
	StatusNotComparing    Status = "not_comparing"
)

// DefaultDenyList names fields that are display-only.
var DefaultDenyList = []string{"images"}

// Config tunes the engine.
type Config struct {
	DenyList        []string
	RewardField     string
	SampleThreshold int
	SampleSeed      int64
	StatsWorkers    int
	Bins            int
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		DenyList:    DefaultDenyList,
		RewardField: stats.DefaultRewardField,
		Bins:        histogram.DefaultBins,
	}
}

// Update is handed to subscribers after every recomputation.
type Update struct {
	Version    uint64             `json:"version"`
	State      State              `json:"state"`
	Status     Status             `json:"status"`
	AnchorTime int                `json:"anchorTime"`
	Active     []int              `json:"active"`
	Statistics *stats.Table       `json:"statistics,omitempty"`
	Diff       *compare.DiffTable `json:"diff,omitempty"`
	Filters    []filter.Filter    `json:"filters"`
	Counts     map[string]Counts  `json:"counts,omitempty"`
	Primary    *ensemble.Ensemble `json:"primary,omitempty"`
	Secondary  *ensemble.Ensemble `json:"secondary,omitempty"`
}

// Filterable is implemented by views that redraw after every recompute.
// Calls happen with the engine locked; implementations must not call back
// into the engine.
type Filterable interface {
	UpdateData(u Update)
	UpdateBrush(filters []filter.Filter, anchorTime int)
	BrushCounts(counts map[string]Counts)
}

// Result reports the outcome of a mutation.
type Result struct {
	Status     Status         `json:"status"`
	Version    uint64         `json:"version"`
	State      State          `json:"state"`
	EnsembleID string         `json:"ensembleId,omitempty"`
	Active     int            `json:"active"`
	Total      int            `json:"total"`
	Change     *filter.Change `json:"change,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// Engine owns the trajectory store and filter set for one session. All
// methods are safe for concurrent use; transitions are serialised.
type Engine struct {
	mu sync.Mutex

	cfg     Config
	store   *ensemble.Store
	archive *ensemble.Archive
	filters *filter.Set
	anchor  int
	state   State
	version uint64

	active          []int
	secondaryActive []int
	table           *stats.Table
	secondaryTable  *stats.Table
	diff            *compare.DiffTable
	status          Status

	subscribers []Filterable
}

// New creates an engine. A nil archive starts an empty one.
func New(cfg Config, archive *ensemble.Archive) *Engine {
	if archive == nil {
		archive = ensemble.NewArchive()
	}
	if cfg.RewardField == "" {
		cfg.RewardField = stats.DefaultRewardField
	}
	if cfg.Bins < 2 {
		cfg.Bins = histogram.DefaultBins
	}
	return &Engine{
		cfg:     cfg,
		store:   ensemble.NewStore(cfg.DenyList),
		archive: archive,
		filters: filter.NewSet(),
		state:   StateIdle,
		status:  StatusNoData,
	}
}

// Subscribe registers a view for notifications.
func (e *Engine) Subscribe(f Filterable) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, f)
}

// Archive returns the session's ensemble archive.
func (e *Engine) Archive() *ensemble.Archive {
	return e.archive
}

// State returns the current mode.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Version returns the current result version.
func (e *Engine) Version() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

// AnchorTime returns the time step new filters and brush counts use.
func (e *Engine) AnchorTime() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.anchor
}

// Filters returns the active filters in insertion order.
func (e *Engine) Filters() []filter.Filter {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filters.Filters()
}

// CheckVersion returns ErrStale unless v is the current version.
func (e *Engine) CheckVersion(v uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v != e.version {
		return fmt.Errorf("%w: version %d, current %d", ErrStale, v, e.version)
	}
	return nil
}

// recompute re-filters the primary (and, when comparing, the secondary)
// ensemble, rebuilds statistics and the diff, bumps the version and
// notifies subscribers. Callers hold e.mu.
func (e *Engine) recompute() Status {
	comparing := e.state == StateComparison
	if !comparing {
		e.state = StateFiltering
	}
	e.version++
	e.active, e.secondaryActive = nil, nil
	e.table, e.secondaryTable, e.diff = nil, nil, nil

	e.status = e.refresh(comparing)

	log.Debug().
		Uint64("version", e.version).
		Str("status", string(e.status)).
		Int("filters", e.filters.Len()).
		Int("anchor", e.anchor).
		Int("active", len(e.active)).
		Msg("Engine recomputed")

	e.notify()
	if !comparing {
		e.state = StateIdle
	}
	return e.status
}

func (e *Engine) refresh(comparing bool) Status {
	primary := e.store.Primary()
	if primary.Empty() {
		return StatusNoData
	}
	e.active = e.filters.Apply(primary.Trajectories)
	table, err := e.statistics(primary, e.active)
	if err != nil {
		return StatusNoData
	}
	e.table = table

	if !comparing {
		return StatusOK
	}
	secondary := e.store.Secondary()
	if secondary.Empty() {
		return StatusNoData
	}
	e.secondaryActive = e.filters.Apply(secondary.Trajectories)
	secondaryTable, err := e.statistics(secondary, e.secondaryActive)
	if err != nil {
		return StatusNoData
	}
	e.secondaryTable = secondaryTable
	e.diff = compare.Diff(e.table, e.secondaryTable)
	return StatusOK
}

func (e *Engine) statistics(ens *ensemble.Ensemble, indices []int) (*stats.Table, error) {
	return stats.Compute(pick(ens.Trajectories, indices), stats.Options{
		MaxLength:       e.store.MaxLength(ens),
		Variables:       e.store.VariableNames(ens),
		RewardField:     e.cfg.RewardField,
		SampleThreshold: e.cfg.SampleThreshold,
		Seed:            e.cfg.SampleSeed,
		Workers:         e.cfg.StatsWorkers,
	})
}

func (e *Engine) notify() {
	if len(e.subscribers) == 0 {
		return
	}
	filters := e.filters.Filters()
	u := Update{
		Version:    e.version,
		State:      e.state,
		Status:     e.status,
		AnchorTime: e.anchor,
		Active:     e.active,
		Statistics: e.table,
		Diff:       e.diff,
		Filters:    filters,
		Primary:    e.store.Primary(),
		Secondary:  e.store.Secondary(),
	}
	counts := e.allCounts()
	u.Counts = counts
	for _, s := range e.subscribers {
		s.UpdateData(u)
		s.UpdateBrush(filters, e.anchor)
		s.BrushCounts(counts)
	}
}

func (e *Engine) result(status Status) Result {
	r := Result{
		Status:  status,
		Version: e.version,
		State:   e.state,
		Active:  len(e.active),
	}
	if p := e.store.Primary(); p != nil {
		r.EnsembleID = p.ID
		r.Total = p.Len()
	}
	return r
}

func pick(trajectories []ensemble.Trajectory, indices []int) []ensemble.Trajectory {
	out := make([]ensemble.Trajectory, len(indices))
	for i, idx := range indices {
		out[i] = trajectories[idx]
	}
	return out
}
