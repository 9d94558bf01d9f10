// Package stitch synthesises trajectories from a database of recorded
// transitions by nearest-neighbour lookup (model-free Monte Carlo).
package stitch

import (
	"errors"
	"math"

	"mdpvis/internal/ensemble"
)

// ErrExhausted is returned when no recorded transition is eligible.
var ErrExhausted = errors.New("no eligible transition in database")

// DistanceField is written into every stitched result state.
const DistanceField = "Stitched Distance"

// Transition is one recorded step: the state, the action taken in it, the
// resulting state and, when bias correction samples were recorded, the
// result of taking the other action.
type Transition struct {
	State         ensemble.Event
	Action        float64
	Next          ensemble.Event
	OffPolicyNext ensemble.Event

	consumed bool
}

// Dimension is one term of the distance metric: |a-b| / Scale.
type Dimension struct {
	Field string
	Scale float64
}

// Metric is a weighted L1 distance over normalised state dimensions.
type Metric struct {
	State       []Dimension
	Exogenous   []Dimension
	ActionScale float64
}

// QueryOptions selects how a query searches the database.
type QueryOptions struct {
	IncludeAction      bool
	IncludeExogenous   bool
	WithReplacement    bool
	RequireActionMatch bool
	BiasCorrection     bool
	// Eligible optionally rejects candidates for a query state.
	Eligible func(query, candidate ensemble.Event) bool
}

// Match is the outcome of a query.
type Match struct {
	Result     ensemble.Event
	Distance   float64
	Trajectory int
	Step       int
}

// Database holds recorded trajectories of transitions. Not safe for
// concurrent use: queries mark transitions consumed.
type Database struct {
	metric       Metric
	trajectories [][]*Transition
}

// NewDatabase creates an empty database using metric.
func NewDatabase(metric Metric) *Database {
	return &Database{metric: metric}
}

// Add appends one recorded trajectory.
func (d *Database) Add(transitions []Transition) {
	row := make([]*Transition, len(transitions))
	for i := range transitions {
		t := transitions[i]
		row[i] = &t
	}
	d.trajectories = append(d.trajectories, row)
}

// Len returns the number of recorded trajectories.
func (d *Database) Len() int {
	return len(d.trajectories)
}

// Reset clears every consumed mark.
func (d *Database) Reset() {
	for _, row := range d.trajectories {
		for _, t := range row {
			t.consumed = false
		}
	}
}

// InitialState returns the first recorded start state that has not been
// consumed (any start state when sampling with replacement).
func (d *Database) InitialState(withReplacement bool) (ensemble.Event, error) {
	for _, row := range d.trajectories {
		if len(row) == 0 {
			continue
		}
		if withReplacement || !row[0].consumed {
			return row[0].State, nil
		}
	}
	return nil, ErrExhausted
}

// Distance returns the metric distance between a query state (with the
// action about to be taken) and a recorded transition.
func (d *Database) Distance(state ensemble.Event, action float64, candidate *Transition, opts QueryOptions) float64 {
	total := sumDimensions(d.metric.State, state, candidate.State)
	if opts.IncludeAction && d.metric.ActionScale > 0 {
		total += math.Abs(action-candidate.Action) / d.metric.ActionScale
	}
	if opts.IncludeExogenous {
		total += sumDimensions(d.metric.Exogenous, state, candidate.State)
	}
	return total
}

// Query selects the transition closest to (state, action), returns a copy
// of its result state annotated with the distance, and marks the matched
// transition consumed. Ties go to the first transition encountered.
func (d *Database) Query(state ensemble.Event, action float64, opts QueryOptions) (Match, error) {
	var best *Transition
	match := Match{Distance: math.Inf(1), Trajectory: -1, Step: -1}

	for i, row := range d.trajectories {
		for j, candidate := range row {
			if !opts.WithReplacement && candidate.consumed {
				continue
			}
			if opts.Eligible != nil && !opts.Eligible(state, candidate.State) {
				continue
			}
			if opts.RequireActionMatch && candidate.Action != action {
				continue
			}
			dist := d.Distance(state, action, candidate, opts)
			if dist < match.Distance {
				best = candidate
				match.Distance = dist
				match.Trajectory = i
				match.Step = j
			}
		}
	}
	if best == nil {
		return Match{}, ErrExhausted
	}

	result := best.Next
	if opts.BiasCorrection && best.Action != action && best.OffPolicyNext != nil {
		result = best.OffPolicyNext
	}
	match.Result = clone(result)
	match.Result[DistanceField] = match.Distance
	best.consumed = true
	return match, nil
}

func sumDimensions(dims []Dimension, a, b ensemble.Event) float64 {
	total := 0.0
	for _, dim := range dims {
		if dim.Scale == 0 {
			continue
		}
		va, _ := a.Float(dim.Field)
		vb, _ := b.Float(dim.Field)
		total += math.Abs(va-vb) / dim.Scale
	}
	return total
}

func clone(e ensemble.Event) ensemble.Event {
	out := make(ensemble.Event, len(e)+1)
	for k, v := range e {
		out[k] = v
	}
	return out
}
