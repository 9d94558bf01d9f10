package ensemble

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one time step of a trajectory: variable name to recorded value.
// Values are usually numbers; display-only columns (image references, flags)
// may hold strings or booleans and are never treated as numeric.
type Event map[string]any

// Float returns the numeric value of a variable, if the event records one.
func (e Event) Float(name string) (float64, bool) {
	v, ok := e[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Trajectory is one simulated rollout: an ordered sequence of events.
type Trajectory []Event

// Len returns the number of events in the trajectory.
func (t Trajectory) Len() int {
	return len(t)
}

// FirstEvent returns the first event of the first non-empty trajectory.
// Variables are read from it.
func FirstEvent(trajectories []Trajectory) (Event, bool) {
	for _, t := range trajectories {
		if len(t) > 0 {
			return t[0], true
		}
	}
	return nil, false
}

// Ensemble is a named batch of trajectories produced by a single fetch.
type Ensemble struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Query        string       `json:"query,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	Trajectories []Trajectory `json:"-"`
}

// New creates an ensemble with a fresh time-ordered ID.
func New(name, query string, trajectories []Trajectory) *Ensemble {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Ensemble{
		ID:           id.String(),
		Name:         name,
		Query:        query,
		CreatedAt:    time.Now().UTC(),
		Trajectories: trajectories,
	}
}

// Len returns the number of trajectories.
func (e *Ensemble) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Trajectories)
}

// Empty reports whether the ensemble holds no trajectories.
func (e *Ensemble) Empty() bool {
	return e.Len() == 0
}
