package filter

import (
	"slices"

	"mdpvis/internal/ensemble"
)

// Op describes what a mutation did to the set.
type Op string

const (
	Added     Op = "added"
	Replaced  Op = "replaced"
	Removed   Op = "removed"
	Unchanged Op = "unchanged"
)

// Change reports the effect of AddOrReplace. Normalized is set when the
// caller passed lower > upper and the bounds were swapped.
type Change struct {
	Op         Op     `json:"op"`
	Key        Key    `json:"key"`
	Normalized bool   `json:"normalized,omitempty"`
	Filter     Filter `json:"filter"`
}

// Set is the ordered collection of active range filters. Its conjunction
// defines the active trajectories. Not safe for concurrent use.
type Set struct {
	filters []Filter
}

// NewSet creates an empty filter set.
func NewSet() *Set {
	return &Set{}
}

// AddOrReplace upserts the filter for (variable, anchorTime). A degenerate
// range (lower == upper) removes the filter instead of storing it.
func (s *Set) AddOrReplace(variable string, anchorTime int, lower, upper float64) (Change, error) {
	key := Key{Variable: variable, AnchorTime: anchorTime}
	if err := validate(anchorTime, lower, upper); err != nil {
		return Change{Op: Unchanged, Key: key}, err
	}

	if lower == upper {
		op := Unchanged
		if s.Remove(variable, anchorTime) {
			op = Removed
		}
		return Change{Op: op, Key: key}, nil
	}

	change := Change{Key: key}
	if lower > upper {
		lower, upper = upper, lower
		change.Normalized = true
	}
	f := Filter{Variable: variable, AnchorTime: anchorTime, Lower: lower, Upper: upper}
	change.Filter = f

	if i := s.index(key); i >= 0 {
		if s.filters[i] == f {
			change.Op = Unchanged
		} else {
			s.filters[i] = f
			change.Op = Replaced
		}
		return change, nil
	}

	s.filters = append(s.filters, f)
	change.Op = Added
	return change, nil
}

// Remove deletes the filter for (variable, anchorTime). Removing an absent
// filter is a no-op; the return value reports whether anything was removed.
func (s *Set) Remove(variable string, anchorTime int) bool {
	i := s.index(Key{Variable: variable, AnchorTime: anchorTime})
	if i < 0 {
		return false
	}
	s.filters = slices.Delete(s.filters, i, i+1)
	return true
}

// RemoveAll clears every filter.
func (s *Set) RemoveAll() {
	s.filters = nil
}

// Len returns the number of active filters.
func (s *Set) Len() int {
	return len(s.filters)
}

// Filters returns a copy of the active filters in insertion order.
func (s *Set) Filters() []Filter {
	return slices.Clone(s.filters)
}

// Get returns the filter stored under key.
func (s *Set) Get(key Key) (Filter, bool) {
	if i := s.index(key); i >= 0 {
		return s.filters[i], true
	}
	return Filter{}, false
}

// Matches reports whether the trajectory satisfies every filter.
func (s *Set) Matches(t ensemble.Trajectory) bool {
	for _, f := range s.filters {
		if !f.Matches(t) {
			return false
		}
	}
	return true
}

// Apply returns the indices of the trajectories that match, in order.
func (s *Set) Apply(trajectories []ensemble.Trajectory) []int {
	active := make([]int, 0, len(trajectories))
	for i, t := range trajectories {
		if s.Matches(t) {
			active = append(active, i)
		}
	}
	return active
}

// Reanchor moves every filter to anchorTime, keeping its range. When two
// filters on the same variable collide, the later one wins.
func (s *Set) Reanchor(anchorTime int) error {
	if err := validate(anchorTime, 0, 0); err != nil {
		return err
	}
	moved := make([]Filter, 0, len(s.filters))
	for _, f := range s.filters {
		f.AnchorTime = anchorTime
		if i := slices.IndexFunc(moved, func(m Filter) bool { return m.Key() == f.Key() }); i >= 0 {
			moved = slices.Delete(moved, i, i+1)
		}
		moved = append(moved, f)
	}
	s.filters = moved
	return nil
}

// Equal reports whether two sets hold the same filters in the same order.
func (s *Set) Equal(other *Set) bool {
	return slices.Equal(s.filters, other.filters)
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	return &Set{filters: slices.Clone(s.filters)}
}

func (s *Set) index(key Key) int {
	return slices.IndexFunc(s.filters, func(f Filter) bool { return f.Key() == key })
}
