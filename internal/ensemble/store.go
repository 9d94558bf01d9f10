package ensemble

import (
	"slices"

	"github.com/rs/zerolog/log"
)

// Store holds the primary (displayed) ensemble and the optional secondary
// (comparison) ensemble. It never mutates trajectory contents.
type Store struct {
	primary   *Ensemble
	secondary *Ensemble
	denyList  map[string]bool
}

// NewStore creates an empty store. Fields named in denyList are display-only
// and never reported as variables.
func NewStore(denyList []string) *Store {
	deny := make(map[string]bool, len(denyList))
	for _, name := range denyList {
		deny[name] = true
	}
	return &Store{denyList: deny}
}

// Primary returns the currently displayed ensemble, or nil.
func (s *Store) Primary() *Ensemble {
	return s.primary
}

// Secondary returns the comparison ensemble, or nil.
func (s *Store) Secondary() *Ensemble {
	return s.secondary
}

// ReplacePrimary swaps in a new primary ensemble wholesale.
func (s *Store) ReplacePrimary(e *Ensemble) {
	s.primary = e
	if e != nil {
		log.Debug().Str("ensemble", e.ID).Int("trajectories", e.Len()).Msg("Primary ensemble replaced")
	}
}

// SetSecondary assigns the comparison ensemble.
func (s *Store) SetSecondary(e *Ensemble) {
	s.secondary = e
}

// ClearSecondary drops the comparison ensemble.
func (s *Store) ClearSecondary() {
	s.secondary = nil
}

// MaxLength returns the longest trajectory length in the ensemble.
func (s *Store) MaxLength(e *Ensemble) int {
	if e == nil {
		return 0
	}
	return MaxLength(e.Trajectories)
}

// VariableNames returns the numeric variables of the ensemble, read from the
// first recorded event, minus the deny list. Names are sorted.
func (s *Store) VariableNames(e *Ensemble) []string {
	if e.Empty() {
		return nil
	}
	first, ok := FirstEvent(e.Trajectories)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(first))
	for name := range first {
		if s.denyList[name] {
			continue
		}
		if _, ok := first.Float(name); !ok {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasVariable reports whether name is one of the ensemble's numeric variables.
func (s *Store) HasVariable(e *Ensemble, name string) bool {
	return slices.Contains(s.VariableNames(e), name)
}

// MaxLength returns the longest trajectory length in the slice.
func MaxLength(trajectories []Trajectory) int {
	longest := 0
	for _, t := range trajectories {
		if len(t) > longest {
			longest = len(t)
		}
	}
	return longest
}
