package electriccar

import (
	"fmt"
	"math/rand"

	"mdpvis/internal/ensemble"
)

// Policy maps a state to an action: 1 charges, 0 drives on.
type Policy func(state ensemble.Event) int

// newPolicy returns policy id. Stochastic policies draw from their own
// stream seeded from the trajectory seed.
func newPolicy(id int, seed int64) (Policy, error) {
	rng := rand.New(rand.NewSource(seed ^ policySeedSalt))
	switch id {
	case 0:
		return func(s ensemble.Event) int {
			if rng.Float64() > remainingShare(s) {
				return 0
			}
			return 1
		}, nil
	case 1:
		return func(s ensemble.Event) int {
			if rng.Float64() > remainingShare(s) {
				return 1
			}
			return 0
		}, nil
	case 2:
		return func(s ensemble.Event) int {
			return threshold(s, FieldCharge, 1, 0)
		}, nil
	case 3:
		return func(s ensemble.Event) int {
			return threshold(s, FieldCharge, 0, 1)
		}, nil
	case 4:
		return func(s ensemble.Event) int {
			if v, _ := s.Float(ExogenousField(1)); v > 0.5 {
				return 1
			}
			return 0
		}, nil
	case 5:
		return func(s ensemble.Event) int {
			if v, _ := s.Float(ExogenousField(1)); v > 0.5 {
				return 0
			}
			return 1
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown policy %d", ErrInvalidQuery, id)
	}
}

func remainingShare(s ensemble.Event) float64 {
	d, _ := s.Float(FieldDistanceRemaining)
	return d / distanceAcrossContinent
}

// threshold returns below when field < 0.5, otherwise above.
func threshold(s ensemble.Event, field string, below, above int) int {
	if v, _ := s.Float(field); v < 0.5 {
		return below
	}
	return above
}
