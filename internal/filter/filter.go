package filter

import (
	"errors"
	"fmt"
	"math"

	"mdpvis/internal/ensemble"
)

// ErrInvalidRange is returned for bounds that cannot describe a range
// (NaN or infinite) or for a negative anchor time.
var ErrInvalidRange = errors.New("invalid filter range")

// Key identifies a filter. At most one filter exists per key.
type Key struct {
	Variable   string `json:"variable"`
	AnchorTime int    `json:"anchorTime"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%d", k.Variable, k.AnchorTime)
}

// Filter keeps trajectories whose value of Variable at AnchorTime lies in
// [Lower, Upper].
type Filter struct {
	Variable   string  `json:"variable"`
	AnchorTime int     `json:"anchorTime"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
}

// Key returns the filter's identity.
func (f Filter) Key() Key {
	return Key{Variable: f.Variable, AnchorTime: f.AnchorTime}
}

// Matches reports whether the trajectory passes this filter. Trajectories
// that end at or before the anchor time are excluded, as are trajectories
// with no numeric value for the variable at that step.
func (f Filter) Matches(t ensemble.Trajectory) bool {
	if len(t) <= f.AnchorTime {
		return false
	}
	v, ok := t[f.AnchorTime].Float(f.Variable)
	if !ok {
		return false
	}
	return v >= f.Lower && v <= f.Upper
}

func validate(anchorTime int, lower, upper float64) error {
	if anchorTime < 0 {
		return fmt.Errorf("%w: negative anchor time %d", ErrInvalidRange, anchorTime)
	}
	for _, b := range []float64{lower, upper} {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return fmt.Errorf("%w: bound %v", ErrInvalidRange, b)
		}
	}
	return nil
}
