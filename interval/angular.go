package interval

import (
	"math"

	"go.viam.com/armkin/utils"
)

// Circle is the set of all normalized angles, [-π, π].
func Circle() Set {
	return New(-math.Pi, math.Pi)
}

// Angular returns the normalized angles swept counterclockwise from lo to hi. Bounds are
// normalized first; when the normalized lower bound exceeds the upper one the arc wraps
// across ±π and the result is [-π, hi] ∪ [lo, π]. A sweep of a full turn or more is the
// whole circle.
func Angular(lo, hi float64) Set {
	if hi-lo >= 2*math.Pi {
		return Circle()
	}
	nlo, nhi := utils.NormalizeAngle(lo), utils.NormalizeAngle(hi)
	if nlo == math.Pi {
		nlo = -math.Pi
	}
	if nlo <= nhi {
		return New(nlo, nhi)
	}
	return FromIntervals(Interval{-math.Pi, nhi}, Interval{nlo, math.Pi})
}

// WrapsAround reports whether s touches both ends of [-π, π], meaning that as a set of angles
// it is one arc across the ±π seam.
func WrapsAround(s Set) bool {
	lo, ok := s.Min()
	if !ok {
		return false
	}
	hi, _ := s.Max()
	return lo <= -math.Pi && hi >= math.Pi && len(s.intervals) > 1
}
