// Package referenceframe holds joint-space types: joint inputs, per-joint angular limits and
// the arena of parent-linked frames used to report where each joint sits in the world.
package referenceframe

import (
	"fmt"
	"math"

	"go.viam.com/armkin/interval"
	"go.viam.com/armkin/utils"
)

// ClampEpsilon is how far inside a limit Clamp places an out of bounds angle, so that rounding
// in later arithmetic cannot push it back out.
const ClampEpsilon = 1e-6

// JointLimit is the admissible range of one revolute joint in normalized angle space
// (-π, π]. A limit is either unbounded, inner (lower ≤ angle ≤ upper) or outer, where the
// range wraps across ±π and admits [-π, upper] ∪ [lower, π]. The kind is decided once, from
// the normalized bounds, when the limit is created.
type JointLimit struct {
	bounded bool
	outer   bool
	lower   float64
	upper   float64
}

// NewUnboundedJointLimit returns a limit that admits every angle.
func NewUnboundedJointLimit() JointLimit {
	return JointLimit{}
}

// NewJointLimit returns the limit sweeping counterclockwise from lower to upper, in radians.
// A sweep of a full turn or more is unbounded.
func NewJointLimit(lower, upper float64) JointLimit {
	if upper-lower >= 2*math.Pi {
		return NewUnboundedJointLimit()
	}
	nl, nu := utils.NormalizeAngle(lower), utils.NormalizeAngle(upper)
	if nl == math.Pi && nu != math.Pi {
		nl = -math.Pi
	}
	return JointLimit{bounded: true, outer: nl > nu, lower: nl, upper: nu}
}

// NewFixedJointLimit returns a limit admitting a single angle, as used by virtual joints.
func NewFixedJointLimit(angle float64) JointLimit {
	a := utils.NormalizeAngle(angle)
	return JointLimit{bounded: true, lower: a, upper: a}
}

// NewJointLimitDegrees is NewJointLimit with bounds in degrees.
func NewJointLimitDegrees(lower, upper float64) JointLimit {
	return NewJointLimit(utils.DegToRad(lower), utils.DegToRad(upper))
}

// IsBounded is false for a limit that admits every angle.
func (l JointLimit) IsBounded() bool {
	return l.bounded
}

// IsOuter is true when the admissible range wraps across ±π.
func (l JointLimit) IsOuter() bool {
	return l.outer
}

// IsFixed is true when exactly one angle is admissible.
func (l JointLimit) IsFixed() bool {
	return l.bounded && l.lower == l.upper
}

// LowerBound is the normalized lower bound, or -π when unbounded.
func (l JointLimit) LowerBound() float64 {
	if !l.bounded {
		return -math.Pi
	}
	return l.lower
}

// UpperBound is the normalized upper bound, or π when unbounded.
func (l JointLimit) UpperBound() float64 {
	if !l.bounded {
		return math.Pi
	}
	return l.upper
}

// Width is the angular size of the admissible range.
func (l JointLimit) Width() float64 {
	switch {
	case !l.bounded:
		return 2 * math.Pi
	case l.outer:
		return 2*math.Pi - (l.lower - l.upper)
	default:
		return l.upper - l.lower
	}
}

// IsOutOfBounds reports whether angle, once normalized, lies outside the limit.
func (l JointLimit) IsOutOfBounds(angle float64) bool {
	if !l.bounded {
		return false
	}
	a := utils.NormalizeAngle(angle)
	if l.outer {
		return a > l.upper && a < l.lower
	}
	// -π and π are the same angle, but normalization only ever yields π.
	if a == math.Pi && l.lower == -math.Pi {
		return false
	}
	return a < l.lower || a > l.upper
}

// Clamp returns the normalized angle when it is admissible. Otherwise it returns whichever
// bound is nearer by circular distance, moved ClampEpsilon into the range. A fixed limit
// always returns its single angle.
func (l JointLimit) Clamp(angle float64) float64 {
	a := utils.NormalizeAngle(angle)
	if !l.IsOutOfBounds(a) {
		return a
	}
	if l.IsFixed() {
		return l.lower
	}
	nudge := math.Min(ClampEpsilon, l.Width()/2)
	toLower := math.Abs(utils.AngleDiff(a, l.lower))
	toUpper := math.Abs(utils.AngleDiff(a, l.upper))
	if toLower <= toUpper {
		return utils.NormalizeAngle(l.lower + nudge)
	}
	return utils.NormalizeAngle(l.upper - nudge)
}

// Margin is the circular distance from angle to the nearest bound: positive inside the
// range, negative outside and +Inf for an unbounded limit.
func (l JointLimit) Margin(angle float64) float64 {
	if !l.bounded {
		return math.Inf(1)
	}
	m := math.Min(
		math.Abs(utils.AngleDiff(angle, l.lower)),
		math.Abs(utils.AngleDiff(angle, l.upper)),
	)
	if l.IsOutOfBounds(angle) {
		return -m
	}
	return m
}

// Feasible returns the admissible range as a set over [-π, π].
func (l JointLimit) Feasible() interval.Set {
	switch {
	case !l.bounded:
		return interval.Circle()
	case l.outer:
		return interval.FromIntervals(
			interval.Interval{Lo: -math.Pi, Hi: l.upper},
			interval.Interval{Lo: l.lower, Hi: math.Pi},
		)
	default:
		return interval.New(l.lower, l.upper)
	}
}

func (l JointLimit) String() string {
	if !l.bounded {
		return "(unbounded)"
	}
	kind := "inner"
	if l.outer {
		kind = "outer"
	}
	return fmt.Sprintf("%s[%.5f, %.5f]", kind, l.lower, l.upper)
}
