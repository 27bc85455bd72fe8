package utils

import "math"

// NormalizeAngle maps any real angle into (-π, π].
func NormalizeAngle(theta float64) float64 {
	r := math.Mod(theta, 2*math.Pi)
	if r <= -math.Pi {
		r += 2 * math.Pi
	} else if r > math.Pi {
		r -= 2 * math.Pi
	}
	return r
}

// AngleDiff returns the signed shortest rotation taking from to to, in (-π, π].
func AngleDiff(from, to float64) float64 {
	return NormalizeAngle(to - from)
}
