package ik

import (
	"math"

	"go.viam.com/armkin/interval"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/utils"
)

// armAngleSweep holds the closed form configuration at evenly spaced arm angles over (-π, π].
type armAngleSweep struct {
	psis    []float64
	configs [][]float64
}

func (ik *AnalyticalIK) sweep(pose *srsPose) *armAngleSweep {
	n := ik.opts.ArmAngleSamples
	s := &armAngleSweep{psis: make([]float64, n), configs: make([][]float64, n)}
	for k := range s.psis {
		psi := -math.Pi + 2*math.Pi*float64(k+1)/float64(n)
		s.psis[k] = psi
		s.configs[k] = pose.anglesAt(psi)
	}
	return s
}

// admissible intersects, over every bounded joint, the arm angles at which that joint stays
// within its limit. Each joint contributes one interval per run of admissible samples.
func (s *armAngleSweep) admissible(limits []referenceframe.JointLimit) interval.Set {
	feasible := interval.Circle()
	for j, limit := range limits {
		if !limit.IsBounded() {
			continue
		}
		var runs []interval.Interval
		start := -1
		for k := range s.psis {
			ok := !limit.IsOutOfBounds(s.configs[k][j])
			if ok && start < 0 {
				start = k
			}
			if start >= 0 && (!ok || k == len(s.psis)-1) {
				end := k
				if !ok {
					end = k - 1
				}
				runs = append(runs, interval.Interval{Lo: s.psis[start], Hi: s.psis[end]})
				start = -1
			}
		}
		feasible = feasible.Intersect(interval.FromIntervals(runs...))
		if feasible.IsEmpty() {
			break
		}
	}
	return feasible
}

// choose returns the preferred arm angle, or the admissible one nearest to it, when that
// configuration is within limits. Otherwise it returns the sampled arm angle whose tightest
// joint is furthest from its limit, ties going to the smaller |ψ|.
func (s *armAngleSweep) choose(pose *srsPose, limits []referenceframe.JointLimit, preferred *float64) (float64, error) {
	admissible := s.admissible(limits)
	if admissible.IsEmpty() {
		return 0, newNoSolutionError("no admissible arm angle", 0, nil)
	}
	if preferred != nil {
		psi := nearestOnCircle(admissible, utils.NormalizeAngle(*preferred))
		if referenceframe.CheckLimits(referenceframe.FloatsToInputs(pose.anglesAt(psi)), limits) == nil {
			return psi, nil
		}
	}

	best, bestMargin := 0., math.Inf(-1)
	found := false
	for k, psi := range s.psis {
		if !admissible.Contains(psi) {
			continue
		}
		margin := math.Inf(1)
		for j, limit := range limits {
			margin = math.Min(margin, limit.Margin(s.configs[k][j]))
		}
		if margin < 0 {
			continue
		}
		if !found || margin > bestMargin || (margin == bestMargin && math.Abs(psi) < math.Abs(best)) {
			best, bestMargin, found = psi, margin, true
		}
	}
	if !found {
		return 0, newNoSolutionError("no admissible arm angle", 0, nil)
	}
	return best, nil
}

// nearestOnCircle is Set.Nearest measured around the circle, for sets within [-π, π].
func nearestOnCircle(s interval.Set, angle float64) float64 {
	best, bestDist := angle, math.Inf(1)
	for _, shift := range []float64{0, -2 * math.Pi, 2 * math.Pi} {
		p, ok := s.Nearest(angle + shift)
		if !ok {
			continue
		}
		if d := math.Abs(utils.AngleDiff(angle, p)); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}
