// Package interval implements closed real intervals, finite unions of them and the set
// algebra used to combine per-joint angle constraints. Bounds may be infinite, so the real
// line itself is a Set.
package interval

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Interval is the closed interval [Lo, Hi]. Lo may be -Inf and Hi may be +Inf.
type Interval struct {
	Lo float64
	Hi float64
}

// IsEmpty is true when the interval holds no points.
func (i Interval) IsEmpty() bool {
	return !(i.Lo <= i.Hi)
}

// Contains reports whether x lies in the interval.
func (i Interval) Contains(x float64) bool {
	return i.Lo <= x && x <= i.Hi
}

// Width is Hi - Lo, or 0 for an empty interval.
func (i Interval) Width() float64 {
	if i.IsEmpty() {
		return 0
	}
	return i.Hi - i.Lo
}

// Intersect returns the overlap of two intervals, possibly empty.
func (i Interval) Intersect(o Interval) Interval {
	return Interval{math.Max(i.Lo, o.Lo), math.Min(i.Hi, o.Hi)}
}

func (i Interval) String() string {
	return fmt.Sprintf("[%g, %g]", i.Lo, i.Hi)
}

// Set is a finite union of closed intervals, kept sorted and pairwise disjoint. The zero
// value is the empty set.
type Set struct {
	intervals []Interval
}

// Empty returns the empty set.
func Empty() Set {
	return Set{}
}

// Real returns the whole real line.
func Real() Set {
	return Set{intervals: []Interval{{math.Inf(-1), math.Inf(1)}}}
}

// New returns the set holding the single interval [lo, hi], or the empty set if lo > hi.
func New(lo, hi float64) Set {
	return FromIntervals(Interval{lo, hi})
}

// FromIntervals builds a set from intervals in any order. Empty intervals are dropped and
// overlapping or touching intervals are merged.
func FromIntervals(ivs ...Interval) Set {
	kept := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			kept = append(kept, iv)
		}
	}
	if len(kept) == 0 {
		return Set{}
	}
	sort.Slice(kept, func(a, b int) bool { return kept[a].Lo < kept[b].Lo })

	merged := kept[:1]
	for _, iv := range kept[1:] {
		last := &merged[len(merged)-1]
		if iv.Lo <= last.Hi {
			last.Hi = math.Max(last.Hi, iv.Hi)
			continue
		}
		merged = append(merged, iv)
	}
	return Set{intervals: merged}
}

// Intervals returns a copy of the disjoint intervals in ascending order.
func (s Set) Intervals() []Interval {
	out := make([]Interval, len(s.intervals))
	copy(out, s.intervals)
	return out
}

// IsEmpty is true for the empty set.
func (s Set) IsEmpty() bool {
	return len(s.intervals) == 0
}

// IsReal is true when the set is the whole real line.
func (s Set) IsReal() bool {
	return len(s.intervals) == 1 && math.IsInf(s.intervals[0].Lo, -1) && math.IsInf(s.intervals[0].Hi, 1)
}

// Contains reports whether x lies in any interval of the set.
func (s Set) Contains(x float64) bool {
	i := sort.Search(len(s.intervals), func(i int) bool { return s.intervals[i].Hi >= x })
	return i < len(s.intervals) && s.intervals[i].Contains(x)
}

// Measure is the total length of the set.
func (s Set) Measure() float64 {
	var total float64
	for _, iv := range s.intervals {
		total += iv.Width()
	}
	return total
}

// Min returns the smallest point of the set.
func (s Set) Min() (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.intervals[0].Lo, true
}

// Max returns the largest point of the set.
func (s Set) Max() (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	return s.intervals[len(s.intervals)-1].Hi, true
}

// Intersect returns the points in both sets.
func (s Set) Intersect(o Set) Set {
	var out []Interval
	i, j := 0, 0
	for i < len(s.intervals) && j < len(o.intervals) {
		a, b := s.intervals[i], o.intervals[j]
		if iv := a.Intersect(b); !iv.IsEmpty() {
			out = append(out, iv)
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return Set{intervals: out}
}

// Union returns the points in either set.
func (s Set) Union(o Set) Set {
	all := make([]Interval, 0, len(s.intervals)+len(o.intervals))
	all = append(all, s.intervals...)
	all = append(all, o.intervals...)
	return FromIntervals(all...)
}

// Complement returns the closure of the gaps between the intervals of s. Boundary points are
// shared with s, so s ∪ s.Complement() is always the real line.
func (s Set) Complement() Set {
	if s.IsEmpty() {
		return Real()
	}
	var out []Interval
	lo := math.Inf(-1)
	for _, iv := range s.intervals {
		if lo < iv.Lo {
			out = append(out, Interval{lo, iv.Lo})
		}
		lo = iv.Hi
	}
	if lo < math.Inf(1) {
		out = append(out, Interval{lo, math.Inf(1)})
	}
	return FromIntervals(out...)
}

// Subtract removes o from s. Since every set is closed, boundary points of o that lie in s
// remain.
func (s Set) Subtract(o Set) Set {
	return s.Intersect(o.Complement())
}

// Nearest returns the point of the set closest to x, and false if the set is empty. Ties go
// to the lower point.
func (s Set) Nearest(x float64) (float64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	best, bestDist := 0., math.Inf(1)
	for _, iv := range s.intervals {
		p := math.Max(iv.Lo, math.Min(x, iv.Hi))
		if d := math.Abs(p - x); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best, true
}

// Equal reports whether both sets hold the same intervals, with every bound within tol.
func (s Set) Equal(o Set, tol float64) bool {
	if len(s.intervals) != len(o.intervals) {
		return false
	}
	for i, a := range s.intervals {
		b := o.intervals[i]
		if !boundEqual(a.Lo, b.Lo, tol) || !boundEqual(a.Hi, b.Hi, tol) {
			return false
		}
	}
	return true
}

func boundEqual(a, b, tol float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= tol
}

func (s Set) String() string {
	if s.IsEmpty() {
		return "∅"
	}
	parts := make([]string, 0, len(s.intervals))
	for _, iv := range s.intervals {
		parts = append(parts, iv.String())
	}
	return strings.Join(parts, " ∪ ")
}
