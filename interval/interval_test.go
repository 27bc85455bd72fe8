package interval

import (
	"math"
	"testing"

	"go.viam.com/test"
)

var samples = []Set{
	Empty(),
	Real(),
	New(-1, 2),
	New(3, 3),
	FromIntervals(Interval{-5, -2}, Interval{0, 1}, Interval{4, math.Inf(1)}),
	FromIntervals(Interval{math.Inf(-1), -3}, Interval{-1, 0.5}),
	Angular(2, -2),
}

func TestFromIntervalsNormalizes(t *testing.T) {
	s := FromIntervals(Interval{5, 6}, Interval{0, 2}, Interval{1, 3}, Interval{3, 4}, Interval{9, 8})
	test.That(t, s.Intervals(), test.ShouldResemble, []Interval{{0, 4}, {5, 6}})
	test.That(t, s.Measure(), test.ShouldEqual, 5.)
	test.That(t, New(2, 1).IsEmpty(), test.ShouldBeTrue)
	test.That(t, Set{}.IsEmpty(), test.ShouldBeTrue)
	test.That(t, Real().IsReal(), test.ShouldBeTrue)
	test.That(t, New(0, 1).IsReal(), test.ShouldBeFalse)
}

func TestContains(t *testing.T) {
	s := FromIntervals(Interval{-5, -2}, Interval{0, 1})
	test.That(t, s.Contains(-5), test.ShouldBeTrue)
	test.That(t, s.Contains(-2), test.ShouldBeTrue)
	test.That(t, s.Contains(-1), test.ShouldBeFalse)
	test.That(t, s.Contains(0.5), test.ShouldBeTrue)
	test.That(t, s.Contains(1.0001), test.ShouldBeFalse)
	test.That(t, Empty().Contains(0), test.ShouldBeFalse)
	test.That(t, Real().Contains(1e300), test.ShouldBeTrue)
}

func TestIdentities(t *testing.T) {
	for _, a := range samples {
		test.That(t, Empty().Intersect(a).IsEmpty(), test.ShouldBeTrue)
		test.That(t, a.Intersect(Empty()).IsEmpty(), test.ShouldBeTrue)
		test.That(t, Real().Intersect(a).Equal(a, 0), test.ShouldBeTrue)
		test.That(t, a.Intersect(Real()).Equal(a, 0), test.ShouldBeTrue)
		test.That(t, a.Union(a.Complement()).IsReal(), test.ShouldBeTrue)
		test.That(t, a.Union(Empty()).Equal(a, 0), test.ShouldBeTrue)
		test.That(t, a.Subtract(a).Measure(), test.ShouldEqual, 0.)
	}
	test.That(t, Empty().Complement().IsReal(), test.ShouldBeTrue)
	test.That(t, Real().Complement().IsEmpty(), test.ShouldBeTrue)
	// The closure of the gaps around a point is everything.
	test.That(t, New(3, 3).Complement().IsReal(), test.ShouldBeTrue)
}

func TestIntersectCommutativeAssociative(t *testing.T) {
	for _, a := range samples {
		for _, b := range samples {
			test.That(t, a.Intersect(b).Equal(b.Intersect(a), 0), test.ShouldBeTrue)
			test.That(t, a.Union(b).Equal(b.Union(a), 0), test.ShouldBeTrue)
			for _, c := range samples {
				left := a.Intersect(b).Intersect(c)
				right := a.Intersect(b.Intersect(c))
				test.That(t, left.Equal(right, 0), test.ShouldBeTrue)
			}
		}
	}
}

func TestIntersect(t *testing.T) {
	a := FromIntervals(Interval{0, 2}, Interval{4, 6}, Interval{8, 10})
	b := FromIntervals(Interval{1, 5}, Interval{6, 9})
	test.That(t, a.Intersect(b).Intervals(), test.ShouldResemble, []Interval{{1, 2}, {4, 5}, {6, 6}, {8, 9}})

	test.That(t, New(0, 1).Intersect(New(2, 3)).IsEmpty(), test.ShouldBeTrue)
}

func TestComplementAndSubtract(t *testing.T) {
	s := FromIntervals(Interval{0, 1}, Interval{2, 3})
	test.That(t, s.Complement().Intervals(), test.ShouldResemble, []Interval{
		{math.Inf(-1), 0}, {1, 2}, {3, math.Inf(1)},
	})
	test.That(t, s.Complement().Complement().Equal(s, 0), test.ShouldBeTrue)

	diff := New(-10, 10).Subtract(s)
	test.That(t, diff.Intervals(), test.ShouldResemble, []Interval{{-10, 0}, {1, 2}, {3, 10}})
	test.That(t, diff.Measure(), test.ShouldEqual, 18.)
}

func TestNearest(t *testing.T) {
	s := FromIntervals(Interval{0, 1}, Interval{5, 6})
	for _, tc := range []struct {
		x, want float64
	}{
		{0.5, 0.5},
		{-3, 0},
		{2, 1},
		{4.5, 5},
		{3, 1},
		{100, 6},
	} {
		got, ok := s.Nearest(tc.x)
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, tc.want)
	}
	_, ok := Empty().Nearest(1)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestAngular(t *testing.T) {
	inner := Angular(-1, 1)
	test.That(t, inner.Intervals(), test.ShouldResemble, []Interval{{-1, 1}})

	outer := Angular(2, -2)
	test.That(t, outer.Intervals(), test.ShouldResemble, []Interval{{-math.Pi, -2}, {2, math.Pi}})
	test.That(t, WrapsAround(outer), test.ShouldBeTrue)
	test.That(t, WrapsAround(inner), test.ShouldBeFalse)
	test.That(t, outer.Contains(math.Pi), test.ShouldBeTrue)
	test.That(t, outer.Contains(0), test.ShouldBeFalse)

	// Bounds given outside (-π, π] are normalized first.
	shifted := Angular(-1+2*math.Pi, 1+2*math.Pi)
	test.That(t, shifted.Equal(inner, 1e-12), test.ShouldBeTrue)

	test.That(t, Angular(-4, 4).Equal(Circle(), 0), test.ShouldBeTrue)
	test.That(t, Angular(-math.Pi, 0).Intervals(), test.ShouldResemble, []Interval{{-math.Pi, 0}})

	// Wrapped and convex constraints intersect on the circle.
	both := outer.Intersect(Angular(1, 2.5))
	test.That(t, both.Intervals(), test.ShouldResemble, []Interval{{2, 2.5}})
	test.That(t, outer.Union(outer.Complement()).IsReal(), test.ShouldBeTrue)
}
