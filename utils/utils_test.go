package utils

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, RadToDeg(math.Pi/2), test.ShouldAlmostEqual, 90.)
	test.That(t, RadToDeg(DegToRad(-37.5)), test.ShouldAlmostEqual, -37.5)
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(5, 0, 1), test.ShouldEqual, 1.)
	test.That(t, Clamp(-5, 0, 1), test.ShouldEqual, 0.)
	test.That(t, Clamp(0.25, 0, 1), test.ShouldEqual, 0.25)
	test.That(t, IsFinite(math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1)), test.ShouldBeFalse)
	test.That(t, IsFinite(3), test.ShouldBeTrue)
}

func TestForEachParallel(t *testing.T) {
	results := make([]int, 16)
	err := ForEachParallel(len(results), func(member int) error {
		results[member] = member * member
		return nil
	})
	test.That(t, err, test.ShouldBeNil)
	for i, r := range results {
		test.That(t, r, test.ShouldEqual, i*i)
	}

	var completed atomic.Int64
	err = ForEachParallel(4, func(member int) error {
		switch member {
		case 1:
			return errors.New("candidate rejected")
		case 2:
			panic("bad candidate")
		}
		completed.Inc()
		return nil
	})
	test.That(t, completed.Load(), test.ShouldEqual, int64(2))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, multierr.Errors(err), test.ShouldHaveLength, 2)
	test.That(t, err.Error(), test.ShouldContainSubstring, "candidate rejected")
	test.That(t, err.Error(), test.ShouldContainSubstring, "member 2 panicked: bad candidate")
}

func TestNormalizeAngle(t *testing.T) {
	for _, theta := range []float64{
		0, math.Pi, -math.Pi, 3 * math.Pi, -3 * math.Pi, 2 * math.Pi, 7.5, -7.5, 1e6, -1e6, 0.1, -0.1,
	} {
		n := NormalizeAngle(theta)
		test.That(t, n, test.ShouldBeGreaterThan, -math.Pi)
		test.That(t, n, test.ShouldBeLessThanOrEqualTo, math.Pi)
		test.That(t, NormalizeAngle(n), test.ShouldEqual, n)
		test.That(t, math.Cos(n), test.ShouldAlmostEqual, math.Cos(theta), 1e-6)
		test.That(t, math.Sin(n), test.ShouldAlmostEqual, math.Sin(theta), 1e-6)
	}
	test.That(t, NormalizeAngle(-math.Pi), test.ShouldEqual, math.Pi)
	test.That(t, AngleDiff(math.Pi-0.1, -math.Pi+0.1), test.ShouldAlmostEqual, 0.2)
}
