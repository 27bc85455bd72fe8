package control

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/armkin/components/arm"
	"go.viam.com/armkin/components/arm/sevenaxis"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/motionplan/ik"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
)

func newTestLoop(t *testing.T, clk clock.Clock) (*Loop, *arm.Arm) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	model, err := sevenaxis.MakeModel("")
	test.That(t, err, test.ShouldBeNil)
	a, err := arm.NewArm(model, arm.Config{SolverOptions: ik.DefaultOptions()}, logger)
	test.That(t, err, test.ShouldBeNil)
	l, err := NewLoop(a, Config{}, clk, logger)
	test.That(t, err, test.ShouldBeNil)
	return l, a
}

func TestNewLoop(t *testing.T) {
	_, err := NewLoop(nil, Config{}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	l, a := newTestLoop(t, nil)
	test.That(t, l.cfg.Period, test.ShouldEqual, DefaultPeriod)
	test.That(t, l.cfg.DriveTolerance, test.ShouldEqual, DefaultDriveTolerance)

	_, err = NewLoop(a, Config{Period: -time.Second}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTickJointTarget(t *testing.T) {
	ctx := context.Background()
	l, a := newTestLoop(t, clock.NewMock())
	want := referenceframe.FloatsToInputs([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7})
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return JointTarget(want), nil
	}))
	var seen []*arm.Snapshot
	l.AddBroadcaster(BroadcasterFunc(func(ctx context.Context, snap *arm.Snapshot) error {
		seen = append(seen, snap)
		return nil
	}))

	l.Tick(ctx)
	got, err := a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, want)
	test.That(t, seen, test.ShouldHaveLength, 1)
	test.That(t, seen[0].Joints, test.ShouldResemble, want)
	test.That(t, l.Stats().Ticks, test.ShouldEqual, 1)
	test.That(t, l.Stats().Errors, test.ShouldEqual, 0)
}

func TestTickPoseTarget(t *testing.T) {
	ctx := context.Background()
	l, a := newTestLoop(t, clock.NewMock())
	goal := spatialmath.NewPose(r3.Vector{X: 20, Z: 713.2}, spatialmath.NewZeroRotation())
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return PoseTarget(goal, nil), nil
	}))

	l.Tick(ctx)
	end, err := a.EndPosition(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, end.Point.Distance(goal.Point), test.ShouldBeLessThan, 1)
	test.That(t, l.Stats().DroppedFrames, test.ShouldEqual, 0)
}

func TestTickDropsUnreachableFrames(t *testing.T) {
	ctx := context.Background()
	l, a := newTestLoop(t, clock.NewMock())
	far := spatialmath.NewPose(r3.Vector{X: 2000}, spatialmath.NewZeroRotation())
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return PoseTarget(far, nil), nil
	}))

	l.Tick(ctx)
	l.Tick(ctx)
	stats := l.Stats()
	test.That(t, stats.Ticks, test.ShouldEqual, 2)
	test.That(t, stats.DroppedFrames, test.ShouldEqual, 2)
	test.That(t, stats.Errors, test.ShouldEqual, 0)
	got, err := a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, referenceframe.InputsToFloats(got), test.ShouldResemble, make([]float64, 7))
}

func TestTickRecoversPanics(t *testing.T) {
	ctx := context.Background()
	logger, logs := logging.NewObservedTestLogger(t)
	l, a := newTestLoop(t, clock.NewMock())
	l.logger = logger

	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		panic("animation exploded")
	}))
	broadcasts := 0
	l.AddBroadcaster(BroadcasterFunc(func(ctx context.Context, snap *arm.Snapshot) error {
		broadcasts++
		return nil
	}))
	l.AddBroadcaster(BroadcasterFunc(func(ctx context.Context, snap *arm.Snapshot) error {
		return errors.New("socket closed")
	}))

	l.Tick(ctx)
	stats := l.Stats()
	test.That(t, stats.RecoveredPanics, test.ShouldEqual, 1)
	test.That(t, stats.Errors, test.ShouldEqual, 1)
	test.That(t, stats.Ticks, test.ShouldEqual, 1)
	test.That(t, broadcasts, test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("control loop step panicked").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("control loop step failed").Len(), test.ShouldEqual, 1)

	// The loop keeps working once the animation behaves.
	want := referenceframe.FloatsToInputs([]float64{0, 0.5, 0, 0, 0, 0, 0})
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return JointTarget(want), nil
	}))
	l.Tick(ctx)
	got, err := a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, want)
}

func TestTickRejectsBadTargets(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLoop(t, clock.NewMock())
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return &Target{}, nil
	}))
	l.Tick(ctx)
	test.That(t, l.Stats().Errors, test.ShouldEqual, 1)

	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		return JointTarget(referenceframe.FloatsToInputs([]float64{3, 0, 0, 0, 0, 0, 0})), nil
	}))
	l.Tick(ctx)
	test.That(t, l.Stats().Errors, test.ShouldEqual, 2)
}

func TestStartStop(t *testing.T) {
	mock := clock.NewMock()
	l, _ := newTestLoop(t, mock)
	var calls []time.Time
	done := make(chan struct{}, 8)
	l.SetAnimation(AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*Target, error) {
		calls = append(calls, now)
		done <- struct{}{}
		return nil, nil
	}))

	test.That(t, l.Start(), test.ShouldBeNil)
	test.That(t, l.Start(), test.ShouldNotBeNil)

	mock.Add(DefaultPeriod)
	<-done
	mock.Add(DefaultPeriod)
	<-done
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, l.Stats().Ticks, test.ShouldEqual, 2)
	})
	l.Stop()
	l.Stop()

	test.That(t, calls, test.ShouldHaveLength, 2)
	test.That(t, calls[1].Sub(calls[0]), test.ShouldEqual, DefaultPeriod)

	mock.Add(10 * DefaultPeriod)
	test.That(t, l.Stats().Ticks, test.ShouldEqual, 2)
}
