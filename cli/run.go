package cli

import (
	"context"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	"github.com/urfave/cli/v2"

	"go.viam.com/armkin/components/arm"
	"go.viam.com/armkin/control"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
	"go.viam.com/armkin/utils"
)

// circlePeriod is how long one lap of the demo circle takes.
const circlePeriod = 8 * time.Second

// runStart is a comfortable configuration away from the straight up singularity, in degrees.
var runStart = []float64{0, 30, 0, 60, 0, 30, 0}

// RunAction drives the arm around a horizontal circle with the control loop.
func RunAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := cfg.NewArm(logger)
	if err != nil {
		return err
	}
	if len(a.Limits()) == len(runStart) {
		if err := a.MoveToJointPositions(c.Context, referenceframe.InputsFromDegrees(runStart)); err != nil {
			return err
		}
	}
	start, err := a.EndPosition(c.Context)
	if err != nil {
		return err
	}

	loop, err := control.NewLoop(a, cfg.LoopConfig(), nil, logger.Sublogger("loop"))
	if err != nil {
		return err
	}
	loop.SetAnimation(newCircleAnimation(start, c.Float64(runFlagRadius)))
	every := c.Int(runFlagEvery)
	ticks := 0
	loop.AddBroadcaster(control.BroadcasterFunc(func(ctx context.Context, snap *arm.Snapshot) error {
		ticks++
		if every > 0 && ticks%every == 0 {
			printf(c.App.Writer, "%s  joints %.1f", snap.End, referenceframe.InputsToDegrees(snap.Joints))
		}
		return nil
	}))

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration(runFlagDuration); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := loop.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	loop.Stop()

	s := loop.Stats()
	printf(c.App.Writer, "ticks %d, dropped frames %d, recovered panics %d, errors %d, last tick %v",
		s.Ticks, s.DroppedFrames, s.RecoveredPanics, s.Errors, s.LastTick)
	return nil
}

// newCircleAnimation traces a horizontal circle through start, keeping its orientation.
func newCircleAnimation(start spatialmath.Pose, radius float64) control.Animation {
	center := start.Point.Sub(r3.Vector{X: radius})
	var began time.Time
	return control.AnimationFunc(func(ctx context.Context, now time.Time, snap *arm.Snapshot) (*control.Target, error) {
		if began.IsZero() {
			began = now
		}
		phase := 2 * math.Pi * float64(now.Sub(began)) / float64(circlePeriod)
		s, c := math.Sincos(utils.NormalizeAngle(phase))
		p := center.Add(r3.Vector{X: radius * c, Y: radius * s})
		return control.PoseTarget(spatialmath.NewPose(p, start.Orientation), nil), nil
	})
}
