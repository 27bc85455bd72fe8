// Package control runs the periodic loop that drives an arm: every tick it asks the animation
// for a target, moves the arm toward it and broadcasts the resulting state.
package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/armkin/components/arm"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/motionplan/ik"
)

const (
	// DefaultPeriod is the tick period, about 30Hz.
	DefaultPeriod = 33 * time.Millisecond
	// DefaultDriveTolerance is how close a driven joint must be to its target to count as
	// settled, in radians.
	DefaultDriveTolerance = 1e-3
)

// Config holds the loop settings.
type Config struct {
	Period         time.Duration `json:"period"`
	DriveTolerance float64       `json:"drive_tolerance"`
}

// Loop holds the loop state.
type Loop struct {
	cfg    Config
	arm    *arm.Arm
	clock  clock.Clock
	logger logging.Logger
	stats  stats

	mu           sync.Mutex
	animation    Animation
	broadcasters []Broadcaster
	pending      *Target

	activeBackgroundWorkers sync.WaitGroup
	cancel                  context.CancelFunc
	running                 bool
}

// NewLoop creates a loop driving a. A nil clock means the wall clock.
func NewLoop(a *arm.Arm, cfg Config, clk clock.Clock, logger logging.Logger) (*Loop, error) {
	if a == nil {
		return nil, errors.New("control loop needs an arm")
	}
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Period < 0 {
		return nil, errors.Errorf("loop period must be positive, got %v", cfg.Period)
	}
	if cfg.DriveTolerance <= 0 {
		cfg.DriveTolerance = DefaultDriveTolerance
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{cfg: cfg, arm: a, clock: clk, logger: logger}, nil
}

// SetAnimation replaces the animation; nil stops animating.
func (l *Loop) SetAnimation(a Animation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.animation = a
	l.pending = nil
}

// AddBroadcaster adds a broadcaster called at the end of every tick.
func (l *Loop) AddBroadcaster(b Broadcaster) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.broadcasters = append(l.broadcasters, b)
}

// Start runs Tick every period on a background goroutine until Stop.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return errors.New("control loop already running")
	}
	l.logger.Infof("running loop every %v", l.cfg.Period)

	ctx, cancel := context.WithCancel(context.Background())
	ticker := l.clock.Ticker(l.cfg.Period)
	l.cancel = cancel
	l.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.Tick(ctx)
			}
		}
	}, l.activeBackgroundWorkers.Done)
	l.running = true
	return nil
}

// Stop stops the loop and waits for the tick in progress to finish.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.logger.Debug("closing loop")
	l.cancel()
	l.running = false
	l.mu.Unlock()
	l.activeBackgroundWorkers.Wait()
}

// Tick runs update animation, update controller and broadcast once, in that order. A step
// that fails or panics is logged and the remaining steps still run.
func (l *Loop) Tick(ctx context.Context) {
	start := l.clock.Now()
	l.step("update animation", func() error { return l.updateAnimation(ctx, start) })
	l.step("update controller", func() error { return l.updateController(ctx) })
	l.step("broadcast", func() error { return l.broadcast(ctx) })
	l.stats.ticks.Inc()
	l.stats.lastTick.Store(l.clock.Since(start))
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	return l.stats.snapshot()
}

func (l *Loop) step(name string, f func() error) {
	defer func() {
		if r := recover(); r != nil {
			l.stats.recovered.Inc()
			l.logger.Errorw("control loop step panicked", "step", name, "panic", r)
		}
	}()
	if err := f(); err != nil {
		l.stats.errors.Inc()
		l.logger.Warnw("control loop step failed", "step", name, "error", err)
	}
}

func (l *Loop) updateAnimation(ctx context.Context, now time.Time) error {
	l.mu.Lock()
	animation := l.animation
	l.mu.Unlock()
	if animation == nil {
		return nil
	}
	snap, err := l.arm.Snapshot(ctx)
	if err != nil {
		return err
	}
	target, err := animation.Next(ctx, now, snap)
	if err != nil {
		return errors.Wrap(err, "animation")
	}
	if target != nil {
		if err := target.Validate(); err != nil {
			return err
		}
	}
	l.mu.Lock()
	l.pending = target
	l.mu.Unlock()
	return nil
}

func (l *Loop) updateController(ctx context.Context) error {
	l.mu.Lock()
	target := l.pending
	l.pending = nil
	l.mu.Unlock()

	var err error
	if target != nil {
		err = l.reach(ctx, target)
	}
	l.arm.UpdateDriven(l.cfg.DriveTolerance)
	return err
}

// reach commands the arm toward target. A pose without a solution drops the frame.
func (l *Loop) reach(ctx context.Context, target *Target) error {
	if target.Pose == nil {
		return l.arm.MoveToJointPositions(ctx, target.Joints)
	}
	solveCtx, cancel := l.clock.WithTimeout(ctx, l.cfg.Period)
	defer cancel()
	sol, err := l.arm.InverseSolve(solveCtx, *target.Pose, target.ArmAngle)
	if errors.Is(err, ik.ErrNoSolution) {
		l.stats.dropped.Inc()
		l.logger.Debugw("dropping frame", "pose", *target.Pose, "reason", err)
		return nil
	}
	if err != nil {
		return err
	}
	return l.arm.MoveToJointPositions(ctx, sol.Configuration)
}

func (l *Loop) broadcast(ctx context.Context) error {
	l.mu.Lock()
	broadcasters := append([]Broadcaster(nil), l.broadcasters...)
	l.mu.Unlock()
	if len(broadcasters) == 0 {
		return nil
	}
	snap, err := l.arm.Snapshot(ctx)
	if err != nil {
		return err
	}
	var errs error
	for _, b := range broadcasters {
		errs = multierr.Append(errs, b.Broadcast(ctx, snap))
	}
	return errs
}
