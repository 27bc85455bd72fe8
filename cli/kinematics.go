package cli

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/motionplan/ik"
	"go.viam.com/armkin/referenceframe"
	"go.viam.com/armkin/spatialmath"
	"go.viam.com/armkin/utils"
)

// ForwardAction prints the end effector pose for the joint angles given as arguments.
func ForwardAction(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	degrees, err := parseFloats(c.Args().Slice())
	if err != nil {
		return err
	}
	if len(degrees) != model.Table.NumActuated() {
		return referenceframe.NewIncorrectDoFError(len(degrees), model.Table.NumActuated())
	}
	inputs := referenceframe.InputsFromDegrees(degrees)
	if err := referenceframe.CheckLimits(inputs, model.ActuatedLimits()); err != nil {
		printf(c.App.ErrWriter, "warning: %v", err)
	}
	pose, err := kinematics.ForwardInputs(model.Table, inputs)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", poseTable(pose))
	return nil
}

// InverseAction solves for the pose given by flags and prints the joint angles.
func InverseAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet(ikFlagSolver) {
		cfg.Solver.Name = c.String(ikFlagSolver)
	}
	a, err := cfg.NewArm(logger)
	if err != nil {
		return err
	}
	if c.IsSet(ikFlagSeed) {
		degrees, err := parseFloats(strings.Split(c.String(ikFlagSeed), ","))
		if err != nil {
			return errors.Wrap(err, ikFlagSeed)
		}
		if err := a.MoveToJointPositions(c.Context, referenceframe.InputsFromDegrees(degrees)); err != nil {
			return errors.Wrap(err, ikFlagSeed)
		}
	}

	goal := spatialmath.NewPose(
		r3.Vector{X: c.Float64(ikFlagX), Y: c.Float64(ikFlagY), Z: c.Float64(ikFlagZ)},
		spatialmath.NewRotationFromVector(r3.Vector{
			X: utils.DegToRad(c.Float64(ikFlagRX)),
			Y: utils.DegToRad(c.Float64(ikFlagRY)),
			Z: utils.DegToRad(c.Float64(ikFlagRZ)),
		}),
	)
	var armAngle *float64
	if c.IsSet(ikFlagArmAngle) {
		psi := utils.DegToRad(c.Float64(ikFlagArmAngle))
		armAngle = &psi
	}

	sol, err := a.InverseSolve(c.Context, goal, armAngle)
	if err != nil {
		return err
	}
	names := a.Model().JointNames()
	t := tableWriter()
	t.AppendHeader(table.Row{"#", "Joint", "Degrees"})
	for i, deg := range referenceframe.InputsToDegrees(sol.Configuration) {
		t.AppendRow(table.Row{i, names[i], fmt.Sprintf("%.4f", deg)})
	}
	printf(c.App.Writer, "%s", t.Render())
	printf(c.App.Writer, "reached %v in %v (%d generations, arm angle %.2f°)",
		sol.Pose, sol.Elapsed, sol.Generations, utils.RadToDeg(sol.ArmAngle))
	return nil
}

type benchResult struct {
	latency time.Duration
	solved  bool
}

// BenchAction solves random reachable poses from nearby starting configurations and prints
// latency statistics over the successful solves.
func BenchAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	a, err := cfg.NewArm(logger)
	if err != nil {
		return err
	}
	count := c.Int(benchFlagCount)
	if count < 1 {
		return errors.Errorf("%s must be at least 1", benchFlagCount)
	}
	spread := utils.DegToRad(c.Float64(benchFlagSpread))
	limits := a.Limits()
	dh := a.Model().Table
	//nolint:gosec
	rng := rand.New(rand.NewSource(c.Int64(benchFlagRandomSeed)))

	results := lo.Times(count, func(int) benchResult {
		target := make([]referenceframe.Input, len(limits))
		start := make([]referenceframe.Input, len(limits))
		for j, l := range limits {
			lower, upper := l.LowerBound(), l.UpperBound()
			mid, half := (lower+upper)/2, 0.8*(upper-lower)/2
			target[j].Value = mid + (2*rng.Float64()-1)*half
			start[j].Value = l.Clamp(target[j].Value + (2*rng.Float64()-1)*spread)
		}
		goal, err := kinematics.ForwardInputs(dh, target)
		if err != nil {
			return benchResult{}
		}
		if err := a.MoveToJointPositions(c.Context, start); err != nil {
			return benchResult{}
		}
		began := time.Now()
		_, err = a.InverseSolve(c.Context, goal, nil)
		return benchResult{latency: time.Since(began), solved: err == nil}
	})

	solved := lo.Filter(results, func(r benchResult, _ int) bool { return r.solved })
	printf(c.App.Writer, "solver %q solved %d of %d (%.1f%%)",
		solverName(cfg.Solver.Name), len(solved), count, 100*float64(len(solved))/float64(count))
	if len(solved) == 0 {
		return nil
	}
	millis := stats.Float64Data(lo.Map(solved, func(r benchResult, _ int) float64 {
		return float64(r.latency) / float64(time.Millisecond)
	}))
	mean, _ := stats.Mean(millis)
	median, _ := stats.Median(millis)
	p95, _ := stats.Percentile(millis, 95)
	slowest, _ := stats.Max(millis)

	t := tableWriter()
	t.AppendHeader(table.Row{"Mean ms", "Median ms", "P95 ms", "Max ms"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%.3f", mean), fmt.Sprintf("%.3f", median),
		fmt.Sprintf("%.3f", p95), fmt.Sprintf("%.3f", slowest),
	})
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// LimitsAction prints the limit of every actuated joint.
func LimitsAction(c *cli.Context) error {
	cfg, _, err := loadConfig(c)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	t := tableWriter()
	t.AppendHeader(table.Row{"#", "Joint", "Min°", "Max°", "Kind"})
	for i, name := range model.JointNames() {
		l := model.ActuatedLimits()[i]
		kind := "inner"
		switch {
		case !l.IsBounded():
			t.AppendRow(table.Row{i, name, "", "", "unbounded"})
			continue
		case l.IsOuter():
			kind = "outer"
		}
		t.AppendRow(table.Row{
			i, name,
			fmt.Sprintf("%.1f", utils.RadToDeg(l.LowerBound())),
			fmt.Sprintf("%.1f", utils.RadToDeg(l.UpperBound())),
			kind,
		})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// tableWriter returns a table writer that prints headers as written.
func tableWriter() table.Writer {
	t := table.NewWriter()
	t.Style().Format.Header = text.FormatDefault
	return t
}

func poseTable(pose spatialmath.Pose) string {
	t := tableWriter()
	t.AppendHeader(table.Row{"X mm", "Y mm", "Z mm", "RX°", "RY°", "RZ°"})
	v := pose.Vector()
	row := lo.Map(v[:], func(x float64, i int) interface{} {
		if i >= 3 {
			x = utils.RadToDeg(x)
		}
		return fmt.Sprintf("%.3f", x)
	})
	t.AppendRow(row)
	return t.Render()
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, 0, len(args))
	for _, arg := range args {
		f, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%q is not a number", arg)
		}
		out = append(out, f)
	}
	return out, nil
}

func solverName(name string) string {
	if name == "" {
		return ik.JacobianSolverName
	}
	return name
}
