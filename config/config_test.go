package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/armkin/components/arm/sevenaxis"
	"go.viam.com/armkin/control"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/motionplan/ik"
	"go.viam.com/armkin/referenceframe"
)

const fullConfig = `{
	"arm": {"joints": "driven", "blend": 0.5, "request_interval": "250ms"},
	"solver": {
		"name": "analytical",
		"attributes": {"arm_angle_samples": 360, "timeout": "40ms"}
	},
	"loop": {"period": "20ms", "drive_tolerance": 0.01},
	"log": {"level": "debug"}
}`

func TestFromReader(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader("mem", strings.NewReader(fullConfig), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "mem")
	test.That(t, cfg.Arm.requestInterval, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, cfg.Log.Level, test.ShouldEqual, logging.DEBUG)

	opts := cfg.SolverOptions()
	test.That(t, opts.ArmAngleSamples, test.ShouldEqual, 360)
	test.That(t, opts.Timeout, test.ShouldEqual, 40*time.Millisecond)
	test.That(t, opts.PopulationSize, test.ShouldEqual, ik.DefaultOptions().PopulationSize)
	test.That(t, cfg.LoopConfig(), test.ShouldResemble, control.Config{Period: 20 * time.Millisecond, DriveTolerance: 0.01})

	a, err := cfg.NewArm(logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Name(), test.ShouldEqual, sevenaxis.ModelName)

	// Driven joints only move on UpdateDriven.
	ctx := context.Background()
	test.That(t, a.SetJointAngle(ctx, 0, 1), test.ShouldBeNil)
	joints, err := a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joints[0].Value, test.ShouldEqual, 0)
	a.UpdateDriven(0.01)
	joints, err = a.JointPositions(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joints[0].Value, test.ShouldAlmostEqual, 0.5)
}

func TestDefaults(t *testing.T) {
	cfg, err := FromReader("", strings.NewReader(`{}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.SolverOptions(), test.ShouldResemble, ik.DefaultOptions())
	test.That(t, cfg.LoopConfig().Period, test.ShouldEqual, control.DefaultPeriod)
	test.That(t, cfg.Log.Level, test.ShouldEqual, logging.INFO)

	model, err := cfg.Model()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Table.NumActuated(), test.ShouldEqual, 7)
}

func TestValidationCollectsEveryProblem(t *testing.T) {
	bad := `{
		"arm": {"model": "scara", "joints": "hydraulic", "blend": 2, "request_interval": "soon"},
		"solver": {"name": "ccd", "attributes": {"population_size": 0, "unknown_knob": 1}},
		"loop": {"period": "-5ms", "drive_tolerance": -1}
	}`
	_, err := FromReader("", strings.NewReader(bad), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	for _, want := range []string{
		"arm", "scara", "hydraulic", "blend", "request_interval",
		"solver", "ccd", "unknown_knob",
		"loop", "period", "drive_tolerance",
	} {
		test.That(t, err.Error(), test.ShouldContainSubstring, want)
	}

	_, err = FromReader("", strings.NewReader(`{"arms": {}}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "arms")

	_, err = FromReader("", strings.NewReader(`{"log": {"level": "loud"}}`), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadWithEnvironment(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "arm.json")
	test.That(t, os.WriteFile(modelPath, sevenaxis.ModelJSON(), 0o600), test.ShouldBeNil)

	cfgPath := filepath.Join(dir, "armkin.json")
	contents := `{"arm": {"model_path": "${ARMKIN_TEST_MODEL}", "joints": "physical"}, "solver": {"name": "${ARMKIN_TEST_SOLVER}"}}`
	test.That(t, os.WriteFile(cfgPath, []byte(contents), 0o600), test.ShouldBeNil)
	t.Setenv("ARMKIN_TEST_MODEL", modelPath)
	t.Setenv("ARMKIN_TEST_SOLVER", ik.JacobianSolverName)

	cfg, err := Read(cfgPath, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Arm.ModelFilePath, test.ShouldEqual, modelPath)
	test.That(t, cfg.Solver.Name, test.ShouldEqual, ik.JacobianSolverName)

	a, err := cfg.NewArm(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a.Observe(3, 0.25), test.ShouldBeNil)
	joints, err := a.JointPositions(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, joints[3], test.ShouldResemble, referenceframe.Input{Value: 0.25})

	_, err = Read(filepath.Join(dir, "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	cfg.Arm.ModelFilePath = filepath.Join(dir, "missing.json")
	_, err = cfg.NewArm(logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: logging.WARN}}
	logger := cfg.NewLogger("armkin")
	test.That(t, logger.GetLevel(), test.ShouldEqual, logging.WARN)
}
