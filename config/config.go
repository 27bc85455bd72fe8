// Package config reads the JSON file describing an arm, its solver, its control loop and
// logging.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/armkin/components/arm"
	"go.viam.com/armkin/components/arm/sevenaxis"
	"go.viam.com/armkin/control"
	"go.viam.com/armkin/kinematics"
	"go.viam.com/armkin/logging"
	"go.viam.com/armkin/motionplan/ik"
)

// Joint variants accepted in ArmConfig.Joints.
const (
	SimulatedJoints = "simulated"
	DrivenJoints    = "driven"
	PhysicalJoints  = "physical"
)

// Config is the whole configuration file.
type Config struct {
	ConfigFilePath string `json:"-"`

	Arm    ArmConfig    `json:"arm"`
	Solver SolverConfig `json:"solver"`
	Loop   LoopConfig   `json:"loop"`
	Log    LogConfig    `json:"log"`
}

// ArmConfig selects the kinematic model and the joint variant.
type ArmConfig struct {
	// Model names a built in model. Empty means the seven axis reference arm unless
	// ModelFilePath is set.
	Model         string `json:"model,omitempty"`
	ModelFilePath string `json:"model_path,omitempty"`
	Joints        string `json:"joints,omitempty"`
	// Blend is the per tick blend of driven joints.
	Blend float64 `json:"blend,omitempty"`
	// RequestInterval is the minimum spacing of manual pose requests, as a Go duration string.
	RequestInterval string `json:"request_interval,omitempty"`

	requestInterval time.Duration
}

// SolverConfig names an inverse kinematics solver and holds its attributes, decoded into
// ik.Options.
type SolverConfig struct {
	Name       string                 `json:"name,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	options ik.Options
}

// LoopConfig configures the control loop.
type LoopConfig struct {
	Period         string  `json:"period,omitempty"`
	DriveTolerance float64 `json:"drive_tolerance,omitempty"`

	period time.Duration
}

// LogConfig sets the log level.
type LogConfig struct {
	Level logging.Level `json:"level"`
}

// Ensure validates the config and parses the fields that need it. Every problem is reported
// at once.
func (c *Config) Ensure() error {
	var err error
	if e := c.Arm.validate(); e != nil {
		err = multierr.Append(err, utils.NewConfigValidationError("arm", e))
	}
	if e := c.Solver.validate(); e != nil {
		err = multierr.Append(err, utils.NewConfigValidationError("solver", e))
	}
	if e := c.Loop.validate(); e != nil {
		err = multierr.Append(err, utils.NewConfigValidationError("loop", e))
	}
	return err
}

func (ac *ArmConfig) validate() error {
	var err error
	if ac.Model != "" && ac.ModelFilePath != "" {
		err = multierr.Append(err, errors.New("only one of model and model_path may be set"))
	}
	if ac.Model != "" && ac.Model != sevenaxis.ModelName {
		err = multierr.Append(err, errors.Errorf("unknown model %q", ac.Model))
	}
	switch ac.Joints {
	case "", SimulatedJoints, DrivenJoints, PhysicalJoints:
	default:
		err = multierr.Append(err, errors.Errorf("unknown joints %q, expected %s, %s or %s",
			ac.Joints, SimulatedJoints, DrivenJoints, PhysicalJoints))
	}
	if ac.Blend < 0 || ac.Blend > 1 {
		err = multierr.Append(err, errors.Errorf("blend must be within [0, 1], got %v", ac.Blend))
	}
	ac.requestInterval = 0
	if ac.RequestInterval != "" {
		d, e := time.ParseDuration(ac.RequestInterval)
		switch {
		case e != nil:
			err = multierr.Append(err, errors.Wrap(e, "request_interval"))
		case d <= 0:
			err = multierr.Append(err, errors.Errorf("request_interval must be positive, got %v", d))
		default:
			ac.requestInterval = d
		}
	}
	return err
}

func (sc *SolverConfig) validate() error {
	var err error
	switch sc.Name {
	case "", ik.JacobianSolverName, ik.AnalyticalSolverName:
	default:
		err = multierr.Append(err, errors.Errorf("unknown solver %q", sc.Name))
	}
	opts, e := ik.DecodeOptions(sc.Attributes)
	if e != nil {
		err = multierr.Append(err, e)
	}
	sc.options = opts
	return err
}

func (lc *LoopConfig) validate() error {
	var err error
	lc.period = control.DefaultPeriod
	if lc.Period != "" {
		d, e := time.ParseDuration(lc.Period)
		switch {
		case e != nil:
			err = multierr.Append(err, errors.Wrap(e, "period"))
		case d <= 0:
			err = multierr.Append(err, errors.Errorf("period must be positive, got %v", d))
		default:
			lc.period = d
		}
	}
	if lc.DriveTolerance < 0 {
		err = multierr.Append(err, errors.Errorf("drive_tolerance cannot be negative, got %v", lc.DriveTolerance))
	}
	return err
}

// SolverOptions returns the decoded solver attributes. Only valid after Ensure.
func (c *Config) SolverOptions() ik.Options {
	if c.Solver.options == (ik.Options{}) {
		return ik.DefaultOptions()
	}
	return c.Solver.options
}

// LoopConfig returns the control loop settings. Only valid after Ensure.
func (c *Config) LoopConfig() control.Config {
	return control.Config{Period: c.Loop.period, DriveTolerance: c.Loop.DriveTolerance}
}

// Model loads the configured kinematic model.
func (c *Config) Model() (*kinematics.Model, error) {
	if c.Arm.ModelFilePath != "" {
		return kinematics.ParseModelJSONFile(c.Arm.ModelFilePath, "")
	}
	return sevenaxis.MakeModel("")
}

// NewArm builds the configured arm.
func (c *Config) NewArm(logger logging.Logger) (*arm.Arm, error) {
	model, err := c.Model()
	if err != nil {
		return nil, err
	}
	var joints []arm.Joint
	if c.Arm.Joints != "" && c.Arm.Joints != SimulatedJoints {
		joints = make([]arm.Joint, model.Table.NumActuated())
		for i := range joints {
			if c.Arm.Joints == DrivenJoints {
				joints[i] = arm.NewDrivenJoint(0, c.Arm.Blend)
			} else {
				joints[i] = arm.NewPhysicalJoint(0)
			}
		}
	}
	return arm.NewArm(model, arm.Config{
		Solver:          c.Solver.Name,
		SolverOptions:   c.SolverOptions(),
		RequestInterval: c.Arm.requestInterval,
		Joints:          joints,
	}, logger)
}

// NewLogger returns a logger at the configured level.
func (c *Config) NewLogger(name string) logging.Logger {
	logger := logging.NewLogger(name)
	logger.SetLevel(c.Log.Level)
	return logger
}
