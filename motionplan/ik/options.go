package ik

import (
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/armkin/utils"
)

// default values for inverse kinematics.
const (
	// Generations the Jacobian solver may run before giving up.
	defaultMaxGenerations = 200

	// A solve converges once the end effector is this close to the goal.
	defaultPositionTolerance    = 0.5   // mm
	defaultOrientationTolerance = 0.005 // rad

	// Joint perturbation used for the numeric Jacobian.
	defaultJacobianStep = 0.01

	defaultDamping    = 0.5
	defaultNoiseScale = 0.1
	defaultMaxStep    = 0.35

	// Consecutive all-singular generations tolerated before failing.
	defaultSingularRetries = 3

	defaultArmAngleSamples = 720
)

// Options tune both solvers. Zero values are replaced by defaults in DecodeOptions and
// DefaultOptions only; callers building Options by hand should start from DefaultOptions.
type Options struct {
	// Candidates evaluated per generation. Candidate 0 always follows the unperturbed Jacobian.
	PopulationSize int `mapstructure:"population_size" json:"population_size"`
	MaxGenerations int `mapstructure:"max_generations" json:"max_generations"`

	PositionTolerance    float64 `mapstructure:"position_tolerance_mm" json:"position_tolerance_mm"`
	OrientationTolerance float64 `mapstructure:"orientation_tolerance_rad" json:"orientation_tolerance_rad"`

	JacobianStep float64 `mapstructure:"jacobian_step_rad" json:"jacobian_step_rad"`
	// Damping of the least squares step, in tolerances. It only matters where the Jacobian is
	// close to singular.
	Damping float64 `mapstructure:"damping" json:"damping"`
	// Standard deviation of the Jacobian noise relative to the RMS Jacobian entry.
	NoiseScale float64 `mapstructure:"noise_scale" json:"noise_scale"`
	// Largest change of any joint in one generation, in radians.
	MaxStep         float64 `mapstructure:"max_step_rad" json:"max_step_rad"`
	SingularRetries int     `mapstructure:"singular_retries" json:"singular_retries"`

	// Wall clock budget of one solve; zero leaves only the caller's context.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	Seed    int64         `mapstructure:"seed" json:"seed"`

	// Arm angle resolution of the analytical solver.
	ArmAngleSamples int `mapstructure:"arm_angle_samples" json:"arm_angle_samples"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PopulationSize:       min(max(utils.ParallelFactor, 8), 16),
		MaxGenerations:       defaultMaxGenerations,
		PositionTolerance:    defaultPositionTolerance,
		OrientationTolerance: defaultOrientationTolerance,
		JacobianStep:         defaultJacobianStep,
		Damping:              defaultDamping,
		NoiseScale:           defaultNoiseScale,
		MaxStep:              defaultMaxStep,
		SingularRetries:      defaultSingularRetries,
		ArmAngleSamples:      defaultArmAngleSamples,
	}
}

// DecodeOptions overlays a loosely typed attribute map, as found in a config file, onto
// DefaultOptions. Unknown keys are an error.
func DecodeOptions(attrs map[string]interface{}) (Options, error) {
	opts := DefaultOptions()
	if len(attrs) == 0 {
		return opts, nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return Options{}, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return Options{}, errors.Wrap(err, "failed to decode solver options")
	}
	return opts, opts.Validate()
}

// Validate returns every problem with the options at once.
func (o Options) Validate() error {
	var err error
	if o.PopulationSize < 1 {
		err = multierr.Append(err, errors.Errorf("population_size must be at least 1, got %d", o.PopulationSize))
	}
	if o.MaxGenerations < 1 {
		err = multierr.Append(err, errors.Errorf("max_generations must be at least 1, got %d", o.MaxGenerations))
	}
	if !(o.PositionTolerance > 0) {
		err = multierr.Append(err, errors.Errorf("position_tolerance_mm must be positive, got %v", o.PositionTolerance))
	}
	if !(o.OrientationTolerance > 0) {
		err = multierr.Append(err, errors.Errorf("orientation_tolerance_rad must be positive, got %v", o.OrientationTolerance))
	}
	if !(o.JacobianStep > 0) {
		err = multierr.Append(err, errors.Errorf("jacobian_step_rad must be positive, got %v", o.JacobianStep))
	}
	if o.Damping < 0 {
		err = multierr.Append(err, errors.Errorf("damping cannot be negative, got %v", o.Damping))
	}
	if o.NoiseScale < 0 {
		err = multierr.Append(err, errors.Errorf("noise_scale cannot be negative, got %v", o.NoiseScale))
	}
	if !(o.MaxStep > 0) {
		err = multierr.Append(err, errors.Errorf("max_step_rad must be positive, got %v", o.MaxStep))
	}
	if o.SingularRetries < 0 {
		err = multierr.Append(err, errors.Errorf("singular_retries cannot be negative, got %d", o.SingularRetries))
	}
	if o.Timeout < 0 {
		err = multierr.Append(err, errors.Errorf("timeout cannot be negative, got %v", o.Timeout))
	}
	if o.ArmAngleSamples < 8 {
		err = multierr.Append(err, errors.Errorf("arm_angle_samples must be at least 8, got %d", o.ArmAngleSamples))
	}
	return err
}
