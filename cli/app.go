// Package cli contains the armkin command line: forward and inverse kinematics for a
// configured arm, a solver benchmark, the joint limit table and a demo control loop.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"go.viam.com/armkin/config"
	"go.viam.com/armkin/logging"
)

const (
	// Flags.
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	ikFlagX        = "x"
	ikFlagY        = "y"
	ikFlagZ        = "z"
	ikFlagRX       = "rx"
	ikFlagRY       = "ry"
	ikFlagRZ       = "rz"
	ikFlagSolver   = "solver"
	ikFlagArmAngle = "arm-angle"
	ikFlagSeed     = "seed"

	benchFlagCount      = "count"
	benchFlagRandomSeed = "random-seed"
	benchFlagSpread     = "spread"

	runFlagDuration = "duration"
	runFlagRadius   = "radius"
	runFlagEvery    = "print-every"
)

var app = &cli.App{
	Name:            "armkin",
	Usage:           "kinematics of 7-DOF arms",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "fk",
			Usage:     "print the end effector pose for joint angles in degrees",
			ArgsUsage: "<joint degrees>...",
			Action:    ForwardAction,
		},
		{
			Name:  "ik",
			Usage: "solve joint angles for an end effector pose",
			Flags: []cli.Flag{
				&cli.Float64Flag{Name: ikFlagX, Usage: "x in mm"},
				&cli.Float64Flag{Name: ikFlagY, Usage: "y in mm"},
				&cli.Float64Flag{Name: ikFlagZ, Usage: "z in mm"},
				&cli.Float64Flag{Name: ikFlagRX, Usage: "rotation about x in degrees"},
				&cli.Float64Flag{Name: ikFlagRY, Usage: "rotation about y in degrees"},
				&cli.Float64Flag{Name: ikFlagRZ, Usage: "rotation about z in degrees"},
				&cli.StringFlag{
					Name:  ikFlagSolver,
					Usage: "solver to use, jacobian or analytical; overrides the config file",
				},
				&cli.Float64Flag{
					Name:  ikFlagArmAngle,
					Usage: "preferred arm angle in degrees (analytical solver only)",
				},
				&cli.StringFlag{
					Name:  ikFlagSeed,
					Usage: "comma separated starting joint angles in degrees",
				},
			},
			Action: InverseAction,
		},
		{
			Name:  "bench",
			Usage: "solve random reachable poses and report latency and success rate",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: benchFlagCount, Value: 100, Usage: "number of poses"},
				&cli.Int64Flag{Name: benchFlagRandomSeed, Value: 1, Usage: "seed for the random poses"},
				&cli.Float64Flag{
					Name:  benchFlagSpread,
					Value: 20,
					Usage: "largest difference between the start and goal configuration of each joint, in degrees",
				},
			},
			Action: BenchAction,
		},
		{
			Name:   "limits",
			Usage:  "print the joint limits",
			Action: LimitsAction,
		},
		{
			Name:  "run",
			Usage: "trace a circle with the control loop and print the arm state",
			Flags: []cli.Flag{
				&cli.DurationFlag{Name: runFlagDuration, Value: 0, Usage: "how long to run, forever when zero"},
				&cli.Float64Flag{Name: runFlagRadius, Value: 100, Usage: "circle radius in mm"},
				&cli.IntFlag{Name: runFlagEvery, Value: 30, Usage: "print every `N` ticks"},
			},
			Action: RunAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// printf prints a message with a newline.
func printf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format+"\n", a...)
}

// loadConfig reads the --config file, or the defaults when none is given, and the logger
// to go with it.
func loadConfig(c *cli.Context) (*config.Config, logging.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	bootstrap := logging.NewBlankLogger("armkin")
	if path := c.String(generalFlagConfig); path != "" {
		cfg, err = config.Read(path, bootstrap)
	} else {
		cfg, err = config.FromReader("", strings.NewReader("{}"), bootstrap)
	}
	if err != nil {
		return nil, nil, err
	}
	if c.Bool(generalFlagDebug) {
		cfg.Log.Level = logging.DEBUG
	}
	return cfg, cfg.NewLogger("armkin"), nil
}
