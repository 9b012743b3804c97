package cli

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/woliveiras/imager/pkg/config"
	"github.com/woliveiras/imager/pkg/imaging"
	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/sh"
)

// Runtime is what every command receives once flags and configuration have
// been resolved.
type Runtime struct {
	UI     UI
	Imager *imaging.Imager
	Config config.Config
	DryRun bool

	// Check verifies privileges and required tools before an operation.
	Check func(op string) error
}

// Builder creates the runtime of a command from the resolved configuration.
type Builder func(c *cli.Context, ui UI, conf config.Config) (*Runtime, error)

// Action .
type Action func(*cli.Context, *Runtime) error

// DefaultBuilder runs commands on the local host. With --dry-run destructive
// steps are only printed and root is not required.
func DefaultBuilder(c *cli.Context, ui UI, conf config.Config) (*Runtime, error) {
	exec := sh.NewLocal(os.Stderr)
	dryRun := c.Bool("dry-run")

	var runner imaging.Runner = imaging.NewCommandRunner(exec)
	if dryRun {
		runner = imaging.NewNoopRunner(os.Stdout)
	}

	im := imaging.New(exec, runner, ui, conf)
	return &Runtime{
		UI:     ui,
		Imager: im,
		Config: conf,
		DryRun: dryRun,
		Check: func(op string) error {
			return im.CheckPrerequisites(op, dryRun)
		},
	}, nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	conf := config.Conf
	if err := conf.Load(c.StringSlice("config")); err != nil {
		return conf, err
	}

	if c.IsSet("image-dir") {
		conf.ImageDir = c.String("image-dir")
	}
	if c.IsSet("log-level") {
		conf.LogLevel = c.String("log-level")
	}
	return conf, nil
}

func (a *app) run(fn Action) cli.ActionFunc {
	return func(c *cli.Context) error {
		conf, err := loadConfig(c)
		if err != nil {
			return err
		}

		closeLog, err := log.Setup(conf.LogLevel, conf.LogFile)
		if err != nil {
			return err
		}
		defer closeLog()

		if dump, err := conf.Dump(); err == nil {
			log.Debugf("config:\n%s", dump)
		}

		rt, err := a.build(c, a.ui, conf)
		if err != nil {
			return errors.Wrap(err, "setup")
		}
		rt.Imager.AssumeYes = c.Bool("yes")
		rt.Imager.Force = c.Bool("force")

		if rt.DryRun {
			rt.UI.Println("Dry run: commands that write to drives are only printed.")
		}
		return fn(c, rt)
	}
}
