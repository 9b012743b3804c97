package cli

import (
	"github.com/urfave/cli/v2"
)

type app struct {
	ui    UI
	build Builder
}

// Run is the main entrypoint for the CLI.
func Run(args []string) error {
	return NewApp(NewStdUI(), DefaultBuilder).Run(args)
}

// NewApp assembles the command tree. Without a subcommand the interactive
// menu is started.
func NewApp(ui UI, build Builder) *cli.App {
	a := &app{ui: ui, build: build}

	return &cli.App{
		Name:  "imager",
		Usage: "flash, clone, back up and compress SD cards and USB drives",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "config",
				Usage: "config files, later ones override earlier ones",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "image-dir",
				Usage: "directory holding image files",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the commands that would write to drives instead of running them",
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "answer yes to confirmations, except before truncating a partition",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "with --yes, also accept truncating the last partition of a clone",
			},
		},
		Action: a.run(menu),
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list drives",
				Action: a.run(listDrives),
			},
			{
				Name:   "images",
				Usage:  "list image files",
				Action: a.run(listImages),
			},
			{
				Name:   "flash",
				Usage:  "write an image file to a drive",
				Flags:  flashFlags(),
				Action: a.run(flash),
			},
			{
				Name:   "clone",
				Usage:  "copy a drive to another drive",
				Flags:  cloneFlags(),
				Action: a.run(clone),
			},
			{
				Name:   "create",
				Usage:  "read a drive into an image file",
				Flags:  createFlags(),
				Action: a.run(create),
			},
			{
				Name:   "compress",
				Usage:  "shrink and compress an image file with pishrink",
				Flags:  compressFlags(),
				Action: a.run(compress),
			},
			{
				Name:   "eject",
				Usage:  "flush and power off a drive",
				Flags:  ejectFlags(),
				Action: a.run(eject),
			},
		},
	}
}

func flashFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "image",
			Aliases: []string{"i"},
			Usage:   "image file, relative names are looked up in the image directory",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Usage:   "destination drive, e.g. sda",
		},
	}
}

func cloneFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
		},
		&cli.StringFlag{
			Name:    "destination",
			Aliases: []string{"d"},
		},
	}
}

func createFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
		},
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "image file name; the configured suffix is appended when missing",
		},
		&cli.BoolFlag{
			Name:  "shrink",
			Usage: "shrink the image with pishrink",
		},
		&cli.StringFlag{
			Name:  "compress",
			Usage: "gzip or xz",
		},
	}
}

func compressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "image",
			Aliases: []string{"i"},
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "gzip or xz, defaults to compress_format",
		},
	}
}

func ejectFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
		},
	}
}
