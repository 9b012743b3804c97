// Package cli provides the command-line interface of imager.
//
// Without a subcommand an interactive numbered menu is shown. The list,
// images, flash, clone, create, compress and eject subcommands run a single
// operation for scripts; selections missing from the flags are asked for
// with numbered prompts.
//
// Example usage:
//
//	if err := cli.Run(os.Args); err != nil {
//		log.ErrorStack(err)
//		os.Exit(1)
//	}
package cli
