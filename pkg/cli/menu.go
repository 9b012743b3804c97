package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"

	"github.com/woliveiras/imager/pkg/imaging"
)

type menuItem struct {
	label string
	fn    func(context.Context, *Runtime) error
}

var menuItems = []menuItem{
	{"Flash image to drive", func(ctx context.Context, rt *Runtime) error { return rt.flash(ctx, "", "") }},
	{"Clone drive to drive", func(ctx context.Context, rt *Runtime) error { return rt.clone(ctx, "", "") }},
	{"Create image from drive", createFromMenu},
	{"Compress image", func(ctx context.Context, rt *Runtime) error { return rt.compress(ctx, "", "") }},
	{"List drives", func(ctx context.Context, rt *Runtime) error { return rt.listDrives(ctx) }},
	{"List images", func(_ context.Context, rt *Runtime) error { return rt.listImages() }},
}

func createFromMenu(ctx context.Context, rt *Runtime) error {
	var req imaging.CreateRequest
	if err := rt.askCreateOptions(&req); err != nil {
		return err
	}
	return rt.create(ctx, req)
}

// menu loops over the numbered main menu until the user quits or input ends.
// Declining a confirmation returns to the menu; any other failure ends the
// run.
func menu(c *cli.Context, rt *Runtime) error {
	for {
		rt.UI.Println()
		rt.UI.Println("imager")
		for i, item := range menuItems {
			rt.UI.Printf("  %d) %s\n", i+1, item.label)
		}
		rt.UI.Println("  0) Quit")

		ans, err := rt.UI.Ask("Choose an option: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if ans == "0" || ans == "q" {
			return nil
		}

		n, err := strconv.Atoi(ans)
		if err != nil || n < 1 || n > len(menuItems) {
			rt.UI.Printf("Invalid option %q.\n", ans)
			continue
		}

		err = menuItems[n-1].fn(c.Context, rt)
		switch {
		case err == nil:
		case errors.Is(err, imaging.ErrAborted):
			rt.UI.Println("Aborted.")
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}
