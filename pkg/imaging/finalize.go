package imaging

import (
	"context"
	"fmt"
)

// finalizeSteps flush caches, let the kernel re-read the partition table and,
// with eject, power the drive off so it can be unplugged. Only the flush is
// mandatory.
func finalizeSteps(dev string, eject bool) []Step {
	steps := []Step{
		syncStep(),
		{
			Operation:   OpReloadTable,
			Name:        "partprobe",
			Args:        []string{dev},
			Description: fmt.Sprintf("re-read partition table of %s", dev),
			Optional:    true,
		},
	}
	if eject {
		steps = append(steps, Step{
			Operation:   OpEject,
			Name:        "udisksctl",
			Args:        []string{"power-off", "-b", dev},
			Description: fmt.Sprintf("power off %s", dev),
			Optional:    true,
		})
	}
	return steps
}

// Finalize syncs and powers off dev outside of an operation. It ejects even
// when eject is disabled for flash and clone.
func (im *Imager) Finalize(ctx context.Context, dev string) error {
	return Apply(ctx, finalizeSteps(dev, true), im.Runner)
}

func syncStep() Step {
	return Step{
		Operation:   OpSync,
		Name:        "sync",
		Description: "flush write caches",
	}
}

func (im *Imager) shrinkStep(image, out string, flags ...string) Step {
	args := append([]string{}, flags...)
	args = append(args, image)
	desc := fmt.Sprintf("shrink %s", image)
	if out != "" {
		args = append(args, out)
		desc = fmt.Sprintf("shrink %s into %s", image, out)
	}
	return Step{
		Operation:   OpShrinkImage,
		Name:        im.Config.PishrinkPath,
		Args:        args,
		Description: desc,
	}
}
