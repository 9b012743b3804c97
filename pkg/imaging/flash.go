package imaging

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/partition"
)

// FlashRequest selects the image file and the drive it is written to.
type FlashRequest struct {
	Image  string
	Device string
}

// Flash writes an image file to a whole drive. Images larger than the drive
// are shrunk first; if that fails the unshrunk image may still be written up
// to the end of its last partition.
func (im *Imager) Flash(ctx context.Context, req FlashRequest) error {
	imgBytes, err := fileSize(req.Image)
	if err != nil {
		return err
	}

	target, err := im.findDrive(ctx, req.Device)
	if err != nil {
		return err
	}
	if err := im.ValidateTarget(target); err != nil {
		return err
	}

	devBytes, err := device.SizeBytes(ctx, im.Exec, target.Path)
	if err != nil {
		return err
	}

	image, count, err := im.fitImage(ctx, req.Image, imgBytes, devBytes)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("All data on %s will be erased. Write %s?", target.Label(), filepath.Base(image))
	if err := im.confirm(prompt, false); err != nil {
		return err
	}

	steps := []Step{ddStep(OpWriteImage, image, target.Path, im.Config.BlockSize, count)}
	steps = append(steps, finalizeSteps(target.Path, im.Config.Eject)...)

	return im.execute(ctx, Plan{
		Operation:   KindFlash,
		Source:      image,
		Destination: target.Path,
		Steps:       steps,
	})
}

// fitImage returns the image to write and, when only its head fits on the
// drive, the number of bytes to copy.
func (im *Imager) fitImage(ctx context.Context, image string, imgBytes, devBytes uint64) (string, uint64, error) {
	if imgBytes <= devBytes {
		return image, 0, nil
	}

	log.Warnf("%s (%s) is larger than the drive (%s), trying to shrink it",
		image, device.FormatSize(imgBytes), device.FormatSize(devBytes))

	shrunk, err := im.shrinkCopy(ctx, image)
	if err == nil {
		size, serr := fileSize(shrunk)
		if serr == nil && size <= devBytes {
			return shrunk, 0, nil
		}
		log.Warnf("shrunk image %s still does not fit the drive", shrunk)
	} else {
		log.Warnf("shrinking %s failed: %v", image, err)
	}

	dump, err := im.Exec.Output(ctx, "sfdisk", "--dump", image)
	if err != nil {
		return "", 0, errors.Wrapf(ErrImageTooLarge, "%s has no readable partition table", image)
	}
	tbl, err := partition.Parse(string(dump))
	if err != nil {
		return "", 0, errors.Wrapf(ErrImageTooLarge, "%s: %v", image, err)
	}

	need := tbl.End() * tbl.SectorSize()
	if need > devBytes {
		return "", 0, errors.Wrapf(ErrImageTooLarge, "partitions of %s end at %s but the drive holds %s",
			image, device.FormatSize(need), device.FormatSize(devBytes))
	}

	prompt := fmt.Sprintf("Shrinking failed. The partitions of %s end at %s, which fits on the drive. Write the unshrunk image up to that point?",
		filepath.Base(image), device.FormatSize(need))
	if err := im.confirm(prompt, false); err != nil {
		return "", 0, err
	}
	return image, need, nil
}

// shrinkCopy shrinks image into a sibling file and leaves the original alone.
func (im *Imager) shrinkCopy(ctx context.Context, image string) (string, error) {
	ext := filepath.Ext(image)
	out := strings.TrimSuffix(image, ext) + "-shrunk" + ext
	if len(lookPath(im.Config.PishrinkPath)) > 0 {
		return "", errors.Newf("%s not found", im.Config.PishrinkPath)
	}
	if err := Apply(ctx, []Step{im.shrinkStep(image, out)}, im.Runner); err != nil {
		return "", err
	}
	return out, nil
}
