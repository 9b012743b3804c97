package imaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"

	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/log"
)

// CreateRequest describes an image to read from a drive.
type CreateRequest struct {
	Source string
	Name   string
	Shrink bool
	// Compress is "", "gzip" or "xz".
	Compress string
}

var freeSpace = func(dir string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(dir, &st); err != nil {
		return 0, errors.Wrapf(err, "statfs %s", dir)
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// CreateImage reads a whole drive into an image file and optionally shrinks
// and compresses it. It returns the path of the final file.
func (im *Imager) CreateImage(ctx context.Context, req CreateRequest) (string, error) {
	name, err := ImageName(req.Name, im.Config.ImageSuffix)
	if err != nil {
		return "", err
	}
	path := filepath.Join(im.Config.ImageDir, name)

	var reclaimed uint64
	if exists(path) {
		if err := im.confirm(fmt.Sprintf("%s already exists. Overwrite it?", path), false); err != nil {
			return "", err
		}
		reclaimed, _ = fileSize(path)
	}

	src, err := im.findDrive(ctx, req.Source)
	if err != nil {
		return "", err
	}
	if mps := src.Mountpoints(); len(mps) > 0 {
		log.Warnf("%s is mounted; the image may be inconsistent", src.Path)
	}

	srcBytes, err := device.SizeBytes(ctx, im.Exec, src.Path)
	if err != nil {
		return "", err
	}
	free, err := freeSpace(im.Config.ImageDir)
	if err != nil {
		return "", err
	}
	if free+reclaimed < srcBytes {
		return "", errors.Wrapf(ErrNoSpace, "%s needs %s, %s has %s free",
			src.Path, device.FormatSize(srcBytes), im.Config.ImageDir, device.FormatSize(free+reclaimed))
	}

	steps := []Step{
		ddStep(OpReadDevice, src.Path, path, im.Config.BlockSize, 0),
		syncStep(),
	}
	if err := im.execute(ctx, Plan{Operation: KindCreate, Source: src.Path, Destination: path, Steps: steps}); err != nil {
		return "", err
	}

	if req.Shrink {
		if err := im.shrinkInPlace(ctx, path, srcBytes); err != nil {
			return "", err
		}
	}

	if req.Compress != "" {
		return im.compress(ctx, path, req.Compress)
	}
	return path, nil
}

// shrinkInPlace shrinks a freshly created image. When shrinking fails the
// unshrunk image is kept if it is complete and the user agrees; otherwise it
// is removed.
func (im *Imager) shrinkInPlace(ctx context.Context, path string, srcBytes uint64) error {
	step := im.shrinkStep(path, "")
	shrinkErr := Apply(ctx, []Step{step}, im.Runner)
	if shrinkErr == nil {
		return nil
	}
	log.Warnf("shrinking %s failed: %v", path, shrinkErr)

	if size, err := fileSize(path); err != nil || size < srcBytes {
		removeImage(path)
		return errors.Wrapf(shrinkErr, "shrink %s (incomplete image removed)", path)
	}

	prompt := fmt.Sprintf("Shrinking failed. Keep the unshrunk image %s (%s)?", path, device.FormatSize(srcBytes))
	if err := im.confirm(prompt, false); err != nil {
		removeImage(path)
		return err
	}
	return nil
}

func removeImage(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("cannot remove %s: %v", path, err)
	}
}
