package imaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/partition"
)

// gptBackupSectors is kept free at the end of a GPT disk for the backup
// header and partition entries.
const gptBackupSectors = 33

// CloneRequest selects the drives of a clone.
type CloneRequest struct {
	Source      string
	Destination string
}

// Clone copies one drive to another. Partitioned sources get their table
// rewritten for the destination size and are copied partition by partition;
// raw sources are copied whole.
func (im *Imager) Clone(ctx context.Context, req CloneRequest) error {
	drives, err := im.Lister.List(ctx)
	if err != nil {
		return err
	}
	src, ok := device.Find(drives, req.Source)
	if !ok {
		return errors.Newf("source drive %s not found", device.EnsureDevPrefix(req.Source))
	}
	dst, ok := device.Find(drives, req.Destination)
	if !ok {
		return errors.Newf("destination drive %s not found", device.EnsureDevPrefix(req.Destination))
	}

	if device.SameDisk(src.Path, dst.Path) {
		return errors.Wrapf(ErrUnsafeTarget, "source and destination are the same disk (%s)", src.Path)
	}
	if err := im.ValidateTarget(dst); err != nil {
		return err
	}
	if mps := src.Mountpoints(); len(mps) > 0 {
		log.Warnf("%s is mounted on %s; the copy may be inconsistent", src.Path, strings.Join(mps, ", "))
	}

	srcBytes, err := device.SizeBytes(ctx, im.Exec, src.Path)
	if err != nil {
		return err
	}
	dstBytes, err := device.SizeBytes(ctx, im.Exec, dst.Path)
	if err != nil {
		return err
	}

	var plan Plan
	if src.Raw() {
		plan, err = im.planRawClone(src, dst, srcBytes, dstBytes)
	} else {
		plan, err = im.planTableClone(ctx, src, dst, srcBytes, dstBytes)
	}
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("All data on %s will be erased. Clone %s onto it?", dst.Label(), src.Path)
	if err := im.confirm(prompt, false); err != nil {
		return err
	}

	return im.execute(ctx, plan)
}

func (im *Imager) planRawClone(src, dst device.Drive, srcBytes, dstBytes uint64) (Plan, error) {
	if srcBytes > dstBytes {
		return Plan{}, errors.Wrapf(ErrDestinationTooSmall, "%s (%s) has no partition table to shrink and %s holds %s",
			src.Path, device.FormatSize(srcBytes), dst.Path, device.FormatSize(dstBytes))
	}

	steps := []Step{ddStep(OpCopyDisk, src.Path, dst.Path, im.Config.BlockSize, 0)}
	steps = append(steps, finalizeSteps(dst.Path, im.Config.Eject)...)
	return Plan{Operation: KindClone, Source: src.Path, Destination: dst.Path, Steps: steps}, nil
}

func (im *Imager) planTableClone(ctx context.Context, src, dst device.Drive, srcBytes, dstBytes uint64) (Plan, error) {
	out, err := im.Exec.Output(ctx, "sfdisk", "--dump", src.Path)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "dump partition table of %s", src.Path)
	}
	dump := string(out)

	tbl, err := partition.Parse(dump)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "partition table of %s", src.Path)
	}
	if tbl.HasExtended() {
		// Logical partitions live inside the container; resizing only the
		// last one would leave the container overlapping the disk end.
		log.Warnf("%s uses extended partitions, falling back to a whole-disk copy", src.Path)
		return im.planRawClone(src, dst, srcBytes, dstBytes)
	}

	// blockdev --getsz always counts 512-byte sectors.
	sectors, err := device.Sectors(ctx, im.Exec, dst.Path)
	if err != nil {
		return Plan{}, err
	}
	sectorSize := tbl.SectorSize()
	usable := sectors * 512 / sectorSize
	if tbl.Label() == "gpt" && usable > gptBackupSectors {
		usable -= gptBackupSectors
	}

	adjusted, adj, err := partition.AdjustLastPartition(dump, usable)
	if err != nil {
		return Plan{}, errors.Wrapf(ErrDestinationTooSmall, "%v", err)
	}
	if adj.Shrunk {
		prompt := fmt.Sprintf("%s is smaller than %s: partition %s will be cut from %s to %s and data past the new end is lost. Continue?",
			dst.Path, src.Path, adj.Device,
			device.FormatSize(adj.OldSize*sectorSize), device.FormatSize(adj.NewSize*sectorSize))
		if err := im.confirm(prompt, true); err != nil {
			return Plan{}, err
		}
	}
	adjusted = partition.DropLastLBA(adjusted)

	steps := []Step{
		{
			Operation:   OpWriteTable,
			Name:        "sfdisk",
			Args:        []string{dst.Path},
			Stdin:       adjusted,
			Description: fmt.Sprintf("write partition table of %s to %s (last partition %d sectors)", src.Path, dst.Path, adj.NewSize),
		},
		{
			Operation:   OpReloadTable,
			Name:        "partprobe",
			Args:        []string{dst.Path},
			Description: fmt.Sprintf("re-read partition table of %s", dst.Path),
		},
	}

	lastPart := ""
	for _, e := range tbl.Entries {
		n, ok := device.PartitionNumber(e.Device)
		if !ok {
			return Plan{}, errors.Newf("cannot tell the partition number of %s", e.Device)
		}
		target := device.PartitionDevice(dst.Path, n)

		var count uint64
		if e.Device == adj.Device {
			lastPart = target
			if adj.Shrunk {
				count = adj.NewSize * sectorSize
			}
		}
		steps = append(steps, ddStep(OpCopyPartition, e.Device, target, im.Config.BlockSize, count))
	}

	fs, err := im.filesystem(ctx, src, adj.Device)
	if err != nil {
		return Plan{}, err
	}
	if strings.HasPrefix(fs, "ext") {
		steps = append(steps, im.resizeSteps(lastPart)...)
	} else if fs != "" {
		log.Infof("%s holds %s; only ext2/3/4 filesystems are resized", adj.Device, fs)
	}

	steps = append(steps, finalizeSteps(dst.Path, im.Config.Eject)...)
	return Plan{Operation: KindClone, Source: src.Path, Destination: dst.Path, Steps: steps}, nil
}

// resizeSteps fit an ext filesystem to its (new) partition size. e2fsck exits
// 1 after correcting errors; anything higher leaves the filesystem damaged
// and stops the clone before resize2fs.
func (im *Imager) resizeSteps(part string) []Step {
	return []Step{
		{
			Operation:   OpCheckFS,
			Name:        "e2fsck",
			Args:        []string{"-f", "-y", part},
			Description: fmt.Sprintf("check filesystem on %s", part),
			AcceptExit:  []int{1},
		},
		{
			Operation:   OpResizeFS,
			Name:        "resize2fs",
			Args:        []string{"-f", part},
			Description: fmt.Sprintf("fit filesystem on %s to its partition", part),
		},
	}
}

func (im *Imager) filesystem(ctx context.Context, src device.Drive, part string) (string, error) {
	child, ok := lo.Find(src.Children, func(c device.Drive) bool { return c.Path == part })
	if ok && child.FSType != "" {
		return child.FSType, nil
	}
	return device.FSType(ctx, im.Exec, part)
}
