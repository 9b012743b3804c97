package imaging

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"golang.org/x/sys/unix"

	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/sh"
)

// Operation names, also used as journal headings.
const (
	KindFlash    = "flash"
	KindClone    = "clone"
	KindCreate   = "create"
	KindCompress = "compress"
)

var (
	geteuid  = unix.Geteuid
	lookPath = sh.LookPath
)

// RequiredTools lists the external programs an operation runs.
func (im *Imager) RequiredTools(op string) []string {
	tools := []string{"lsblk", "blockdev"}
	switch op {
	case KindFlash:
		tools = append(tools, "dd", "sfdisk", "partprobe")
	case KindClone:
		tools = append(tools, "dd", "sfdisk", "partprobe", "e2fsck", "resize2fs")
	case KindCreate:
		tools = append(tools, "dd")
	case KindCompress:
		tools = []string{im.Config.PishrinkPath}
	}
	if im.Config.Eject && (op == KindFlash || op == KindClone) {
		tools = append(tools, "udisksctl")
	}
	return tools
}

// CheckPrerequisites ensures the operation can run: root privileges (unless
// skipRoot, used by dry runs) and every required tool on PATH.
func (im *Imager) CheckPrerequisites(op string, skipRoot bool) error {
	if !skipRoot && geteuid() != 0 {
		return errors.New("imager must run as root (use sudo) because it writes to block devices")
	}
	if missing := lookPath(im.RequiredTools(op)...); len(missing) > 0 {
		return errors.Newf("missing required commands: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateTarget performs safety checks before a drive is overwritten:
//   - it must be a whole disk, not a partition
//   - it must not be the boot disk or carry the root filesystem
//   - none of its partitions may be mounted
func (im *Imager) ValidateTarget(target device.Drive) error {
	if device.LooksLikePartition(target.Path) || target.Type != "disk" {
		return errors.Wrapf(ErrUnsafeTarget,
			"%s looks like a partition; use a whole disk name (e.g. sda, mmcblk0)", target.Path)
	}

	if im.BootDisk != "" && device.SameDisk(target.Path, im.BootDisk) {
		return errors.Wrapf(ErrUnsafeTarget,
			"refusing to write %s: it is the boot disk of the running system", target.Path)
	}

	mps := target.Mountpoints()
	if lo.Contains(mps, "/") {
		return errors.Wrapf(ErrUnsafeTarget, "refusing to write %s: it holds the root filesystem", target.Path)
	}
	if len(mps) > 0 {
		return errors.Wrapf(ErrUnsafeTarget,
			"%s has mounted filesystems (%s); unmount them before writing", target.Path, strings.Join(mps, ", "))
	}

	return nil
}
