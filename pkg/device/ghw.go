package device

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	"github.com/samber/lo"

	"github.com/woliveiras/imager/pkg/sh"
)

// GhwLister reads disks from sysfs through ghw. It is used on hosts where
// lsblk is not installed; it cannot see partition table types, so a drive
// counts as raw when it has no partitions.
type GhwLister struct{}

// List .
func (GhwLister) List(context.Context) ([]Drive, error) {
	info, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, errors.Wrap(err, "read block devices from sysfs")
	}
	return fromGhw(info.Disks), nil
}

func fromGhw(disks []*block.Disk) []Drive {
	drives := lo.Map(disks, func(d *block.Disk, _ int) Drive {
		tran := ""
		if strings.Contains(d.BusPath, "usb") {
			tran = "usb"
		}
		return Drive{
			Name:      d.Name,
			Path:      EnsureDevPrefix(d.Name),
			Type:      "disk",
			Tran:      tran,
			Model:     strings.TrimSpace(d.Model),
			Size:      d.SizeBytes,
			Removable: d.IsRemovable,
			Children: lo.Map(d.Partitions, func(p *block.Partition, _ int) Drive {
				return Drive{
					Name:       p.Name,
					Path:       EnsureDevPrefix(p.Name),
					Type:       "part",
					FSType:     p.Type,
					Size:       p.SizeBytes,
					Mountpoint: p.MountPoint,
				}
			}),
		}
	})
	return lo.Filter(drives, func(d Drive, _ int) bool {
		return d.Size > 0 && !strings.HasPrefix(d.Name, "loop") && !strings.HasPrefix(d.Name, "ram")
	})
}

// NewLister prefers lsblk and falls back to sysfs when lsblk is missing.
func NewLister(exec sh.Executor) Lister {
	if len(sh.LookPath("lsblk")) > 0 {
		return GhwLister{}
	}
	return LsblkLister{Exec: exec}
}
