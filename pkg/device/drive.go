// Package device discovers block devices and answers size and naming
// questions about them. Nothing here writes to a device.
package device

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
)

// Drive is a whole disk or one of its partitions as reported by lsblk.
type Drive struct {
	Name       string
	Path       string
	Type       string
	Tran       string
	Model      string
	PTType     string
	FSType     string
	Size       uint64
	Removable  bool
	Mountpoint string
	Children   []Drive
}

// Raw reports a drive without a recognised partition table.
func (d Drive) Raw() bool {
	if d.PTType != "" {
		return false
	}
	return !lo.ContainsBy(d.Children, func(c Drive) bool { return c.Type == "part" })
}

// Mountpoints lists where the drive or any of its partitions is mounted.
func (d Drive) Mountpoints() []string {
	var mps []string
	if d.Mountpoint != "" {
		mps = append(mps, d.Mountpoint)
	}
	for _, c := range d.Children {
		mps = append(mps, c.Mountpoints()...)
	}
	return mps
}

// Label is the one-line description used in numbered menus.
func (d Drive) Label() string {
	parts := []string{d.Path, FormatSize(d.Size)}
	if d.Tran != "" {
		parts = append(parts, d.Tran)
	}
	if model := strings.TrimSpace(d.Model); model != "" {
		parts = append(parts, model)
	}
	if d.Raw() {
		parts = append(parts, "(raw)")
	}
	return strings.Join(parts, "  ")
}

// Find looks a drive up by name or path.
func Find(drives []Drive, name string) (Drive, bool) {
	path := EnsureDevPrefix(name)
	return lo.Find(drives, func(d Drive) bool { return d.Path == path })
}

// Candidates drops the boot disk and anything carrying the root filesystem,
// leaving drives that are safe to offer as targets.
func Candidates(drives []Drive, bootDisk string) []Drive {
	return lo.Filter(drives, func(d Drive, _ int) bool {
		if bootDisk != "" && SameDisk(d.Path, bootDisk) {
			return false
		}
		return !lo.Contains(d.Mountpoints(), "/")
	})
}

// FormatSize renders a byte count with IEC units.
func FormatSize(b uint64) string {
	return humanize.IBytes(b)
}

// EnsureDevPrefix .
func EnsureDevPrefix(name string) string {
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "/dev/") {
		return name
	}
	return "/dev/" + name
}

var (
	pInfixPart = regexp.MustCompile(`^((?:mmcblk|nvme\d+n|loop|md|nbd)\d+)p(\d+)$`)
	pInfixDisk = regexp.MustCompile(`^(?:mmcblk|nvme\d+n|loop|md|nbd)\d+$`)
	plainPart  = regexp.MustCompile(`^([a-z]+)(\d+)$`)
)

// PartitionDevice returns the path of partition index on disk.
func PartitionDevice(disk string, index int) string {
	name := strings.TrimPrefix(EnsureDevPrefix(disk), "/dev/")
	if pInfixDisk.MatchString(name) {
		return "/dev/" + name + "p" + itoa(index)
	}
	return "/dev/" + name + itoa(index)
}

// BaseDisk takes a device like "/dev/mmcblk0p2" or "/dev/sda1" and returns
// the whole-disk path ("/dev/mmcblk0" or "/dev/sda").
func BaseDisk(dev string) string {
	name := strings.TrimPrefix(EnsureDevPrefix(dev), "/dev/")
	if m := pInfixPart.FindStringSubmatch(name); m != nil {
		return "/dev/" + m[1]
	}
	if pInfixDisk.MatchString(name) {
		return "/dev/" + name
	}
	if m := plainPart.FindStringSubmatch(name); m != nil {
		return "/dev/" + m[1]
	}
	return "/dev/" + name
}

// LooksLikePartition returns true if the given name appears to be a
// partition (e.g. /dev/sda1, /dev/mmcblk0p1).
func LooksLikePartition(dev string) bool {
	if dev == "" {
		return false
	}
	return BaseDisk(dev) != EnsureDevPrefix(dev)
}

// SameDisk reports whether a and b live on the same physical disk.
func SameDisk(a, b string) bool {
	return BaseDisk(a) == BaseDisk(b)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

// PartitionNumber extracts the index from a partition path such as
// /dev/sda2 or /dev/mmcblk0p2.
func PartitionNumber(dev string) (int, bool) {
	name := strings.TrimPrefix(EnsureDevPrefix(dev), "/dev/")
	var digits string
	switch {
	case pInfixPart.MatchString(name):
		digits = pInfixPart.FindStringSubmatch(name)[2]
	case pInfixDisk.MatchString(name):
		return 0, false
	case plainPart.MatchString(name):
		digits = plainPart.FindStringSubmatch(name)[2]
	default:
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	return n, err == nil && n > 0
}
