package device

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"

	"github.com/woliveiras/imager/pkg/sh"
)

// Lister enumerates whole disks.
type Lister interface {
	List(ctx context.Context) ([]Drive, error)
}

// lsblkColumns are the columns requested from lsblk.
const lsblkColumns = "NAME,PATH,TYPE,TRAN,SIZE,MODEL,PTTYPE,FSTYPE,RM,MOUNTPOINT"

// LsblkLister lists disks from `lsblk --json`.
type LsblkLister struct {
	Exec sh.Executor
}

// List .
func (l LsblkLister) List(ctx context.Context) ([]Drive, error) {
	out, err := l.Exec.Output(ctx, "lsblk", "--json", "--bytes", "--output", lsblkColumns)
	if err != nil {
		return nil, errors.Wrap(err, "list block devices")
	}
	return ParseLsblk(out)
}

type lsblkOutput struct {
	Blockdevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	Path       string        `json:"path"`
	Type       string        `json:"type"`
	Tran       *string       `json:"tran"`
	Size       flexUint      `json:"size"`
	Model      *string       `json:"model"`
	PTType     *string       `json:"pttype"`
	FSType     *string       `json:"fstype"`
	RM         flexBool      `json:"rm"`
	Mountpoint *string       `json:"mountpoint"`
	Children   []lsblkDevice `json:"children"`
}

// ParseLsblk decodes lsblk JSON and keeps non-empty disks.
func ParseLsblk(raw []byte) ([]Drive, error) {
	var out lsblkOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "parse lsblk output")
	}

	drives := lo.Map(out.Blockdevices, func(d lsblkDevice, _ int) Drive { return d.drive() })
	return lo.Filter(drives, func(d Drive, _ int) bool {
		return d.Type == "disk" && d.Size > 0
	}), nil
}

func (d lsblkDevice) drive() Drive {
	path := d.Path
	if path == "" {
		path = EnsureDevPrefix(d.Name)
	}
	return Drive{
		Name:       d.Name,
		Path:       path,
		Type:       d.Type,
		Tran:       deref(d.Tran),
		Model:      strings.TrimSpace(deref(d.Model)),
		PTType:     deref(d.PTType),
		FSType:     deref(d.FSType),
		Size:       uint64(d.Size),
		Removable:  bool(d.RM),
		Mountpoint: deref(d.Mountpoint),
		Children:   lo.Map(d.Children, func(c lsblkDevice, _ int) Drive { return c.drive() }),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// flexUint accepts both 123 and "123"; old lsblk releases quote numbers.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return errors.Wrapf(err, "bad size %s", b)
	}
	*f = flexUint(v)
	return nil
}

// flexBool accepts true/false as well as "1"/"0".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch string(bytes.Trim(b, `"`)) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// FSType asks lsblk for the filesystem on a partition.
func FSType(ctx context.Context, exec sh.Executor, dev string) (string, error) {
	out, err := exec.Output(ctx, "lsblk", "--nodeps", "--noheadings", "--output", "FSTYPE", EnsureDevPrefix(dev))
	if err != nil {
		return "", errors.Wrapf(err, "detect filesystem of %s", dev)
	}
	return strings.TrimSpace(string(out)), nil
}
