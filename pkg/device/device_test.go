package device

import (
	"context"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jaypipes/ghw/pkg/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woliveiras/imager/pkg/sh"
)

type fakeExec struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeExec) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	line := sh.CommandLine(name, args...)
	f.calls = append(f.calls, line)
	out, ok := f.outputs[line]
	if !ok {
		return nil, errors.Newf("unexpected command %s", line)
	}
	return []byte(out), nil
}

func (f *fakeExec) Run(_ context.Context, _ io.Reader, name string, args ...string) error {
	f.calls = append(f.calls, sh.CommandLine(name, args...))
	return nil
}

const modernLsblk = `{
   "blockdevices": [
      {"name":"mmcblk0", "path":"/dev/mmcblk0", "type":"disk", "tran":null, "size":31914983424, "model":null, "pttype":"dos", "fstype":null, "rm":false, "mountpoint":null,
         "children": [
            {"name":"mmcblk0p1", "path":"/dev/mmcblk0p1", "type":"part", "tran":null, "size":268435456, "model":null, "pttype":"dos", "fstype":"vfat", "rm":false, "mountpoint":"/boot/firmware"},
            {"name":"mmcblk0p2", "path":"/dev/mmcblk0p2", "type":"part", "tran":null, "size":31642353664, "model":null, "pttype":"dos", "fstype":"ext4", "rm":false, "mountpoint":"/"}
         ]
      },
      {"name":"sda", "path":"/dev/sda", "type":"disk", "tran":"usb", "size":62008590336, "model":"Cruzer Blade    ", "pttype":null, "fstype":null, "rm":true, "mountpoint":null},
      {"name":"sr0", "path":"/dev/sr0", "type":"rom", "tran":"sata", "size":1073741312, "model":"DVD", "pttype":null, "fstype":null, "rm":true, "mountpoint":null},
      {"name":"sdb", "path":"/dev/sdb", "type":"disk", "tran":"usb", "size":0, "model":"Card Reader", "pttype":null, "fstype":null, "rm":true, "mountpoint":null}
   ]
}`

const legacyLsblk = `{
   "blockdevices": [
      {"name": "sdc", "type": "disk", "tran": "usb", "size": "15931539456", "model": "Ultra", "pttype": "gpt", "fstype": null, "rm": "1", "mountpoint": null,
         "children": [
            {"name": "sdc1", "type": "part", "tran": null, "size": "15930490880", "model": null, "pttype": "gpt", "fstype": "ext4", "rm": "1", "mountpoint": "/media/pi/data"}
         ]
      }
   ]
}`

func TestParseLsblkModern(t *testing.T) {
	drives, err := ParseLsblk([]byte(modernLsblk))
	require.NoError(t, err)
	require.Len(t, drives, 2)

	sd := drives[0]
	assert.Equal(t, "/dev/mmcblk0", sd.Path)
	assert.False(t, sd.Raw())
	assert.Equal(t, []string{"/boot/firmware", "/"}, sd.Mountpoints())

	usb := drives[1]
	assert.Equal(t, "Cruzer Blade", usb.Model)
	assert.Equal(t, "usb", usb.Tran)
	assert.True(t, usb.Removable)
	assert.True(t, usb.Raw())
	assert.Equal(t, uint64(62008590336), usb.Size)
}

func TestParseLsblkLegacyStrings(t *testing.T) {
	drives, err := ParseLsblk([]byte(legacyLsblk))
	require.NoError(t, err)
	require.Len(t, drives, 1)

	d := drives[0]
	assert.Equal(t, "/dev/sdc", d.Path)
	assert.Equal(t, uint64(15931539456), d.Size)
	assert.True(t, d.Removable)
	assert.Equal(t, "ext4", d.Children[0].FSType)
	assert.Equal(t, []string{"/media/pi/data"}, d.Mountpoints())
}

func TestParseLsblkRejectsGarbage(t *testing.T) {
	_, err := ParseLsblk([]byte("NAME SIZE"))
	require.Error(t, err)
}

func TestLsblkLister(t *testing.T) {
	exec := &fakeExec{outputs: map[string]string{
		"lsblk --json --bytes --output " + lsblkColumns: modernLsblk,
	}}
	drives, err := LsblkLister{Exec: exec}.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, drives, 2)
}

func TestCandidatesDropBootDisk(t *testing.T) {
	drives, err := ParseLsblk([]byte(modernLsblk))
	require.NoError(t, err)

	got := Candidates(drives, "")
	require.Len(t, got, 1)
	assert.Equal(t, "/dev/sda", got[0].Path)

	got = Candidates(drives, "/dev/sda")
	assert.Empty(t, got)
}

func TestFind(t *testing.T) {
	drives, err := ParseLsblk([]byte(modernLsblk))
	require.NoError(t, err)

	d, ok := Find(drives, "sda")
	require.True(t, ok)
	assert.Equal(t, "/dev/sda", d.Path)

	_, ok = Find(drives, "sdz")
	assert.False(t, ok)
}

func TestLabel(t *testing.T) {
	d := Drive{Path: "/dev/sda", Size: 62008590336, Tran: "usb", Model: "Cruzer Blade"}
	assert.Equal(t, "/dev/sda  58 GiB  usb  Cruzer Blade  (raw)", d.Label())
}

func TestSizes(t *testing.T) {
	exec := &fakeExec{outputs: map[string]string{
		"blockdev --getsz /dev/sda":     "121110528\n",
		"blockdev --getsize64 /dev/sda": "62008590336\n",
		"blockdev --getsize64 /dev/sdb": "\n",
		"blockdev --getsz /dev/mmcblk0": "nope\n",

		"lsblk --nodeps --noheadings --output FSTYPE /dev/sda2": "ext4\n",
	}}
	ctx := context.Background()

	sectors, err := Sectors(ctx, exec, "sda")
	require.NoError(t, err)
	assert.Equal(t, uint64(121110528), sectors)

	size, err := SizeBytes(ctx, exec, "/dev/sda")
	require.NoError(t, err)
	assert.Equal(t, uint64(62008590336), size)

	_, err = SizeBytes(ctx, exec, "/dev/sdb")
	assert.Error(t, err)
	_, err = Sectors(ctx, exec, "/dev/mmcblk0")
	assert.Error(t, err)

	fs, err := FSType(ctx, exec, "sda2")
	require.NoError(t, err)
	assert.Equal(t, "ext4", fs)
}

func TestNaming(t *testing.T) {
	cases := []struct {
		dev, base string
		part      bool
	}{
		{"/dev/sda1", "/dev/sda", true},
		{"/dev/sda", "/dev/sda", false},
		{"sdb", "/dev/sdb", false},
		{"/dev/mmcblk0p2", "/dev/mmcblk0", true},
		{"/dev/mmcblk0", "/dev/mmcblk0", false},
		{"/dev/nvme0n1p3", "/dev/nvme0n1", true},
		{"/dev/nvme0n1", "/dev/nvme0n1", false},
		{"/dev/loop0", "/dev/loop0", false},
		{"/dev/loop0p1", "/dev/loop0", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.base, BaseDisk(tc.dev), tc.dev)
		assert.Equal(t, tc.part, LooksLikePartition(tc.dev), tc.dev)
	}
	assert.False(t, LooksLikePartition(""))

	assert.Equal(t, "/dev/sda2", PartitionDevice("sda", 2))
	assert.Equal(t, "/dev/mmcblk0p1", PartitionDevice("/dev/mmcblk0", 1))
	assert.Equal(t, "/dev/nvme0n1p3", PartitionDevice("nvme0n1", 3))

	assert.True(t, SameDisk("/dev/sda1", "/dev/sda"))
	assert.False(t, SameDisk("/dev/sda1", "/dev/sdb1"))
	assert.True(t, SameDisk("/dev/mmcblk0p1", "/dev/mmcblk0"))
	assert.False(t, SameDisk("/dev/mmcblk0p1", "/dev/mmcblk1p1"))
}

func TestParseRootDevice(t *testing.T) {
	mounts := `/dev/mmcblk0p1 /boot vfat rw,relatime 0 0
/dev/mmcblk0p2 / ext4 rw,relatime 0 0
tmpfs /run tmpfs rw,nosuid,noexec,relatime,size=327552k,mode=755 0 0
`
	dev, err := parseRootDevice(mounts)
	require.NoError(t, err)
	assert.Equal(t, "/dev/mmcblk0p2", dev)

	_, err = parseRootDevice("tmpfs /run tmpfs rw 0 0\n")
	assert.Error(t, err)
}

func TestFromGhw(t *testing.T) {
	disks := []*block.Disk{
		{
			Name:      "sda",
			SizeBytes: 32017047552,
			Model:     "Flash Drive ",
			BusPath:   "pci-0000:00:14.0-usb-0:2:1.0-scsi-0:0:0:0",
			Partitions: []*block.Partition{
				{Name: "sda1", SizeBytes: 32015998976, Type: "vfat", MountPoint: "/media/usb"},
			},
		},
		{Name: "loop0", SizeBytes: 4096},
		{Name: "sdb", SizeBytes: 0},
	}

	drives := fromGhw(disks)
	require.Len(t, drives, 1)
	d := drives[0]
	assert.Equal(t, "/dev/sda", d.Path)
	assert.Equal(t, "usb", d.Tran)
	assert.Equal(t, "Flash Drive", d.Model)
	assert.False(t, d.Raw())
	assert.Equal(t, []string{"/media/usb"}, d.Mountpoints())
}

func TestPartitionNumber(t *testing.T) {
	cases := map[string]int{
		"/dev/sda2":      2,
		"/dev/mmcblk0p1": 1,
		"nvme0n1p12":     12,
	}
	for dev, want := range cases {
		n, ok := PartitionNumber(dev)
		require.True(t, ok, dev)
		assert.Equal(t, want, n, dev)
	}

	for _, dev := range []string{"/dev/sda", "/dev/mmcblk0", "/dev/nvme0n1", "/dev/dm-0"} {
		_, ok := PartitionNumber(dev)
		assert.False(t, ok, dev)
	}
}
