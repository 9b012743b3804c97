package imaging

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/config"
	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/sh"
)

type fakeExec struct {
	outputs map[string]string
}

func (f *fakeExec) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	line := sh.CommandLine(name, args...)
	out, ok := f.outputs[line]
	if !ok {
		return nil, errors.Newf("unexpected query %s", line)
	}
	return []byte(out), nil
}

func (f *fakeExec) Run(context.Context, io.Reader, string, ...string) error {
	return errors.New("steps must go through the runner")
}

type recordRunner struct {
	steps  []Step
	failOn map[string]error
	onRun  func(Step)
}

func (r *recordRunner) Run(_ context.Context, step Step) error {
	r.steps = append(r.steps, step)
	if r.onRun != nil {
		r.onRun(step)
	}
	return r.failOn[step.Operation]
}

func (r *recordRunner) ops() []string {
	ops := make([]string, len(r.steps))
	for i, s := range r.steps {
		ops[i] = s.Operation
	}
	return ops
}

type scriptedConfirm struct {
	answers []bool
	prompts []string
}

func (s *scriptedConfirm) Confirm(prompt string) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return false, errors.New("no scripted answer left")
	}
	ans := s.answers[0]
	s.answers = s.answers[1:]
	return ans, nil
}

type fakeLister []device.Drive

func (f fakeLister) List(context.Context) ([]device.Drive, error) { return f, nil }

const (
	sdBytes    = 31914983424
	bigBytes   = 62008590336
	smallBytes = 15931539456
)

const sdDump = `label: dos
label-id: 0x3a1b2c4d
device: /dev/mmcblk0
unit: sectors
sector-size: 512

/dev/mmcblk0p1 : start=        8192, size=      524288, type=c
/dev/mmcblk0p2 : start=      532480, size=    61011968, type=83
`

func testDrives() fakeLister {
	return fakeLister{
		{
			Name: "mmcblk0", Path: "/dev/mmcblk0", Type: "disk", PTType: "dos", Size: sdBytes,
			Children: []device.Drive{
				{Name: "mmcblk0p1", Path: "/dev/mmcblk0p1", Type: "part", FSType: "vfat", Mountpoint: "/boot/firmware"},
				{Name: "mmcblk0p2", Path: "/dev/mmcblk0p2", Type: "part", FSType: "ext4", Mountpoint: "/"},
			},
		},
		{Name: "sda", Path: "/dev/sda", Type: "disk", Tran: "usb", Size: bigBytes, Model: "Cruzer"},
		{Name: "sdb", Path: "/dev/sdb", Type: "disk", Tran: "usb", Size: smallBytes},
		{
			Name: "sdc", Path: "/dev/sdc", Type: "disk", Tran: "usb", Size: bigBytes, PTType: "dos",
			Children: []device.Drive{
				{Name: "sdc1", Path: "/dev/sdc1", Type: "part", Mountpoint: "/media/pi/data"},
			},
		},
	}
}

func testOutputs() map[string]string {
	return map[string]string{
		"blockdev --getsize64 /dev/mmcblk0": "31914983424\n",
		"blockdev --getsize64 /dev/sda":     "62008590336\n",
		"blockdev --getsize64 /dev/sdb":     "15931539456\n",
		"blockdev --getsz /dev/sda":         "121110528\n",
		"blockdev --getsz /dev/sdb":         "31116288\n",
		"sfdisk --dump /dev/mmcblk0":        sdDump,
	}
}

type harness struct {
	im      *Imager
	runner  *recordRunner
	confirm *scriptedConfirm
	exec    *fakeExec
}

func newHarness(t *testing.T, answers ...bool) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.ImageDir = t.TempDir()
	cfg.StateFile = filepath.Join(t.TempDir(), "imager.state")

	h := &harness{
		runner:  &recordRunner{failOn: map[string]error{}},
		confirm: &scriptedConfirm{answers: answers},
		exec:    &fakeExec{outputs: testOutputs()},
	}
	h.im = &Imager{
		Exec:    h.exec,
		Runner:  h.runner,
		Lister:  testDrives(),
		Confirm: h.confirm,
		Config:  cfg,
	}
	return h
}
