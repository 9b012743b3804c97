package imaging

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/config"
	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/log"
	"github.com/woliveiras/imager/pkg/sh"
)

var (
	// ErrAborted is returned when the user declines a confirmation.
	ErrAborted = errors.New("aborted by user")
	// ErrImageTooLarge means the image cannot be made to fit the drive.
	ErrImageTooLarge = errors.New("image does not fit on the destination drive")
	// ErrDestinationTooSmall means a raw drive cannot be copied to a smaller one.
	ErrDestinationTooSmall = errors.New("destination drive is smaller than the source")
	// ErrNoSpace means the image directory cannot hold the new image.
	ErrNoSpace = errors.New("not enough free space for the image")
	// ErrUnsafeTarget is returned when a destination fails the safety checks.
	ErrUnsafeTarget = errors.New("unsafe destination")
)

// Confirmer answers the yes/no questions asked before destructive steps.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Imager carries what every operation needs: a way to query the system, a
// way to run destructive steps and a way to ask the user.
type Imager struct {
	Exec    sh.Executor
	Runner  Runner
	Lister  device.Lister
	Confirm Confirmer
	Config  config.Config

	// BootDisk is never accepted as a destination.
	BootDisk string
	// AssumeYes answers ordinary confirmations without asking.
	AssumeYes bool
	// Force extends AssumeYes to confirmations that accept data loss, such
	// as truncating the last partition of a clone.
	Force bool
}

// New .
func New(exec sh.Executor, runner Runner, confirm Confirmer, conf config.Config) *Imager {
	boot, err := device.BootDisk()
	if err != nil {
		log.Warnf("cannot detect boot disk: %v", err)
	}
	return &Imager{
		Exec:     exec,
		Runner:   runner,
		Lister:   device.NewLister(exec),
		Confirm:  confirm,
		Config:   conf,
		BootDisk: boot,
	}
}

func (im *Imager) confirm(prompt string, risky bool) error {
	if im.AssumeYes && (!risky || im.Force) {
		log.Infof("%s yes (assumed)", prompt)
		return nil
	}
	ok, err := im.Confirm.Confirm(prompt)
	if err != nil {
		return errors.Wrap(err, "read confirmation")
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

// Drives lists every disk on the host.
func (im *Imager) Drives(ctx context.Context) ([]device.Drive, error) {
	return im.Lister.List(ctx)
}

// Targets lists the disks that may be written to.
func (im *Imager) Targets(ctx context.Context) ([]device.Drive, error) {
	drives, err := im.Lister.List(ctx)
	if err != nil {
		return nil, err
	}
	return device.Candidates(drives, im.BootDisk), nil
}

func (im *Imager) findDrive(ctx context.Context, name string) (device.Drive, error) {
	drives, err := im.Lister.List(ctx)
	if err != nil {
		return device.Drive{}, err
	}
	d, ok := device.Find(drives, name)
	if !ok {
		return device.Drive{}, errors.Newf("drive %s not found", device.EnsureDevPrefix(name))
	}
	return d, nil
}
