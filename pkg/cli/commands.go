package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/woliveiras/imager/pkg/config"
	"github.com/woliveiras/imager/pkg/device"
	"github.com/woliveiras/imager/pkg/imaging"
)

func listDrives(c *cli.Context, rt *Runtime) error {
	return rt.listDrives(c.Context)
}

func listImages(_ *cli.Context, rt *Runtime) error {
	return rt.listImages()
}

func flash(c *cli.Context, rt *Runtime) error {
	return rt.flash(c.Context, c.String("image"), c.String("device"))
}

func clone(c *cli.Context, rt *Runtime) error {
	return rt.clone(c.Context, c.String("source"), c.String("destination"))
}

func create(c *cli.Context, rt *Runtime) error {
	return rt.create(c.Context, imaging.CreateRequest{
		Source:   c.String("source"),
		Name:     c.String("name"),
		Shrink:   c.Bool("shrink"),
		Compress: c.String("compress"),
	})
}

func compress(c *cli.Context, rt *Runtime) error {
	return rt.compress(c.Context, c.String("image"), c.String("format"))
}

func eject(c *cli.Context, rt *Runtime) error {
	return rt.eject(c.Context, c.String("device"))
}

func (rt *Runtime) listDrives(ctx context.Context) error {
	drives, err := rt.Imager.Drives(ctx)
	if err != nil {
		return err
	}
	if len(drives) < 1 {
		rt.UI.Println("No drives found.")
		return nil
	}

	for _, d := range drives {
		label := d.Label()
		if rt.Imager.BootDisk != "" && device.SameDisk(d.Path, rt.Imager.BootDisk) {
			label += "  [boot]"
		}
		rt.UI.Println(label)
		for _, p := range d.Children {
			rt.UI.Println("   ", strings.TrimSpace(strings.Join([]string{p.Path, p.FSType, p.Mountpoint}, "  ")))
		}
	}
	return nil
}

func (rt *Runtime) listImages() error {
	images, err := rt.Imager.Images()
	if err != nil {
		return err
	}
	if len(images) < 1 {
		rt.UI.Printf("No %s files in %s.\n", rt.Config.ImageSuffix, rt.Config.ImageDir)
		return nil
	}
	for _, img := range images {
		rt.UI.Println(img.Label())
	}
	return nil
}

func (rt *Runtime) flash(ctx context.Context, image, dev string) error {
	if err := rt.Check(imaging.KindFlash); err != nil {
		return err
	}

	image, err := rt.pickImage(image)
	if err != nil {
		return err
	}
	targets, err := rt.Imager.Targets(ctx)
	if err != nil {
		return err
	}
	if dev, err = rt.pickDrive("Destination drive:", dev, targets); err != nil {
		return err
	}

	if err := rt.Imager.Flash(ctx, imaging.FlashRequest{Image: image, Device: dev}); err != nil {
		return err
	}
	rt.UI.Printf("Wrote %s to %s.\n", filepath.Base(image), device.EnsureDevPrefix(dev))
	return nil
}

func (rt *Runtime) clone(ctx context.Context, src, dst string) error {
	if err := rt.Check(imaging.KindClone); err != nil {
		return err
	}

	drives, err := rt.Imager.Drives(ctx)
	if err != nil {
		return err
	}
	if src, err = rt.pickDrive("Source drive:", src, drives); err != nil {
		return err
	}

	targets, err := rt.Imager.Targets(ctx)
	if err != nil {
		return err
	}
	targets = lo.Reject(targets, func(d device.Drive, _ int) bool {
		return device.SameDisk(d.Path, device.EnsureDevPrefix(src))
	})
	if dst, err = rt.pickDrive("Destination drive:", dst, targets); err != nil {
		return err
	}

	if err := rt.Imager.Clone(ctx, imaging.CloneRequest{Source: src, Destination: dst}); err != nil {
		return err
	}
	rt.UI.Printf("Cloned %s to %s.\n", device.EnsureDevPrefix(src), device.EnsureDevPrefix(dst))
	return nil
}

func (rt *Runtime) create(ctx context.Context, req imaging.CreateRequest) error {
	if err := rt.Check(imaging.KindCreate); err != nil {
		return err
	}
	if req.Shrink || req.Compress != "" {
		if err := rt.Check(imaging.KindCompress); err != nil {
			return err
		}
	}

	drives, err := rt.Imager.Drives(ctx)
	if err != nil {
		return err
	}
	if req.Source, err = rt.pickDrive("Source drive:", req.Source, drives); err != nil {
		return err
	}
	if req.Name == "" {
		if req.Name, err = rt.UI.Ask("Image name: "); err != nil {
			return err
		}
	}

	path, err := rt.Imager.CreateImage(ctx, req)
	if err != nil {
		return err
	}
	rt.UI.Printf("Image written to %s.\n", path)
	return nil
}

func (rt *Runtime) compress(ctx context.Context, image, format string) error {
	if err := rt.Check(imaging.KindCompress); err != nil {
		return err
	}

	image, err := rt.pickImage(image)
	if err != nil {
		return err
	}
	out, err := rt.Imager.Compress(ctx, imaging.CompressRequest{Image: image, Format: format})
	if err != nil {
		return err
	}
	rt.UI.Printf("Compressed image written to %s.\n", out)
	return nil
}

func (rt *Runtime) eject(ctx context.Context, dev string) error {
	targets, err := rt.Imager.Targets(ctx)
	if err != nil {
		return err
	}
	if dev, err = rt.pickDrive("Drive to eject:", dev, targets); err != nil {
		return err
	}
	return rt.Imager.Finalize(ctx, device.EnsureDevPrefix(dev))
}

// pickImage resolves a name given on the command line against the image
// directory, or asks for one of the images in it.
func (rt *Runtime) pickImage(name string) (string, error) {
	if name != "" {
		if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
			return name, nil
		}
		return filepath.Join(rt.Config.ImageDir, name), nil
	}

	images, err := rt.Imager.Images()
	if err != nil {
		return "", err
	}
	if len(images) < 1 {
		return "", errors.Newf("no %s files in %s", rt.Config.ImageSuffix, rt.Config.ImageDir)
	}
	idx, err := rt.UI.Choose("Images:", lo.Map(images, func(img imaging.Image, _ int) string {
		return img.Label()
	}))
	if err != nil {
		return "", err
	}
	return images[idx].Path, nil
}

func (rt *Runtime) pickDrive(prompt, name string, drives []device.Drive) (string, error) {
	if name != "" {
		return name, nil
	}
	if len(drives) < 1 {
		return "", errors.New("no suitable drive found")
	}
	idx, err := rt.UI.Choose(prompt, lo.Map(drives, func(d device.Drive, _ int) string {
		return d.Label()
	}))
	if err != nil {
		return "", err
	}
	return drives[idx].Path, nil
}

// askCreateOptions completes a create request interactively.
func (rt *Runtime) askCreateOptions(req *imaging.CreateRequest) error {
	shrink, err := rt.UI.Confirm("Shrink the image with pishrink?")
	if err != nil {
		return err
	}
	req.Shrink = shrink

	formats := []string{"none", config.FormatGzip, config.FormatXZ}
	idx, err := rt.UI.Choose("Compression:", formats)
	if err != nil {
		return err
	}
	if idx > 0 {
		req.Compress = formats[idx]
	}
	return nil
}
