package imaging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/device"
)

// Image is an image file in the image directory.
type Image struct {
	Name    string
	Path    string
	Size    uint64
	ModTime time.Time
}

// Label is the one-line description used in numbered menus.
func (i Image) Label() string {
	return fmt.Sprintf("%s  %s  %s", i.Name, device.FormatSize(i.Size), i.ModTime.Format("2006-01-02 15:04"))
}

// ListImages returns the regular files in dir whose name ends in suffix,
// sorted by name.
func ListImages(dir, suffix string) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read image directory %s", dir)
	}

	var images []Image
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		images = append(images, Image{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Size:    uint64(info.Size()),
			ModTime: info.ModTime(),
		})
	}
	return images, nil
}

// Images lists the images in the configured directory.
func (im *Imager) Images() ([]Image, error) {
	return ListImages(im.Config.ImageDir, im.Config.ImageSuffix)
}

// ImageName validates a free-text image name and returns the file name with
// the image suffix appended.
func ImageName(name, suffix string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", errors.New("image name is empty")
	case strings.ContainsRune(name, os.PathSeparator):
		return "", errors.Newf("image name %q must not contain %q", name, os.PathSeparator)
	case strings.HasPrefix(name, "."):
		return "", errors.Newf("image name %q must not start with a dot", name)
	}
	if !strings.HasSuffix(name, suffix) {
		name += suffix
	}
	return name, nil
}

func fileSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "stat %s", path)
	}
	if !info.Mode().IsRegular() {
		return 0, errors.Newf("%s is not a regular file", path)
	}
	return uint64(info.Size()), nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
