package imaging

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/config"
)

// CompressRequest selects the image to compress and the format.
type CompressRequest struct {
	Image string
	// Format is "gzip" or "xz"; empty means the configured default.
	Format string
}

// Compress shrinks and compresses an image in place with pishrink and returns
// the path of the compressed file.
func (im *Imager) Compress(ctx context.Context, req CompressRequest) (string, error) {
	if _, err := fileSize(req.Image); err != nil {
		return "", err
	}
	return im.compress(ctx, req.Image, req.Format)
}

func (im *Imager) compress(ctx context.Context, image, format string) (string, error) {
	if format == "" {
		format = im.Config.CompressFormat
	}

	var flag, ext string
	switch format {
	case config.FormatGzip:
		flag, ext = "-z", ".gz"
	case config.FormatXZ:
		flag, ext = "-Z", ".xz"
	default:
		return "", errors.Newf("unknown compression format %q", format)
	}

	out := image + ext
	if exists(out) {
		if err := im.confirm(fmt.Sprintf("%s already exists. Overwrite it?", out), false); err != nil {
			return "", err
		}
	}

	flags := []string{flag}
	if im.Config.CompressParallel {
		flags = append(flags, "-a")
	}
	step := im.shrinkStep(image, "", flags...)
	step.Operation = OpCompressImage
	step.Description = fmt.Sprintf("shrink and %s-compress %s into %s", format, image, out)

	err := im.execute(ctx, Plan{
		Operation:   KindCompress,
		Source:      image,
		Destination: out,
		Steps:       []Step{step},
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
