package device

import (
	"context"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/sh"
)

// Sectors returns the size of dev in 512-byte sectors (blockdev --getsz).
func Sectors(ctx context.Context, exec sh.Executor, dev string) (uint64, error) {
	return blockdev(ctx, exec, "--getsz", dev)
}

// SizeBytes returns the size of dev in bytes (blockdev --getsize64).
func SizeBytes(ctx context.Context, exec sh.Executor, dev string) (uint64, error) {
	return blockdev(ctx, exec, "--getsize64", dev)
}

func blockdev(ctx context.Context, exec sh.Executor, flag, dev string) (uint64, error) {
	dev = EnsureDevPrefix(dev)
	out, err := exec.Output(ctx, "blockdev", flag, dev)
	if err != nil {
		return 0, errors.Wrapf(err, "query size of %s", dev)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return 0, errors.Newf("blockdev returned empty size for %s", dev)
	}
	val, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot parse blockdev size %q for %s", text, dev)
	}
	return val, nil
}
