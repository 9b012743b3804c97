package imaging

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize(t *testing.T) {
	h := newHarness(t)
	h.runner.failOn[OpEject] = errors.New("udisksctl: not authorized")

	require.NoError(t, h.im.Finalize(context.Background(), "/dev/sda"))
	assert.Equal(t, []string{OpSync, OpReloadTable, OpEject}, h.runner.ops())
	assert.Equal(t, "udisksctl power-off -b /dev/sda", h.runner.steps[2].CommandLine())
}

func TestFinalizeEjectsWhenEjectIsDisabled(t *testing.T) {
	h := newHarness(t)
	h.im.Config.Eject = false

	require.NoError(t, h.im.Finalize(context.Background(), "/dev/sda"))
	assert.Equal(t, []string{OpSync, OpReloadTable, OpEject}, h.runner.ops())
}

func TestFinalizeStopsWhenSyncFails(t *testing.T) {
	h := newHarness(t)
	h.runner.failOn[OpSync] = errors.New("sync: I/O error")

	require.Error(t, h.im.Finalize(context.Background(), "/dev/sda"))
	assert.Equal(t, []string{OpSync}, h.runner.ops())
}

func TestFlashSkipsEjectWhenDisabled(t *testing.T) {
	h := newHarness(t, true)
	h.im.Config.Eject = false
	img := filepath.Join(h.im.Config.ImageDir, "pi.img")
	sparseFile(t, img, 1<<20)

	require.NoError(t, h.im.Flash(context.Background(), FlashRequest{Image: img, Device: "sda"}))
	assert.Equal(t, []string{OpWriteImage, OpSync, OpReloadTable}, h.runner.ops())
}
