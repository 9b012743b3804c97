package imaging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendStateLogWritesPlanAndApplyBlocks(t *testing.T) {
	file := filepath.Join(t.TempDir(), "imager.state")
	plan := Plan{
		Operation:   KindClone,
		Source:      "/dev/mmcblk0",
		Destination: "/dev/sda",
		Steps:       []Step{{Operation: OpCopyDisk, Name: "dd", Args: []string{"if=/dev/mmcblk0", "of=/dev/sda"}}},
	}

	require.NoError(t, AppendStateLog(file, plan, PhasePlan, nil))
	require.NoError(t, AppendStateLog(file, plan, PhaseFailed, errors.New("disk vanished")))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	text := string(data)

	assert.Equal(t, 1, strings.Count(text, "# imager state log"))
	assert.Contains(t, text, "=== PLAN clone ")
	assert.Contains(t, text, "=== APPLY_FAILED clone ")
	assert.Contains(t, text, "destination: /dev/sda")
	assert.Contains(t, text, "- copy-disk: dd if=/dev/mmcblk0 of=/dev/sda")
	assert.Contains(t, text, "result: PENDING APPLY")
	assert.Contains(t, text, "result: FAILED: disk vanished")
}
