package log

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup("loud", "")
	require.Error(t, err)
}

func TestSetupWithFile(t *testing.T) {
	closer, err := Setup("debug", filepath.Join(t.TempDir(), "imager.log"))
	require.NoError(t, err)
	closer()
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.WarnLevel)

	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}
