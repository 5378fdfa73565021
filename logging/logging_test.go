package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zigtuner.log")
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	closer := Setup(config.LogConf{File: path, MaxSizeMB: 1}, true)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	log.Info("capture started")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "capture started")
}

func TestSetup_NoFile(t *testing.T) {
	closer := Setup(config.LogConf{}, false)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, nopCloser{}, closer)
	assert.NoError(t, closer.Close())
	assert.NoError(t, closer.Close())
}

func TestRedirect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zigtuner.log")
	closer := Setup(config.LogConf{File: path, MaxSizeMB: 1}, false)
	t.Cleanup(func() {
		closer.Close()
		Setup(config.LogConf{}, false)
	})

	var console bytes.Buffer
	restore := Redirect(&console)
	log.Info("channel 17 locked")
	restore()
	log.Info("back on stderr")

	assert.Contains(t, console.String(), "channel 17 locked")
	assert.NotContains(t, console.String(), "back on stderr")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "channel 17 locked")
	assert.Contains(t, string(data), "back on stderr")
}
