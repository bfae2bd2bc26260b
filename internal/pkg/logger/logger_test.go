package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(LogOption{Format: "json", LogDir: dir, Level: "debug", FileName: "decoder.log"}))
	t.Cleanup(func() { _ = Init(LogOption{}) })

	Debugf("decoded %d instructions", 3)
	Warnf("unknown program %s", "abc")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, "decoder.log"))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "decoded 3 instructions"))
	assert.True(t, strings.Contains(text, `"level":"WARN"`))
}

func TestInit_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(LogOption{LogDir: dir, Level: "warn"}))
	t.Cleanup(func() { _ = Init(LogOption{}) })

	Infof("hidden")
	Errorf("shown")
	Sync()

	data, err := os.ReadFile(filepath.Join(dir, defaultFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestInit_InvalidOptions(t *testing.T) {
	assert.Error(t, Init(LogOption{Level: "loud"}))
	assert.Error(t, Init(LogOption{Format: "xml"}))
	assert.NotNil(t, L())
}
