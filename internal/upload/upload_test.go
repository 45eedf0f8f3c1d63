package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStage(t *testing.T) {
	dir := t.TempDir()
	data := []byte("fake jpeg bytes")

	f, err := Stage(dir, "chest scan.jpg", data, nil)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(f.Path))
	assert.True(t, strings.HasSuffix(f.Path, ".jpg"))

	onDisk, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	f.Release()
	_, err = os.Stat(f.Path)
	assert.True(t, os.IsNotExist(err))

	f.Release()
}

func TestStage_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	a, err := Stage(dir, "scan.png", []byte("a"), nil)
	require.NoError(t, err)
	defer a.Release()
	b, err := Stage(dir, "scan.png", []byte("b"), nil)
	require.NoError(t, err)
	defer b.Release()

	assert.NotEqual(t, a.Path, b.Path)
}

func TestStage_IgnoresDirectoryInFilename(t *testing.T) {
	dir := t.TempDir()
	f, err := Stage(dir, "../../etc/scan.png", []byte("x"), nil)
	require.NoError(t, err)
	defer f.Release()
	assert.Equal(t, dir, filepath.Dir(f.Path))
}

func TestStage_MissingDir(t *testing.T) {
	_, err := Stage(filepath.Join(t.TempDir(), "absent"), "scan.png", []byte("x"), nil)
	assert.Error(t, err)
}

func TestRelease_LogsFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	dir := t.TempDir()
	f, err := Stage(dir, "scan.png", []byte("x"), zap.New(core))
	require.NoError(t, err)

	// A non-empty directory in place of the file cannot be removed.
	require.NoError(t, os.Remove(f.Path))
	require.NoError(t, os.Mkdir(f.Path, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(f.Path, "child"), []byte("x"), 0o600))

	assert.NotPanics(t, f.Release)
	assert.Equal(t, 1, logs.FilterMessage("failed to remove staged upload").Len())
}
