package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSpecs(t *testing.T) {
	specs := DefaultSpecs("models")
	require.Len(t, specs, 2)

	assert.Equal(t, "mri", specs[0].Name)
	assert.Equal(t, filepath.Join("models", "mri.onnx"), specs[0].Path)
	assert.Equal(t, filepath.Join("models", "mri.json"), specs[0].MetadataPath)
	assert.Equal(t, 4, specs[0].Classes)

	assert.Equal(t, "xray", specs[1].Name)
	assert.Equal(t, 2, specs[1].Classes)
}

func TestReadMetadata(t *testing.T) {
	t.Run("defaults when file is missing", func(t *testing.T) {
		spec := Spec{Name: "xray", MetadataPath: filepath.Join(t.TempDir(), "xray.json"), Classes: 2}
		meta, err := ReadMetadata(spec)
		require.NoError(t, err)
		assert.Equal(t, "input", meta.InputName)
		assert.Equal(t, "output", meta.OutputName)
		assert.Equal(t, []int64{1, 2}, meta.OutputShape)
	})

	t.Run("reads exported metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "xray.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"input_name": "input_1",
			"output_name": "dense_2",
			"input_shape": [1, 224, 224, 3],
			"output_shape": [1, 1]
		}`), 0o600))

		meta, err := ReadMetadata(Spec{MetadataPath: path, Classes: 2})
		require.NoError(t, err)
		assert.Equal(t, "input_1", meta.InputName)
		assert.Equal(t, "dense_2", meta.OutputName)
		assert.Equal(t, []int64{1, 224, 224, 3}, meta.InputShape)
		assert.Equal(t, []int64{1, 1}, meta.OutputShape)
	})

	t.Run("rejects malformed metadata", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mri.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))
		_, err := ReadMetadata(Spec{MetadataPath: path})
		assert.Error(t, err)
	})
}
