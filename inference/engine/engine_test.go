package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/inference/detectors"
	"github.com/nvr-ai/persondetect/inference/providers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUnknownDevice(t *testing.T) {
	d, err := NewEngineBuilder().
		WithProvider("tpu").
		WithModel("yolo11n.pt", t.TempDir()).
		WithDetector(detectors.DefaultConfig()).
		Build()

	assert.Nil(t, d)
	assert.True(t, errors.Is(err, inference.ErrModelLoad))
	assert.True(t, errors.Is(err, providers.ErrUnknownDevice))

	var le *inference.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "yolo11n.pt", le.Ref)
	assert.Equal(t, "tpu", le.Device)
}

func TestBuildMissingWeights(t *testing.T) {
	cfg := detectors.DefaultConfig()
	cfg.SearchDirs = []string{t.TempDir()}

	d, err := Load("yolo11n.pt", "cpu", cfg, nil)
	assert.Nil(t, d)
	assert.True(t, errors.Is(err, inference.ErrModelLoad))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "yolo11n.pt")
}

func TestBuildMissingRuntimeLibrary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yolo11n.onnx"), []byte("not a model"), 0o644))

	cfg := detectors.DefaultConfig()
	cfg.SearchDirs = []string{dir}
	cfg.LibraryPath = filepath.Join(dir, "missing", "onnxruntime.so")

	b := NewEngineBuilder().WithProvider("").WithModel("yolo11n", dir)
	require.False(t, b.HasError())

	_, err := b.WithDetector(cfg).Build()
	if err == nil {
		t.Skip("an ONNX Runtime environment was already initialized in this process")
	}
	assert.True(t, errors.Is(err, inference.ErrModelLoad))
	assert.Contains(t, err.Error(), "yolo11n")
}

func TestBuildWithoutDetector(t *testing.T) {
	_, err := NewEngineBuilder().Build()
	assert.True(t, errors.Is(err, inference.ErrModelLoad))

	assert.Panics(t, func() { NewEngineBuilder().WithProvider("bogus").MustBuild() })
}
