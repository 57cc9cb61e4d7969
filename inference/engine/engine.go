// Package engine - Builds a ready-to-run detector from a device selector and a weights reference.
package engine

import (
	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/inference/detectors"
	"github.com/nvr-ai/persondetect/inference/providers"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// EngineBuilder assembles a detector with a fluent API.
//
// Every step is skipped once a previous step has failed; Build reports the
// first failure as an *inference.LoadError naming the weights reference.
type EngineBuilder struct {
	logger    *zap.Logger
	device    string
	provider  providers.ExecutionProvider
	ref       string
	modelPath string
	detector  inference.Detector
	err       error
}

// NewEngineBuilder creates a new engine builder.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func NewEngineBuilder() *EngineBuilder {
	return &EngineBuilder{logger: zap.NewNop()}
}

// WithLogger sets the logger handed to the detector.
func (b *EngineBuilder) WithLogger(logger *zap.Logger) *EngineBuilder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithProvider sets the execution provider from a device selector.
//
// Arguments:
//   - device: The device selector, see providers.ParseDevice. "" keeps the runtime default.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithProvider(device string) *EngineBuilder {
	b.device = device
	if b.HasError() {
		return b
	}

	provider, err := providers.ParseDevice(device)
	if err != nil {
		b.err = err
		return b
	}
	b.provider = provider
	return b
}

// WithModel resolves the weights reference to a model file.
//
// Arguments:
//   - ref: The weights reference, see detectors.ResolveWeights.
//   - dirs: The directories to search. None uses the working directory and models/.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithModel(ref string, dirs ...string) *EngineBuilder {
	b.ref = ref
	if b.HasError() {
		return b
	}
	if len(dirs) == 0 {
		dirs = detectors.DefaultConfig().SearchDirs
	}

	path, err := detectors.ResolveWeights(ref, dirs)
	if err != nil {
		b.err = err
		return b
	}
	b.modelPath = path
	return b
}

// WithDetector loads the model on the provider.
//
// Arguments:
//   - cfg: The detector configuration.
//
// Returns:
//   - *EngineBuilder: The engine builder.
func (b *EngineBuilder) WithDetector(cfg detectors.Config) *EngineBuilder {
	if b.HasError() {
		return b
	}
	if b.modelPath == "" {
		b.err = errors.New("model not configured")
		return b
	}
	if b.provider == nil {
		b.provider = providers.NewCPUProvider(providers.CPUOptions{})
	}
	cfg.Provider.Device = b.device

	b.logger.Debug("loading detector",
		zap.String("weights", b.ref),
		zap.String("model", b.modelPath),
		zap.String("provider", string(b.provider.Backend())),
	)

	detector, err := detectors.NewONNXDetector(b.provider, b.modelPath, cfg, b.logger)
	if err != nil {
		b.err = err
		return b
	}
	b.detector = detector
	return b
}

// HasError checks if the engine builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *EngineBuilder) HasError() bool {
	return b.err != nil
}

// Build returns the detector.
//
// Returns:
//   - inference.Detector: The loaded detector. The caller must Close it.
//   - error: An *inference.LoadError matching inference.ErrModelLoad.
func (b *EngineBuilder) Build() (inference.Detector, error) {
	if b.HasError() {
		return nil, inference.NewLoadError(b.ref, b.device, b.err)
	}
	if b.detector == nil {
		return nil, inference.NewLoadError(b.ref, b.device, errors.New("detector not configured"))
	}
	return b.detector, nil
}

// MustBuild builds the detector and panics if there is an error.
//
// Returns:
//   - inference.Detector: The detector.
func (b *EngineBuilder) MustBuild() inference.Detector {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Load is the one-call form of the builder used by the command line tool.
//
// Arguments:
//   - weights: The weights reference.
//   - device: The device selector.
//   - cfg: The detector configuration.
//   - logger: The logger.
//
// Returns:
//   - inference.Detector: The loaded detector.
//   - error: An *inference.LoadError matching inference.ErrModelLoad.
func Load(weights, device string, cfg detectors.Config, logger *zap.Logger) (inference.Detector, error) {
	return NewEngineBuilder().
		WithLogger(logger).
		WithProvider(device).
		WithModel(weights, cfg.SearchDirs...).
		WithDetector(cfg).
		Build()
}
