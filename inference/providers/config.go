// Package providers - Session configuration for ONNX inference.
package providers

import (
	"runtime"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Config controls how a model session is created.
type Config struct {
	// Device is the device selector, see ParseDevice.
	Device string `json:"device" yaml:"device"`

	// GraphOptimizationLevel controls the level of graph optimization.
	GraphOptimizationLevel ort.GraphOptimizationLevel `json:"graph_optimization_level"`

	// ExecutionMode controls sequential vs parallel execution.
	ExecutionMode ort.ExecutionMode `json:"execution_mode"`

	// IntraOpNumThreads sets threads for parallelizing ops. 0 uses the runtime default.
	IntraOpNumThreads int `json:"intra_op_num_threads"`

	// InterOpNumThreads sets threads for parallelizing independent ops. 0 uses the runtime default.
	InterOpNumThreads int `json:"inter_op_num_threads"`
}

// DefaultConfig returns a configuration tuned for one sequential inference call per frame.
//
// Returns:
//   - Config: The default configuration on the runtime's default device.
func DefaultConfig() Config {
	return Config{
		GraphOptimizationLevel: ort.GraphOptimizationLevelEnableExtended,
		ExecutionMode:          ort.ExecutionModeSequential,
		IntraOpNumThreads:      max(1, runtime.NumCPU()/2),
		InterOpNumThreads:      1,
	}
}

// NewSessionOptions creates ONNX Runtime session options for provider.
//
// The caller owns the returned options and must Destroy them once the session
// has been created.
//
// Arguments:
//   - provider: The execution provider to append. nil keeps the runtime default.
//   - config: Threading and optimization settings.
//
// Returns:
//   - *ort.SessionOptions: The configured options.
//   - error: An error if the options cannot be created or the provider cannot be enabled.
func NewSessionOptions(provider ExecutionProvider, config Config) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "create session options")
	}

	if err := configure(options, config); err != nil {
		options.Destroy()
		return nil, err
	}

	if provider != nil {
		if err := provider.Apply(options); err != nil {
			options.Destroy()
			return nil, errors.Wrapf(err, "provider %s", provider.Backend())
		}
	}

	return options, nil
}

func configure(options *ort.SessionOptions, config Config) error {
	if err := options.SetGraphOptimizationLevel(config.GraphOptimizationLevel); err != nil {
		return errors.Wrap(err, "set graph optimization level")
	}
	if err := options.SetExecutionMode(config.ExecutionMode); err != nil {
		return errors.Wrap(err, "set execution mode")
	}
	if config.IntraOpNumThreads > 0 {
		if err := options.SetIntraOpNumThreads(config.IntraOpNumThreads); err != nil {
			return errors.Wrap(err, "set intra-op threads")
		}
	}
	if config.InterOpNumThreads > 0 {
		if err := options.SetInterOpNumThreads(config.InterOpNumThreads); err != nil {
			return errors.Wrap(err, "set inter-op threads")
		}
	}
	return nil
}
