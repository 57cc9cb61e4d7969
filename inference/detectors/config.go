// Package detectors - ONNX object detectors and their configuration.
package detectors

import (
	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/inference/providers"
)

// DefaultInputSize is the model input edge used when neither the graph nor the metadata fix one.
const DefaultInputSize = 640

// Config represents the configuration for an ONNX detector.
type Config struct {
	// Provider holds the session threading and optimization settings.
	Provider providers.Config `json:"provider"`

	// LibraryPath is the ONNX Runtime shared library. Empty uses the platform default.
	LibraryPath string `json:"library_path"`

	// InputSize is the square model input edge for models with a dynamic input shape.
	// 0 reads it from the model metadata, falling back to DefaultInputSize.
	InputSize int `json:"input_size"`

	// SearchDirs lists the directories a relative weights reference is looked up in.
	SearchDirs []string `json:"search_dirs"`

	// InputName and OutputName override the tensor names read from the model.
	InputName  string `json:"input_name"`
	OutputName string `json:"output_name"`
}

// DefaultConfig returns the configuration used by the command line tool.
//
// Returns:
//   - Config: Default session settings, weights looked up in the working directory and models/.
func DefaultConfig() Config {
	return Config{
		Provider:   providers.DefaultConfig(),
		InputSize:  inference.DefaultParams().InputSize,
		SearchDirs: []string{".", "models"},
	}
}
