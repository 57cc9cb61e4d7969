// Package providers - Intel OpenVINO execution provider.
package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// OpenVINOProviderBackend uses Intel OpenVINO for inference optimization.
	OpenVINOProviderBackend ProviderBackend = "openvino"
)

// OpenVINOOptions contains arguments for the OpenVINO provider.
// See:
// https://onnxruntime.ai/docs/execution-providers/OpenVINO-ExecutionProvider.html#summary-of-options
type OpenVINOOptions struct {
	// Overrides the accelerator hardware type (CPU, GPU, NPU, ...).
	DeviceType string `json:"deviceType"           yaml:"deviceType"`
	// Inference precision: FP32, FP16 or ACCURACY. Empty uses the device default.
	Precision string `json:"precision"            yaml:"precision"`
	// Overrides the accelerator default number of threads. 0 keeps the default.
	NumOfThreads int `json:"numOfThreads"         yaml:"numOfThreads"`
	// Rewrite dynamic shaped models to static shape at runtime.
	DisableDynamicShapes bool `json:"disableDynamicShapes" yaml:"disableDynamicShapes"`
}

// isProviderOptions is a marker function to ensure the options are valid.
func (OpenVINOOptions) isProviderOptions() {}

// Values returns the options as the key/value pairs ONNX Runtime expects.
func (o OpenVINOOptions) Values() map[string]string {
	deviceType := o.DeviceType
	if deviceType == "" {
		deviceType = "CPU"
	}
	values := map[string]string{
		"device_type":            deviceType,
		"disable_dynamic_shapes": strconv.FormatBool(o.DisableDynamicShapes),
	}
	if o.Precision != "" {
		values["precision"] = o.Precision
	}
	if o.NumOfThreads > 0 {
		values["num_of_threads"] = strconv.Itoa(o.NumOfThreads)
	}
	return values
}

// OpenVINOProvider implements the ExecutionProvider interface.
type OpenVINOProvider struct {
	options OpenVINOOptions
}

// NewOpenVINOProvider creates a new OpenVINO provider.
func NewOpenVINOProvider(args OpenVINOOptions) *OpenVINOProvider {
	return &OpenVINOProvider{options: args}
}

// Backend returns the backend of the OpenVINO provider.
func (p *OpenVINOProvider) Backend() ProviderBackend {
	return OpenVINOProviderBackend
}

// Options returns the options of the OpenVINO provider.
func (p *OpenVINOProvider) Options() ProviderOptions {
	return p.options
}

// Apply appends the OpenVINO provider to the session options.
func (p *OpenVINOProvider) Apply(options *ort.SessionOptions) error {
	if err := options.AppendExecutionProviderOpenVINO(p.options.Values()); err != nil {
		return errors.Wrapf(err, "enable OpenVINO on %s", p.options.Values()["device_type"])
	}
	return nil
}
