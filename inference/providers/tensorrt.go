// Package providers - NVIDIA TensorRT execution provider.
package providers

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// TensorRTProviderBackend uses NVIDIA TensorRT for optimized inference.
	TensorRTProviderBackend ProviderBackend = "tensorrt"
)

// TensorRTOptions contains arguments for the TensorRT provider.
// See: https://onnxruntime.ai/docs/execution-providers/TensorRT-ExecutionProvider.html
type TensorRTOptions struct {
	// The device ID.
	DeviceID int `json:"deviceID"           yaml:"deviceID"`
	// Maximum workspace size in bytes. 0 keeps the default.
	MaxWorkspaceSize int64 `json:"maxWorkspaceSize"   yaml:"maxWorkspaceSize"`
	// Build FP16 engines.
	FP16 bool `json:"fp16"               yaml:"fp16"`
	// Directory for serialized engines. Empty disables the cache.
	EngineCachePath string `json:"engineCachePath"    yaml:"engineCachePath"`
}

func (TensorRTOptions) isProviderOptions() {}

// Values returns the options as the key/value pairs ONNX Runtime expects.
func (o TensorRTOptions) Values() map[string]string {
	values := map[string]string{
		"device_id":       strconv.Itoa(o.DeviceID),
		"trt_fp16_enable": strconv.FormatBool(o.FP16),
	}
	if o.MaxWorkspaceSize > 0 {
		values["trt_max_workspace_size"] = strconv.FormatInt(o.MaxWorkspaceSize, 10)
	}
	if o.EngineCachePath != "" {
		values["trt_engine_cache_enable"] = "true"
		values["trt_engine_cache_path"] = o.EngineCachePath
	}
	return values
}

// TensorRTProvider implements the ExecutionProvider interface.
type TensorRTProvider struct {
	options TensorRTOptions
}

// NewTensorRTProvider creates a new TensorRT provider.
func NewTensorRTProvider(args TensorRTOptions) *TensorRTProvider {
	return &TensorRTProvider{options: args}
}

// Backend returns the backend of the TensorRT provider.
func (p *TensorRTProvider) Backend() ProviderBackend {
	return TensorRTProviderBackend
}

// Options returns the options of the TensorRT provider.
func (p *TensorRTProvider) Options() ProviderOptions {
	return p.options
}

// Apply appends the TensorRT provider to the session options.
func (p *TensorRTProvider) Apply(options *ort.SessionOptions) error {
	trt, err := ort.NewTensorRTProviderOptions()
	if err != nil {
		return errors.Wrap(err, "create TensorRT provider options")
	}
	defer trt.Destroy()

	if err := trt.Update(p.options.Values()); err != nil {
		return errors.Wrap(err, "update TensorRT provider options")
	}
	if err := options.AppendExecutionProviderTensorRT(trt); err != nil {
		return errors.Wrapf(err, "enable TensorRT on device %d", p.options.DeviceID)
	}
	return nil
}
