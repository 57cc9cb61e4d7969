// Package providers - ONNX Runtime execution providers and the device selector grammar.
package providers

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// ErrUnknownDevice is returned for a device selector outside the supported grammar.
var ErrUnknownDevice = errors.New("unknown device selector")

// ProviderBackend names an ONNX Runtime execution provider.
type ProviderBackend string

// ProviderOptions is a marker interface for provider-specific config.
type ProviderOptions interface {
	isProviderOptions()
}

// ExecutionProvider represents the contract that all execution providers must implement.
type ExecutionProvider interface {
	// Backend returns the provider name.
	Backend() ProviderBackend
	// Options returns the provider-specific options.
	Options() ProviderOptions
	// Apply appends the provider to the session options.
	Apply(options *ort.SessionOptions) error
}

// NewProvider creates a new provider based on the options type.
//
// Arguments:
//   - options: The options for the provider.
//
// Returns:
//   - ExecutionProvider: The new provider.
//   - error: An error if the options type has no provider.
func NewProvider(options ProviderOptions) (ExecutionProvider, error) {
	switch opts := options.(type) {
	case nil:
		return NewCPUProvider(CPUOptions{}), nil
	case CPUOptions:
		return NewCPUProvider(opts), nil
	case CUDAOptions:
		return NewCUDAProvider(opts), nil
	case TensorRTOptions:
		return NewTensorRTProvider(opts), nil
	case CoreMLOptions:
		return NewCoreMLProvider(opts), nil
	case OpenVINOOptions:
		return NewOpenVINOProvider(opts), nil
	default:
		return nil, errors.Errorf("unsupported provider options type: %T", opts)
	}
}

// ParseDevice turns a device selector into an execution provider.
//
// Accepted selectors, case-insensitive:
//
//	""                  ONNX Runtime default (CPU)
//	cpu
//	cuda, cuda:N, N     CUDA device N (0 when omitted)
//	tensorrt[:N]        TensorRT on CUDA device N
//	coreml, mps         Apple CoreML
//	openvino[:TYPE]     OpenVINO on TYPE (CPU, GPU, NPU, ...), CPU when omitted
//
// Arguments:
//   - selector: The device selector.
//
// Returns:
//   - ExecutionProvider: The provider for the selector.
//   - error: ErrUnknownDevice if the selector is not part of the grammar.
func ParseDevice(selector string) (ExecutionProvider, error) {
	s := strings.ToLower(strings.TrimSpace(selector))
	name, arg, hasArg := strings.Cut(s, ":")

	if !hasArg {
		if id, err := strconv.Atoi(name); err == nil {
			if id < 0 {
				return nil, errors.Wrapf(ErrUnknownDevice, "%q: negative device index", selector)
			}
			return NewCUDAProvider(CUDAOptions{DeviceID: id}), nil
		}
	}

	switch ProviderBackend(name) {
	case "", CPUProviderBackend:
		if hasArg {
			break
		}
		return NewCPUProvider(CPUOptions{}), nil
	case CUDAProviderBackend:
		id, err := deviceIndex(selector, arg, hasArg)
		if err != nil {
			return nil, err
		}
		return NewCUDAProvider(CUDAOptions{DeviceID: id}), nil
	case TensorRTProviderBackend:
		id, err := deviceIndex(selector, arg, hasArg)
		if err != nil {
			return nil, err
		}
		return NewTensorRTProvider(TensorRTOptions{DeviceID: id}), nil
	case CoreMLProviderBackend, "mps":
		if hasArg {
			break
		}
		return NewCoreMLProvider(CoreMLOptions{}), nil
	case OpenVINOProviderBackend:
		deviceType := "CPU"
		if hasArg {
			if arg == "" {
				return nil, errors.Wrapf(ErrUnknownDevice, "%q: empty OpenVINO device type", selector)
			}
			deviceType = strings.ToUpper(arg)
		}
		return NewOpenVINOProvider(OpenVINOOptions{DeviceType: deviceType}), nil
	}

	return nil, errors.Wrapf(ErrUnknownDevice, "%q", selector)
}

// deviceIndex parses the N of "name:N".
func deviceIndex(selector, arg string, hasArg bool) (int, error) {
	if !hasArg {
		return 0, nil
	}
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, errors.Wrapf(ErrUnknownDevice, "%q: device index must be a non-negative integer", selector)
	}
	return id, nil
}
