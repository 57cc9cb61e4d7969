package inference

import (
	"os"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// GetSharedLibPath returns the path to the ONNX Runtime shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library, relative to the working directory.
func GetSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
}

// InitializeRuntime loads the ONNX Runtime shared library and prepares the process-wide environment.
//
// It is safe to call more than once; only the first successful call loads the library.
//
// Arguments:
//   - libPath: The shared library path, or "" for GetSharedLibPath.
//
// Returns:
//   - error: An error if the library is missing or fails to initialize.
func InitializeRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	if libPath == "" {
		libPath = GetSharedLibPath()
	}
	if _, err := os.Stat(libPath); err != nil {
		return errors.Wrapf(err, "onnx runtime library not found at %s", libPath)
	}

	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(err, "initialize onnx runtime from %s", libPath)
	}
	if err := ort.SetEnvironmentLogLevel(ort.LoggingLevelWarning); err != nil {
		return errors.Wrap(err, "set onnx runtime log level")
	}
	return nil
}

// ShutdownRuntime releases the process-wide environment. Calling it when the
// runtime was never initialized is a no-op.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return errors.Wrap(ort.DestroyEnvironment(), "destroy onnx runtime environment")
}
