// Package providers - Inference sessions.
package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Session represents a model session from the onnxruntime with its bound tensors.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// Run executes the model on the current contents of Input and fills Output.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	return s.Session.Run()
}

// Close releases the resources associated with the Session. Calling it more than once is a no-op.
//
// Returns:
//   - error: The first error reported while destroying the native resources.
func (s *Session) Close() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if s.Session != nil {
		keep(errors.Wrap(s.Session.Destroy(), "destroy session"))
		s.Session = nil
	}
	if s.Input != nil {
		keep(errors.Wrap(s.Input.Destroy(), "destroy input tensor"))
		s.Input = nil
	}
	if s.Output != nil {
		keep(errors.Wrap(s.Output.Destroy(), "destroy output tensor"))
		s.Output = nil
	}

	return first
}

// NewSessionArgs represents the arguments for creating a new model session.
type NewSessionArgs struct {
	// The path to the ONNX model file.
	ModelPath string
	// The model input name, e.g. "images".
	InputName string
	// The model output name, e.g. "output0".
	OutputName string
	// The input shape [batch, channels, height, width].
	InputShape ort.Shape
	// The output shape, e.g. [1, 84, 8400] for an 80-class detection head.
	OutputShape ort.Shape
	// Threading and optimization settings.
	Config Config
}

// NewSession creates a new ONNX Runtime session with preallocated input and output tensors.
//
// The runtime environment must already be initialized.
//
// Order of operations:
//  1. Tensor allocation: fixed-shape buffers for input/output data.
//  2. Session options: threading, optimization level and the execution provider.
//  3. Session creation: loads the model and binds the tensors.
//
// Arguments:
//   - provider: The execution provider for the session. nil keeps the runtime default.
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session and its tensors. Close releases all of them.
//   - error: An error if the session creation fails.
func NewSession(provider ExecutionProvider, args NewSessionArgs) (*Session, error) {
	input, err := ort.NewEmptyTensor[float32](args.InputShape)
	if err != nil {
		return nil, errors.Wrapf(err, "create input tensor %v", args.InputShape)
	}

	output, err := ort.NewEmptyTensor[float32](args.OutputShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrapf(err, "create output tensor %v", args.OutputShape)
	}

	options, err := NewSessionOptions(provider, args.Config)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSession(
		args.ModelPath,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "create session for %s", args.ModelPath)
	}

	return &Session{
		Session: session,
		Input:   input,
		Output:  output,
	}, nil
}
