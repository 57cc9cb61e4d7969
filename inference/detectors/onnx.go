// Package detectors - ONNX model inference.
package detectors

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/inference/providers"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ONNXDetector runs a YOLO detection model exported to ONNX.
type ONNXDetector struct {
	session    *providers.Session
	provider   providers.ExecutionProvider
	modelPath  string
	inputName  string
	outputName string
	inputSize  int
	head       Head
	names      []string
	logger     *zap.Logger
	mu         sync.Mutex
}

// ResolveWeights finds the model file for a weights reference.
//
// The reference is tried as given, then with its extension replaced by
// ".onnx" (so "yolo11n.pt" finds "yolo11n.onnx"). Absolute candidates are used
// as they are; relative ones are looked up in each of dirs.
//
// Arguments:
//   - ref: The weights reference, a file name or path.
//   - dirs: The directories to search relative references in.
//
// Returns:
//   - string: The path of the first regular file found.
//   - error: An error wrapping os.ErrNotExist naming every path tried.
func ResolveWeights(ref string, dirs []string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", errors.New("empty weights reference")
	}

	candidates := []string{ref}
	if ext := filepath.Ext(ref); !strings.EqualFold(ext, ".onnx") {
		candidates = append(candidates, strings.TrimSuffix(ref, ext)+".onnx")
	}
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	var tried []string
	for _, candidate := range candidates {
		paths := []string{candidate}
		if !filepath.IsAbs(candidate) {
			paths = paths[:0]
			for _, dir := range dirs {
				paths = append(paths, filepath.Join(dir, candidate))
			}
		}
		for _, path := range paths {
			tried = append(tried, path)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path, nil
			}
		}
	}

	return "", errors.Wrapf(os.ErrNotExist, "weights %q not found (tried %s)", ref, strings.Join(tried, ", "))
}

// NewONNXDetector loads a detection model and binds it to provider.
//
// Order of operations:
//  1. Runtime: load the ONNX Runtime shared library once per process.
//  2. Graph: read the input/output tensor shapes and check they form a YOLO detection head.
//  3. Metadata: read the class names and input size the exporter recorded.
//  4. Session: allocate the tensors and create the session on the provider.
//
// Arguments:
//   - provider: The execution provider to run on.
//   - modelPath: The resolved model file.
//   - cfg: The detector configuration.
//   - logger: The logger for load-time information.
//
// Returns:
//   - *ONNXDetector: The loaded detector.
//   - error: An error if any step fails.
func NewONNXDetector(
	provider providers.ExecutionProvider,
	modelPath string,
	cfg Config,
	logger *zap.Logger,
) (*ONNXDetector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := inference.InitializeRuntime(cfg.LibraryPath); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read tensor info from %s", modelPath)
	}

	meta := readMetadata(modelPath, logger)

	geometry, err := ResolveGeometry(inputs, outputs, cfg, meta)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", modelPath)
	}

	names := meta.Names
	if len(names) == 0 {
		names = inference.YOLOClasses
	}
	if len(names) < geometry.Head.Classes {
		logger.Warn("model has more classes than names",
			zap.Int("classes", geometry.Head.Classes),
			zap.Int("names", len(names)),
		)
	}

	session, err := providers.NewSession(provider, providers.NewSessionArgs{
		ModelPath:   modelPath,
		InputName:   geometry.InputName,
		OutputName:  geometry.OutputName,
		InputShape:  ort.NewShape(1, 3, int64(geometry.InputSize), int64(geometry.InputSize)),
		OutputShape: ort.NewShape(1, int64(4+geometry.Head.Classes), int64(geometry.Head.Anchors)),
		Config:      cfg.Provider,
	})
	if err != nil {
		return nil, err
	}

	d := &ONNXDetector{
		session:    session,
		provider:   provider,
		modelPath:  modelPath,
		inputName:  geometry.InputName,
		outputName: geometry.OutputName,
		inputSize:  geometry.InputSize,
		head:       geometry.Head,
		names:      names,
		logger:     logger,
	}

	logger.Info("detector loaded", zap.Any("model", d.GetModelInfo()))

	return d, nil
}

// Infer runs the model on one BGR frame.
//
// Arguments:
//   - frame: The frame. It is not modified.
//   - params: Thresholds and limits for this call.
//
// Returns:
//   - []inference.Detection: The detections, highest confidence first.
//   - error: inference.ErrInference if the call fails.
func (d *ONNXDetector) Infer(frame gocv.Mat, params inference.Params) ([]inference.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil, errors.Wrap(inference.ErrInference, "detector is closed")
	}
	if params.InputSize != 0 && params.InputSize != d.inputSize {
		return nil, errors.Wrapf(inference.ErrInference,
			"input size %d does not match the loaded model input %d", params.InputSize, d.inputSize)
	}
	if frame.Empty() {
		return nil, errors.Wrap(inference.ErrInference, "empty frame")
	}

	img, err := frame.ToImage()
	if err != nil {
		return nil, errors.Wrapf(inference.ErrInference, "convert frame: %v", err)
	}

	lb, err := inference.PrepareInput(img, d.inputSize, d.session.Input.GetData())
	if err != nil {
		return nil, errors.Wrapf(inference.ErrInference, "prepare input: %v", err)
	}

	if err := d.session.Run(); err != nil {
		return nil, errors.Wrapf(inference.ErrInference, "run %s: %v", filepath.Base(d.modelPath), err)
	}

	candidates, err := DecodeOutput(d.session.Output.GetData(), d.head, lb, params.ConfidenceThreshold)
	if err != nil {
		return nil, errors.Wrapf(inference.ErrInference, "decode output: %v", err)
	}

	return NonMaxSuppression(candidates, params.IoUThreshold, params.MaxDetections), nil
}

// ClassNames returns the model's label set, indexed by class id.
func (d *ONNXDetector) ClassNames() []string {
	return d.names
}

// InputSize returns the square input edge the session was created with.
func (d *ONNXDetector) InputSize() int {
	return d.inputSize
}

// GetModelInfo returns information about the loaded model.
func (d *ONNXDetector) GetModelInfo() map[string]interface{} {
	backend := providers.CPUProviderBackend
	if d.provider != nil {
		backend = d.provider.Backend()
	}
	return map[string]interface{}{
		"model_path":  d.modelPath,
		"provider":    string(backend),
		"input_name":  d.inputName,
		"output_name": d.outputName,
		"input_size":  d.inputSize,
		"classes":     d.head.Classes,
		"anchors":     d.head.Anchors,
	}
}

// Close releases the session. Calling it more than once is a no-op.
func (d *ONNXDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session == nil {
		return nil
	}
	err := d.session.Close()
	d.session = nil
	d.logger.Debug("detector closed", zap.String("model", d.modelPath))
	return err
}

// Geometry is the tensor layout a detector session is created with.
type Geometry struct {
	InputName  string
	OutputName string
	InputSize  int
	Head       Head
}

// Metadata holds what an exporter records alongside the graph.
type Metadata struct {
	Names     []string
	InputSize int
}

// readMetadata reads the class names and input size; a model without them is still usable.
func readMetadata(modelPath string, logger *zap.Logger) Metadata {
	var meta Metadata

	md, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		logger.Debug("model has no readable metadata", zap.String("model", modelPath), zap.Error(err))
		return meta
	}
	defer md.Destroy()

	if raw, ok, err := md.LookupCustomMetadataMap("names"); err == nil && ok {
		if names, err := inference.ParseClassNames(raw); err == nil {
			meta.Names = names
		} else {
			logger.Warn("ignoring class names metadata", zap.Error(err))
		}
	}
	if raw, ok, err := md.LookupCustomMetadataMap("imgsz"); err == nil && ok {
		if size, err := inference.ParseImageSize(raw); err == nil {
			meta.InputSize = size
		} else {
			logger.Warn("ignoring image size metadata", zap.Error(err))
		}
	}

	return meta
}

// ResolveGeometry checks that the graph is a single-input YOLO detector and fixes its dynamic dimensions.
//
// The input must be [1, 3, H, W] with H == W when static. The first output
// must be [1, 4+classes, anchors]. Dynamic input edges are taken from
// cfg.InputSize, then the metadata, then DefaultInputSize; dynamic output
// dimensions are derived from the class names and the input size.
//
// Arguments:
//   - inputs: The graph inputs.
//   - outputs: The graph outputs.
//   - cfg: The detector configuration.
//   - meta: The exporter metadata.
//
// Returns:
//   - Geometry: The resolved layout.
//   - error: An error if the graph is not a detection head.
func ResolveGeometry(inputs, outputs []ort.InputOutputInfo, cfg Config, meta Metadata) (Geometry, error) {
	if len(inputs) != 1 {
		return Geometry{}, errors.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return Geometry{}, errors.New("model has no outputs")
	}

	in, out := inputs[0], outputs[0]
	if len(in.Dimensions) != 4 {
		return Geometry{}, errors.Errorf("input %s has shape %v, expected [1 3 H W]", in.Name, in.Dimensions)
	}
	if in.Dimensions[1] != 3 && in.Dimensions[1] > 0 {
		return Geometry{}, errors.Errorf("input %s has %d channels, expected 3", in.Name, in.Dimensions[1])
	}

	h, w := in.Dimensions[2], in.Dimensions[3]
	var size int
	switch {
	case h > 0 && w > 0:
		if h != w {
			return Geometry{}, errors.Errorf("input %s is %dx%d, expected a square input", in.Name, w, h)
		}
		size = int(h)
	case cfg.InputSize > 0:
		size = cfg.InputSize
	case meta.InputSize > 0:
		size = meta.InputSize
	default:
		size = DefaultInputSize
	}

	if len(out.Dimensions) != 3 {
		return Geometry{}, errors.Errorf("output %s has shape %v, expected [1 4+classes anchors]", out.Name, out.Dimensions)
	}

	classes := int(out.Dimensions[1]) - 4
	if out.Dimensions[1] <= 0 {
		classes = len(meta.Names)
		if classes == 0 {
			classes = len(inference.YOLOClasses)
		}
	}
	if classes <= 0 {
		return Geometry{}, errors.Errorf("output %s has %d rows, expected 4 box rows and at least 1 class", out.Name, out.Dimensions[1])
	}

	anchors := int(out.Dimensions[2])
	if anchors <= 0 {
		anchors = AnchorCount(size)
	}

	g := Geometry{
		InputName:  in.Name,
		OutputName: out.Name,
		InputSize:  size,
		Head:       Head{Classes: classes, Anchors: anchors},
	}
	if cfg.InputName != "" {
		g.InputName = cfg.InputName
	}
	if cfg.OutputName != "" {
		g.OutputName = cfg.OutputName
	}
	return g, nil
}
