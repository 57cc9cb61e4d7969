package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/nvr-ai/persondetect/annotate"
	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/inference/detectors"
	"github.com/nvr-ai/persondetect/inference/engine"
	"github.com/nvr-ai/persondetect/profiler"
	"github.com/nvr-ai/persondetect/video"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// PersonClass is the label the driver keeps.
const PersonClass = "person"

// Source yields decoded frames in stream order.
type Source interface {
	Meta() video.Meta
	Next(dst *gocv.Mat) error
	Close() error
}

// Sink appends frames to the output.
type Sink interface {
	Write(frame gocv.Mat) error
	Written() int
	Close() error
}

// Openers construct the collaborators of a run. Tests replace them with in-memory fakes.
type Openers struct {
	OpenSource   func(path string) (Source, error)
	OpenSink     func(path string, meta video.Meta, codec string) (Sink, error)
	LoadDetector func(weights, device string, cfg detectors.Config, logger *zap.Logger) (inference.Detector, error)
}

// DefaultOpeners returns the OpenCV and ONNX Runtime backed collaborators.
func DefaultOpeners() Openers {
	return Openers{
		OpenSource: func(path string) (Source, error) {
			c, err := video.OpenCapture(path)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		OpenSink: func(path string, meta video.Meta, codec string) (Sink, error) {
			w, err := video.OpenWriter(path, meta, codec)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
		LoadDetector: engine.Load,
	}
}

// Config holds the inputs of a single run.
type Config struct {
	// Input is the source video path.
	Input string
	// Output is the destination video path.
	Output string
	// Codec is the output four-character code, or "" to choose it from the extension.
	Codec string
	// Weights is the model reference or path.
	Weights string
	// Device is the inference device selector, "" for the runtime default.
	Device string
	// Params are the per-frame inference parameters.
	Params inference.Params
	// Detector configures model loading.
	Detector detectors.Config
	// Class is the label kept by the filter (default: PersonClass).
	Class string
	// Progress enables the terminal progress bar.
	Progress bool
	// ProgressWriter receives the progress bar (default: os.Stderr).
	ProgressWriter io.Writer
	// ReportInterval is the period of profiler reports (default: 5s).
	ReportInterval time.Duration
}

// DefaultConfig returns the command line defaults.
func DefaultConfig() Config {
	return Config{
		Input:    "crowd.mp4",
		Output:   "crowd_out.mp4",
		Weights:  "yolo11n.onnx",
		Params:   inference.DefaultParams(),
		Detector: detectors.DefaultConfig(),
		Class:    PersonClass,
		Progress: true,
	}
}

// Result summarizes a run.
type Result struct {
	State         State         `json:"state"`
	FramesRead    int           `json:"frames_read"`
	FramesWritten int           `json:"frames_written"`
	Detections    int           `json:"detections"`
	Output        string        `json:"output"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Option configures a Driver.
type Option func(*Driver)

// WithOpeners replaces the collaborator constructors.
func WithOpeners(o Openers) Option {
	return func(d *Driver) {
		d.open = o
	}
}

// Driver runs one video through the detection pipeline.
type Driver struct {
	cfg    Config
	open   Openers
	logger *zap.Logger
	state  State
}

// NewDriver creates a driver for cfg.
//
// Arguments:
//   - cfg: The run configuration.
//   - logger: The logger, nil for none.
//   - opts: Optional overrides.
//
// Returns:
//   - *Driver: The driver, in the Initializing state.
func NewDriver(cfg Config, logger *zap.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Class == "" {
		cfg.Class = PersonClass
	}
	if cfg.ProgressWriter == nil {
		cfg.ProgressWriter = os.Stderr
	}

	d := &Driver{cfg: cfg, open: DefaultOpeners(), logger: logger, state: Initializing}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// State returns the current lifecycle stage.
func (d *Driver) State() State {
	return d.state
}

func (d *Driver) transition(next State) {
	d.logger.Debug("pipeline state", zap.Stringer("from", d.state), zap.Stringer("to", next))
	d.state = next
}

// resource is something the driver must release exactly once.
type resource struct {
	name string
	io.Closer
}

// Run processes the whole input and writes the annotated output.
//
// The input is validated before anything else, so a missing input never
// creates an output file. The source, sink and detector are each released
// exactly once on every path. Close errors are logged; they become the
// returned error only when the run otherwise succeeded.
//
// Arguments:
//   - ctx: Cancelling it aborts the run between frames.
//
// Returns:
//   - *Result: The run summary. Never nil.
//   - error: The first fatal error, matching the video and inference sentinels.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	if d.state != Initializing {
		return &Result{State: d.state, Output: d.cfg.Output}, errors.Errorf("driver already %s", d.state)
	}

	start := time.Now()
	res = &Result{State: d.state, Output: d.cfg.Output}

	var resources []resource
	defer func() {
		var closeErr error
		for i := len(resources) - 1; i >= 0; i-- {
			r := resources[i]
			if cerr := r.Close(); cerr != nil {
				d.logger.Warn("release failed", zap.String("resource", r.name), zap.Error(cerr))
				closeErr = multierr.Append(closeErr, errors.Wrapf(cerr, "close %s", r.name))
			}
		}
		if err == nil && closeErr != nil {
			err = closeErr
		}

		if err != nil {
			d.transition(Failed)
		} else {
			d.transition(Completed)
		}
		res.State = d.state
		res.Elapsed = time.Since(start)
	}()

	if err := video.ValidateInput(d.cfg.Input); err != nil {
		return res, err
	}

	src, err := d.open.OpenSource(d.cfg.Input)
	if err != nil {
		return res, err
	}
	resources = append(resources, resource{name: "source", Closer: src})

	meta := src.Meta()
	d.logger.Info("opened input",
		zap.String("input", d.cfg.Input),
		zap.Float64("fps", meta.FPS),
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
		zap.Int("frames", meta.FrameCount))

	sink, err := d.open.OpenSink(d.cfg.Output, meta, d.cfg.Codec)
	if err != nil {
		return res, err
	}
	resources = append(resources, resource{name: "sink", Closer: sink})

	d.logger.Info("loading model", zap.String("weights", d.cfg.Weights), zap.String("device", d.cfg.Device))
	det, err := d.open.LoadDetector(d.cfg.Weights, d.cfg.Device, d.cfg.Detector, d.logger)
	if err != nil {
		return res, err
	}
	resources = append(resources, resource{name: "detector", Closer: det})

	names := det.ClassNames()
	classID := inference.ClassIndex(names, d.cfg.Class, 0)
	d.logger.Debug("filter class", zap.String("class", d.cfg.Class), zap.Int("class_id", classID))

	d.transition(Running)
	return res, d.loop(ctx, res, src, sink, det, classID, annotate.NewAnnotator(names, annotate.DefaultStyle()))
}

func (d *Driver) loop(
	ctx context.Context,
	res *Result,
	src Source,
	sink Sink,
	det inference.Detector,
	classID int,
	annotator *annotate.Annotator,
) error {
	prof := profiler.NewRuntimeProfiler(profiler.ProfilingOptions{
		ReportInterval: d.cfg.ReportInterval,
		Logger:         d.logger,
	})
	progress := profiler.NewProgress(d.cfg.ProgressWriter, src.Meta().FrameCount, "annotating", d.cfg.Progress)
	defer func() {
		_ = progress.Finish()
	}()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "aborted after %d frames", res.FramesRead)
		}

		done := prof.StartOperation(profiler.StageDecode)
		err := src.Next(&frame)
		done()
		if errors.Is(err, video.ErrEndOfStream) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "read frame %d", res.FramesRead)
		}
		index := res.FramesRead
		res.FramesRead++

		done = prof.StartOperation(profiler.StageInfer)
		detections, err := det.Infer(frame, d.cfg.Params)
		done()
		if err != nil {
			return errors.Wrapf(err, "frame %d", index)
		}

		kept := inference.FilterClass(detections, classID)
		res.Detections += len(kept)
		prof.RecordMetric("detections", float64(len(kept)))

		done = prof.StartOperation(profiler.StageAnnotate)
		annotator.AnnotateDetections(&frame, kept)
		done()

		done = prof.StartOperation(profiler.StageEncode)
		err = sink.Write(frame)
		done()
		if err != nil {
			return errors.Wrapf(err, "write frame %d", index)
		}
		res.FramesWritten++

		d.logger.Debug("frame processed", zap.Int("frame", index), zap.Int("detections", len(kept)))
		progress.Add(1)
		prof.MaybeReport()
	}

	if err := progress.Finish(); err != nil {
		d.logger.Debug("progress bar", zap.Error(err))
	}
	prof.Report("processing complete")
	return nil
}
