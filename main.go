// Command persondetect draws person detections from a YOLO model onto every frame of a video.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/nvr-ai/persondetect/inference"
	"github.com/nvr-ai/persondetect/logging"
	"github.com/nvr-ai/persondetect/pipeline"
	"github.com/nvr-ai/persondetect/video"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// options is the parsed command line.
type options struct {
	pipeline pipeline.Config
	logLevel string
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the command and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprint(stderr, err.Error())
		return exitUsage
	}

	log, err := logging.New(opts.logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer func() {
		if err := inference.ShutdownRuntime(); err != nil {
			log.Debug("shutdown onnx runtime", zap.Error(err))
		}
	}()

	opts.pipeline.ProgressWriter = stderr
	res, err := pipeline.NewDriver(opts.pipeline, log).Run(ctx)
	if err != nil {
		reportFailure(log, stderr, opts.pipeline, err)
		return exitError
	}

	log.Info("done",
		zap.String("output", res.Output),
		zap.Int("frames", res.FramesWritten),
		zap.Int("detections", res.Detections),
		zap.Duration("elapsed", res.Elapsed),
	)
	fmt.Fprintln(stdout, res.Output)
	return exitOK
}

// reportFailure prints a one-line message naming the resource that failed.
func reportFailure(log *zap.Logger, stderr io.Writer, cfg pipeline.Config, err error) {
	log.Error("run failed", zap.Error(err))

	switch {
	case errors.Is(err, video.ErrInputNotFound):
		fmt.Fprintf(stderr, "error: input video not found: %s\n", cfg.Input)
	case errors.Is(err, inference.ErrModelLoad):
		fmt.Fprintf(stderr, "error: cannot load model %s: %v\n", cfg.Weights, err)
	case errors.Is(err, video.ErrSinkOpen):
		fmt.Fprintf(stderr, "error: cannot write %s: %v\n", cfg.Output, err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(stderr, "error: interrupted, %s is incomplete\n", cfg.Output)
	default:
		fmt.Fprintf(stderr, "error: %s: %v\n", cfg.Input, err)
	}
}

// parseArgs builds the run configuration from the command line.
//
// Arguments:
//   - args: The full argument vector, program name first.
//
// Returns:
//   - options: The parsed options.
//   - error: The usage text prefixed with the problem.
func parseArgs(args []string) (options, error) {
	defaults := pipeline.DefaultConfig()

	parser := argparse.NewParser("persondetect", "Detect people in a video and write an annotated copy")
	input := parser.String("i", "input", &argparse.Options{Help: "Input video file", Default: defaults.Input})
	output := parser.String("o", "output", &argparse.Options{Help: "Output video file", Default: defaults.Output})
	weights := parser.String("w", "weights", &argparse.Options{Help: "YOLO model reference or .onnx path", Default: defaults.Weights})
	conf := parser.Float("", "conf", &argparse.Options{
		Help:     "Confidence threshold in (0, 1]",
		Default:  float64(defaults.Params.ConfidenceThreshold),
		Validate: floatIn("conf", 0, 1, false),
	})
	device := parser.String("", "device", &argparse.Options{Help: "Inference device: cpu, cuda[:N], N, tensorrt[:N], coreml, openvino[:TYPE]"})
	iou := parser.Float("", "iou", &argparse.Options{
		Help:     "Non-maximum suppression IoU threshold in [0, 1]",
		Default:  float64(defaults.Params.IoUThreshold),
		Validate: floatIn("iou", 0, 1, true),
	})
	imgsz := parser.Int("", "imgsz", &argparse.Options{
		Help:     "Model input size, a positive multiple of 32",
		Default:  defaults.Params.InputSize,
		Validate: validInputSize,
	})
	codec := parser.String("", "codec", &argparse.Options{Help: "Output four-character code (default: chosen from the output extension)"})
	ortLib := parser.String("", "ort-lib", &argparse.Options{Help: "ONNX Runtime shared library", Default: inference.GetSharedLibPath()})
	logLevel := parser.Selector("", "log-level", []string{"debug", "info", "warn", "error"}, &argparse.Options{Help: "Log level", Default: logging.DefaultLevel})
	noProgress := parser.Flag("", "no-progress", &argparse.Options{Help: "Disable the progress bar"})

	if err := parser.Parse(args); err != nil {
		return options{}, errors.New(parser.Usage(err))
	}
	if *codec != "" && len(*codec) != 4 {
		return options{}, errors.New(parser.Usage(fmt.Sprintf("[--codec] %q is not a four-character code", *codec)))
	}

	cfg := defaults
	cfg.Input = *input
	cfg.Output = *output
	cfg.Weights = *weights
	cfg.Device = *device
	cfg.Codec = *codec
	cfg.Progress = !*noProgress
	cfg.Params.ConfidenceThreshold = float32(*conf)
	cfg.Params.IoUThreshold = float32(*iou)
	cfg.Params.InputSize = *imgsz
	cfg.Detector.InputSize = *imgsz
	cfg.Detector.LibraryPath = *ortLib

	return options{pipeline: cfg, logLevel: *logLevel}, nil
}

// floatIn validates a single float argument against (lo, hi], or [lo, hi] when closed.
func floatIn(name string, lo, hi float64, closed bool) func([]string) error {
	return func(args []string) error {
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || math.IsNaN(v) {
			return errors.Errorf("%s must be a number, got %q", name, args[0])
		}
		if v > hi || v < lo || (!closed && v == lo) {
			if closed {
				return errors.Errorf("%s must be in [%g, %g], got %g", name, lo, hi, v)
			}
			return errors.Errorf("%s must be in (%g, %g], got %g", name, lo, hi, v)
		}
		return nil
	}
}

func validInputSize(args []string) error {
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Errorf("imgsz must be an integer, got %q", args[0])
	}
	if v <= 0 || v%32 != 0 {
		return errors.Errorf("imgsz must be a positive multiple of 32, got %d", v)
	}
	return nil
}
