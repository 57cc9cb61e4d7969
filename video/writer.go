package video

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultCodec is the four-character code used when the extension is unknown.
const DefaultCodec = "mp4v"

// codecs maps output extensions to a four-character code OpenCV can mux into that container.
var codecs = map[string]string{
	".mp4":  "mp4v",
	".m4v":  "mp4v",
	".mov":  "mp4v",
	".avi":  "MJPG",
	".mkv":  "XVID",
	".webm": "VP80",
}

// CodecForPath selects the four-character code for an output file.
//
// Arguments:
//   - path: The output file path. Only its extension is inspected, case-insensitively.
//
// Returns:
//   - string: The codec for the extension, or DefaultCodec.
func CodecForPath(path string) string {
	if codec, ok := codecs[strings.ToLower(filepath.Ext(path))]; ok {
		return codec
	}
	return DefaultCodec
}

// Writer appends frames to an output video container.
type Writer struct {
	path     string
	codec    string
	geometry Geometry
	vw       *gocv.VideoWriter
	written  int
	closed   bool
}

// OpenWriter creates the output container with the frame rate and size of meta.
//
// Arguments:
//   - path: The output file path.
//   - meta: The source metadata; FPS, Width and Height are used.
//   - codec: A four-character code, or "" to choose one from the extension.
//
// Returns:
//   - *Writer: The opened sink. Close must be called exactly once to finalize the file.
//   - error: ErrSinkOpen if OpenCV cannot create the container.
func OpenWriter(path string, meta Meta, codec string) (*Writer, error) {
	if codec == "" {
		codec = CodecForPath(path)
	}
	if len(codec) != 4 {
		return nil, errors.Wrapf(ErrSinkOpen, "codec %q is not a four-character code", codec)
	}

	vw, err := gocv.VideoWriterFile(path, codec, meta.FPS, meta.Width, meta.Height, true)
	if err != nil {
		return nil, errors.Wrapf(ErrSinkOpen, "%s (%s): %v", path, codec, err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, errors.Wrapf(ErrSinkOpen, "%s (%s): no encoder accepted the container", path, codec)
	}

	return &Writer{
		path:     path,
		codec:    codec,
		geometry: meta.Geometry(),
		vw:       vw,
	}, nil
}

// Codec returns the four-character code the container was opened with.
func (w *Writer) Codec() string {
	return w.codec
}

// Written returns the number of frames appended so far.
func (w *Writer) Written() int {
	return w.written
}

// Write appends one frame.
//
// Arguments:
//   - frame: A BGR frame with exactly the geometry declared at open time.
//
// Returns:
//   - error: ErrDimensionMismatch if the geometry differs, or the encoder error.
func (w *Writer) Write(frame gocv.Mat) error {
	if w.closed {
		return errors.Errorf("write to closed writer %s", w.path)
	}
	if err := w.geometry.Check(frame); err != nil {
		return err
	}
	if err := w.vw.Write(frame); err != nil {
		return errors.Wrapf(err, "encode frame %d to %s", w.written, w.path)
	}
	w.written++
	return nil
}

// Close finalizes the container. Calling it more than once is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.vw.Close()
}
