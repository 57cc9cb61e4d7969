package video

import (
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Capture reads frames sequentially from a video file.
type Capture struct {
	path   string
	vc     *gocv.VideoCapture
	meta   Meta
	frames int
	closed bool
}

// OpenCapture opens the video at path for sequential decoding.
//
// The stream metadata is read once here; a frame rate of 0 is replaced by
// DefaultFPS so the output container always has a valid timebase.
//
// Arguments:
//   - path: The input video file.
//
// Returns:
//   - *Capture: The opened source. Close must be called exactly once.
//   - error: ErrInputNotFound if the file is missing, ErrDecode if OpenCV cannot open it.
func OpenCapture(path string) (*Capture, error) {
	if err := ValidateInput(path); err != nil {
		return nil, err
	}

	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "open %s: %v", path, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, errors.Wrapf(ErrDecode, "open %s: no decoder accepted the container", path)
	}

	meta := readMeta(vc)
	if meta.Width <= 0 || meta.Height <= 0 {
		vc.Close()
		return nil, errors.Wrapf(ErrDecode, "%s reports invalid frame size %dx%d", path, meta.Width, meta.Height)
	}

	return &Capture{path: path, vc: vc, meta: meta}, nil
}

func readMeta(vc *gocv.VideoCapture) Meta {
	fps := vc.Get(gocv.VideoCaptureFPS)
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = DefaultFPS
	}

	count := int(vc.Get(gocv.VideoCaptureFrameCount))
	if count < 0 {
		count = 0
	}

	return Meta{
		FPS:        fps,
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FrameCount: count,
	}
}

// Meta returns the stream metadata read at open time.
func (c *Capture) Meta() Meta {
	return c.meta
}

// Path returns the file the capture was opened from.
func (c *Capture) Path() string {
	return c.path
}

// Next decodes the next frame into dst.
//
// Arguments:
//   - dst: The destination Mat, reused across calls.
//
// Returns:
//   - error: ErrEndOfStream when the stream is exhausted, ErrDecode if the
//     decoder reports success but yields no pixels.
func (c *Capture) Next(dst *gocv.Mat) error {
	if c.closed {
		return errors.Wrap(ErrDecode, "read from closed capture")
	}
	if ok := c.vc.Read(dst); !ok {
		return ErrEndOfStream
	}
	if dst.Empty() {
		return errors.Wrapf(ErrDecode, "%s: empty frame after %d frames", c.path, c.frames)
	}
	c.frames++
	return nil
}

// Close releases the decoder. Calling it more than once is a no-op.
func (c *Capture) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.vc.Close()
}
