package video

import (
	"fmt"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultFPS is used when the container does not report a frame rate.
const DefaultFPS = 25.0

// Meta describes the geometry and timing of a video stream.
type Meta struct {
	// FPS is the playback frame rate propagated from source to output.
	FPS float64 `json:"fps"`
	// Width is the frame width in pixels.
	Width int `json:"width"`
	// Height is the frame height in pixels.
	Height int `json:"height"`
	// FrameCount is the container's frame count estimate. Advisory only; 0 means unknown.
	FrameCount int `json:"frame_count"`
}

func (m Meta) String() string {
	return fmt.Sprintf("%dx%d@%.2ffps (%d frames)", m.Width, m.Height, m.FPS, m.FrameCount)
}

// Geometry is the frame shape a sink accepts.
type Geometry struct {
	Width    int
	Height   int
	Channels int
}

// Geometry returns the 3-channel geometry declared by m.
func (m Meta) Geometry() Geometry {
	return Geometry{Width: m.Width, Height: m.Height, Channels: 3}
}

// Check verifies that frame has exactly the declared geometry.
//
// Arguments:
//   - frame: The frame about to be written.
//
// Returns:
//   - error: ErrDimensionMismatch describing both shapes, or nil.
func (g Geometry) Check(frame gocv.Mat) error {
	if frame.Cols() != g.Width || frame.Rows() != g.Height || frame.Channels() != g.Channels {
		return errors.Wrapf(ErrDimensionMismatch, "got %dx%dx%d, declared %dx%dx%d",
			frame.Cols(), frame.Rows(), frame.Channels(), g.Width, g.Height, g.Channels)
	}
	return nil
}
