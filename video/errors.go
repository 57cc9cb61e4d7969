// Package video - Frame source and sink backed by OpenCV's videoio module.
package video

import (
	"os"

	"github.com/pkg/errors"
)

var (
	// ErrInputNotFound is returned when the input video does not exist or cannot be read.
	ErrInputNotFound = errors.New("input video not found")
	// ErrEndOfStream signals that the source has no more frames. It is not a failure.
	ErrEndOfStream = errors.New("end of stream")
	// ErrDecode is returned when the container cannot be opened or a frame cannot be decoded.
	ErrDecode = errors.New("decode error")
	// ErrSinkOpen is returned when the output container cannot be created.
	ErrSinkOpen = errors.New("cannot open output video")
	// ErrDimensionMismatch is returned when a frame does not match the geometry declared for the sink.
	ErrDimensionMismatch = errors.New("frame dimension mismatch")
)

// ValidateInput checks that path names an existing, readable regular file.
//
// Arguments:
//   - path: The input video path.
//
// Returns:
//   - error: ErrInputNotFound wrapped with the path, or nil.
func ValidateInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(ErrInputNotFound, "%s: %v", path, err)
	}
	if info.IsDir() {
		return errors.Wrapf(ErrInputNotFound, "%s is a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(ErrInputNotFound, "%s: %v", path, err)
	}
	return f.Close()
}
