package video

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidFrame(width, height int, v float64) gocv.Mat {
	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(v, v, v, 0))
	return frame
}

// openTestWriter opens an MJPG/AVI writer, skipping when the local OpenCV build has no encoder.
func openTestWriter(t *testing.T, meta Meta) (*Writer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.avi")
	w, err := OpenWriter(path, meta, "")
	if errors.Is(err, ErrSinkOpen) {
		t.Skipf("OpenCV build cannot encode MJPG/AVI: %v", err)
	}
	require.NoError(t, err)
	return w, path
}

func TestCodecForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"crowd_out.mp4", "mp4v"},
		{"CLIP.MOV", "mp4v"},
		{"out.avi", "MJPG"},
		{"out.mkv", "XVID"},
		{"out.webm", "VP80"},
		{"out", DefaultCodec},
		{"out.unknown", DefaultCodec},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, CodecForPath(tt.path))
		})
	}
}

func TestValidateInput(t *testing.T) {
	dir := t.TempDir()

	err := ValidateInput(filepath.Join(dir, "missing.mp4"))
	assert.True(t, errors.Is(err, ErrInputNotFound))
	assert.Contains(t, err.Error(), "missing.mp4")

	err = ValidateInput(dir)
	assert.True(t, errors.Is(err, ErrInputNotFound))

	file := filepath.Join(dir, "present.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.NoError(t, ValidateInput(file))
}

func TestOpenCaptureMissingInput(t *testing.T) {
	c, err := OpenCapture(filepath.Join(t.TempDir(), "crowd.mp4"))
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrInputNotFound))
}

func TestOpenCaptureUndecodableInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.mp4")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a video"), 0o644))

	c, err := OpenCapture(path)
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestGeometryCheck(t *testing.T) {
	g := Meta{FPS: 25, Width: 640, Height: 480}.Geometry()

	ok := solidFrame(640, 480, 0)
	defer ok.Close()
	assert.NoError(t, g.Check(ok))

	small := solidFrame(320, 240, 0)
	defer small.Close()
	err := g.Check(small)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "320x240x3")

	gray := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC1)
	defer gray.Close()
	assert.True(t, errors.Is(g.Check(gray), ErrDimensionMismatch))
}

func TestOpenWriterRejectsBadCodec(t *testing.T) {
	w, err := OpenWriter(filepath.Join(t.TempDir(), "out.mp4"), Meta{FPS: 25, Width: 64, Height: 48}, "h264x")
	assert.Nil(t, w)
	assert.True(t, errors.Is(err, ErrSinkOpen))
}

func TestWriterDimensionMismatch(t *testing.T) {
	w, _ := openTestWriter(t, Meta{FPS: 25, Width: 640, Height: 480})

	frame := solidFrame(320, 240, 50)
	defer frame.Close()

	err := w.Write(frame)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Equal(t, 0, w.Written())

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second close is a no-op")
	assert.Error(t, w.Write(frame))
}

func TestWriterCaptureRoundTrip(t *testing.T) {
	meta := Meta{FPS: 10, Width: 64, Height: 48}
	w, path := openTestWriter(t, meta)
	assert.Equal(t, "MJPG", w.Codec())

	for i := 0; i < 10; i++ {
		frame := solidFrame(meta.Width, meta.Height, float64(i*20))
		require.NoError(t, w.Write(frame))
		frame.Close()
	}
	assert.Equal(t, 10, w.Written())
	require.NoError(t, w.Close())

	c, err := OpenCapture(path)
	if errors.Is(err, ErrDecode) {
		t.Skipf("OpenCV build cannot decode MJPG/AVI: %v", err)
	}
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, meta.Width, c.Meta().Width)
	assert.Equal(t, meta.Height, c.Meta().Height)
	assert.InDelta(t, meta.FPS, c.Meta().FPS, 0.01)

	frame := gocv.NewMat()
	defer frame.Close()

	read := 0
	for {
		err := c.Next(&frame)
		if errors.Is(err, ErrEndOfStream) {
			break
		}
		require.NoError(t, err)
		read++
	}
	assert.Equal(t, 10, read)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.True(t, errors.Is(c.Next(&frame), ErrDecode))
}
