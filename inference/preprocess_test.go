package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/nvr-ai/persondetect/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// TestNewLetterbox validates the aspect-preserving fit for common frame sizes.
func TestNewLetterbox(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		size          int
		want          Letterbox
	}{
		{
			name: "landscape 1280x720", width: 1280, height: 720, size: 640,
			want: Letterbox{Size: 640, Scale: 0.5, Width: 640, Height: 360, PadX: 0, PadY: 140, SrcWidth: 1280, SrcHeight: 720},
		},
		{
			name: "portrait 480x640", width: 480, height: 640, size: 640,
			want: Letterbox{Size: 640, Scale: 1, Width: 480, Height: 640, PadX: 80, PadY: 0, SrcWidth: 480, SrcHeight: 640},
		},
		{
			name: "square upscale 320x320", width: 320, height: 320, size: 640,
			want: Letterbox{Size: 640, Scale: 2, Width: 640, Height: 640, SrcWidth: 320, SrcHeight: 320},
		},
		{
			name: "odd padding 640x479", width: 640, height: 479, size: 640,
			want: Letterbox{Size: 640, Scale: 1, Width: 640, Height: 479, PadX: 0, PadY: 80, SrcWidth: 640, SrcHeight: 479},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lb, err := NewLetterbox(tt.width, tt.height, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, lb)
		})
	}

	_, err := NewLetterbox(0, 480, 640)
	assert.Error(t, err)
	_, err = NewLetterbox(640, 480, 0)
	assert.Error(t, err)
}

// TestLetterboxRoundTrip verifies that mapping a frame box into the model input and back is lossless.
func TestLetterboxRoundTrip(t *testing.T) {
	lb, err := NewLetterbox(1280, 720, 640)
	require.NoError(t, err)

	box := images.Rect{X1: 100, Y1: 60, X2: 420, Y2: 700}
	mx1 := float32(box.X1)*lb.Scale + float32(lb.PadX)
	my1 := float32(box.Y1)*lb.Scale + float32(lb.PadY)
	mx2 := float32(box.X2)*lb.Scale + float32(lb.PadX)
	my2 := float32(box.Y2)*lb.Scale + float32(lb.PadY)

	assert.Equal(t, box, lb.UnmapBox(mx1, my1, mx2, my2))

	x, y := lb.Unmap(320, 140)
	assert.InDelta(t, 640, x, 1e-4)
	assert.InDelta(t, 0, y, 1e-4)

	assert.Equal(t, images.Rect{X1: 0, Y1: 0, X2: 1280, Y2: 720}, lb.UnmapBox(-50, 0, 700, 700), "boxes are clipped")
}

func TestPrepareInput(t *testing.T) {
	size := 64
	img := solidImage(64, 32, color.RGBA{R: 255, G: 0, B: 51, A: 255})
	dst := make([]float32, 3*size*size)

	lb, err := PrepareInput(img, size, dst)
	require.NoError(t, err)
	assert.Equal(t, 16, lb.PadY)
	assert.Equal(t, 0, lb.PadX)

	channel := size * size
	at := func(c, x, y int) float32 { return dst[c*channel+y*size+x] }

	// Border rows are pad gray.
	pad := float32(PadValue) / 255
	for _, c := range []int{0, 1, 2} {
		assert.InDelta(t, pad, at(c, 10, 0), 1e-6)
		assert.InDelta(t, pad, at(c, 10, size-1), 1e-6)
	}

	// The frame occupies the middle rows, in RGB order.
	assert.InDelta(t, 1.0, at(0, 32, 32), 1e-6)
	assert.InDelta(t, 0.0, at(1, 32, 32), 1e-6)
	assert.InDelta(t, 0.2, at(2, 32, 32), 1e-6)
	assert.InDelta(t, 1.0, at(0, 0, 16), 1e-6)
	assert.InDelta(t, pad, at(0, 0, 15), 1e-6)
}

func TestPrepareInputResizes(t *testing.T) {
	size := 32
	img := solidImage(128, 128, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	dst := make([]float32, 3*size*size)

	lb, err := PrepareInput(img, size, dst)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), lb.Scale)

	channel := size * size
	for i := 0; i < channel; i++ {
		require.InDelta(t, 10.0/255, dst[i], 1.0/255)
		require.InDelta(t, 20.0/255, dst[channel+i], 1.0/255)
		require.InDelta(t, 30.0/255, dst[2*channel+i], 1.0/255)
	}
}

func TestPrepareInputShortTensor(t *testing.T) {
	_, err := PrepareInput(solidImage(8, 8, color.RGBA{A: 255}), 640, make([]float32, 10))
	assert.Error(t, err)
}
