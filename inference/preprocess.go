package inference

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"
	"github.com/nvr-ai/persondetect/images"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// PadValue is the gray level used to fill the letterbox border.
const PadValue = 114

// Letterbox records how a frame was fitted into the square model input, so
// model-space coordinates can be mapped back to frame pixels.
type Letterbox struct {
	// Size is the square model input edge.
	Size int
	// Scale is the resize gain applied to the frame.
	Scale float32
	// Width and Height are the resized frame dimensions inside the input.
	Width, Height int
	// PadX and PadY are the left and top border widths.
	PadX, PadY int
	// SrcWidth and SrcHeight are the original frame dimensions.
	SrcWidth, SrcHeight int
}

// NewLetterbox computes the aspect-preserving fit of a srcWidth×srcHeight frame into size×size.
//
// Arguments:
//   - srcWidth: The frame width in pixels.
//   - srcHeight: The frame height in pixels.
//   - size: The square model input edge.
//
// Returns:
//   - Letterbox: The fit.
//   - error: An error if any dimension is not positive.
func NewLetterbox(srcWidth, srcHeight, size int) (Letterbox, error) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return Letterbox{}, errors.Errorf("invalid frame size %dx%d", srcWidth, srcHeight)
	}
	if size <= 0 {
		return Letterbox{}, errors.Errorf("invalid input size %d", size)
	}

	s := float32(size)
	scale := math32.Min(s/float32(srcHeight), s/float32(srcWidth))
	w := int(math32.Round(float32(srcWidth) * scale))
	h := int(math32.Round(float32(srcHeight) * scale))
	dw := (s - float32(w)) / 2
	dh := (s - float32(h)) / 2

	return Letterbox{
		Size:      size,
		Scale:     scale,
		Width:     w,
		Height:    h,
		PadX:      int(math32.Round(dw - 0.1)),
		PadY:      int(math32.Round(dh - 0.1)),
		SrcWidth:  srcWidth,
		SrcHeight: srcHeight,
	}, nil
}

// Unmap converts a model-space point to frame coordinates. The result is not clipped.
func (l Letterbox) Unmap(x, y float32) (float32, float32) {
	return (x - float32(l.PadX)) / l.Scale, (y - float32(l.PadY)) / l.Scale
}

// UnmapBox converts a model-space box to a frame box, clipped to the frame and truncated to whole pixels.
func (l Letterbox) UnmapBox(x1, y1, x2, y2 float32) images.Rect {
	fx1, fy1 := l.Unmap(x1, y1)
	fx2, fy2 := l.Unmap(x2, y2)

	w, h := float32(l.SrcWidth), float32(l.SrcHeight)
	return images.Rect{
		X1: int(clampf(fx1, 0, w)),
		Y1: int(clampf(fy1, 0, h)),
		X2: int(clampf(fx2, 0, w)),
		Y2: int(clampf(fy2, 0, h)),
	}
}

// PrepareInput letterboxes img into dst as a planar RGB float32 tensor in [0, 1].
//
// The frame is resized bilinearly to fit size×size keeping its aspect ratio,
// centered, and padded with PadValue gray. dst is laid out as [3][size][size].
//
// Arguments:
//   - img: The frame to prepare.
//   - size: The square model input edge.
//   - dst: The destination tensor data; it must hold at least 3*size*size floats.
//
// Returns:
//   - Letterbox: The fit used, for mapping boxes back to img.
//   - error: An error if the input preparation fails.
func PrepareInput(img image.Image, size int, dst []float32) (Letterbox, error) {
	bounds := img.Bounds()
	lb, err := NewLetterbox(bounds.Dx(), bounds.Dy(), size)
	if err != nil {
		return Letterbox{}, err
	}

	channelSize := size * size
	if len(dst) < channelSize*3 {
		return Letterbox{}, errors.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}

	resized := img
	if lb.Width != bounds.Dx() || lb.Height != bounds.Dy() {
		resized = resize.Resize(uint(lb.Width), uint(lb.Height), img, resize.Bilinear)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: PadValue, G: PadValue, B: PadValue, A: 255}), image.Point{}, draw.Src)
	inner := image.Rect(lb.PadX, lb.PadY, lb.PadX+lb.Width, lb.PadY+lb.Height)
	draw.Draw(canvas, inner, resized, resized.Bounds().Min, draw.Src)

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	i := 0
	for y := 0; y < size; y++ {
		row := canvas.Pix[y*canvas.Stride : y*canvas.Stride+size*4]
		for x := 0; x < size; x++ {
			red[i] = float32(row[x*4]) / 255.0
			green[i] = float32(row[x*4+1]) / 255.0
			blue[i] = float32(row[x*4+2]) / 255.0
			i++
		}
	}

	return lb, nil
}

func clampf(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
