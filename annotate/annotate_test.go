package annotate

import (
	"image"
	"testing"

	"github.com/nvr-ai/persondetect/images"
	"github.com/nvr-ai/persondetect/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func grayFrame(width, height int) gocv.Mat {
	frame := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	frame.SetTo(gocv.NewScalar(128, 128, 128, 0))
	return frame
}

// bgr returns the pixel at (x, y) as B, G, R.
func bgr(frame gocv.Mat, x, y int) [3]uint8 {
	v := frame.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

var (
	green = [3]uint8{0, 255, 0}
	gray  = [3]uint8{128, 128, 128}
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "person: 0.87", Label("person", 0.87))
	assert.Equal(t, "person: 1.00", Label("person", 0.999))
	assert.Equal(t, "person: 0.25", Label("person", 0.25))
}

func TestSpecs(t *testing.T) {
	a := NewAnnotator(inference.YOLOClasses, DefaultStyle())
	specs := a.Specs([]inference.Detection{
		{ClassID: 0, Confidence: 0.87, Box: images.Rect{X1: 10, Y1: 10, X2: 50, Y2: 90}},
		{ClassID: 95, Confidence: 0.5, Box: images.Rect{X1: 1, Y1: 2, X2: 3, Y2: 4}},
	})

	require.Len(t, specs, 2)
	assert.Equal(t, RenderSpec{Box: image.Rect(10, 10, 50, 90), Label: "person: 0.87", Confidence: 0.87}, specs[0])
	assert.Equal(t, "class_95: 0.50", specs[1].Label)

	assert.NotNil(t, a.Specs(nil))
	assert.Empty(t, a.Specs(nil))
}

// TestAnnotateSinglePerson draws one person box and checks the outline, label background and text.
func TestAnnotateSinglePerson(t *testing.T) {
	frame := grayFrame(200, 200)
	defer frame.Close()

	a := NewAnnotator(inference.YOLOClasses, DefaultStyle())
	specs := a.AnnotateDetections(&frame, []inference.Detection{
		{ClassID: 0, Confidence: 0.87, Box: images.Rect{X1: 10, Y1: 10, X2: 50, Y2: 90}},
	})
	require.Len(t, specs, 1)
	assert.Equal(t, "person: 0.87", specs[0].Label)

	// Outline on all four sides.
	assert.Equal(t, green, bgr(frame, 10, 50), "left edge")
	assert.Equal(t, green, bgr(frame, 50, 50), "right edge")
	assert.Equal(t, green, bgr(frame, 30, 90), "bottom edge")
	assert.Equal(t, green, bgr(frame, 30, 10), "top edge")

	// Inside and outside the box are untouched.
	assert.Equal(t, gray, bgr(frame, 30, 50))
	assert.Equal(t, gray, bgr(frame, 100, 150))
	assert.Equal(t, gray, bgr(frame, 5, 50))

	// The label background starts at the box's left edge and spans the text width.
	size, _ := gocv.GetTextSizeWithBaseline("person: 0.87", gocv.FontHersheySimplex, 0.5, 1)
	assert.Equal(t, green, bgr(frame, 10, 2))
	assert.Equal(t, green, bgr(frame, 10+size.X+2, 2))
	assert.Equal(t, gray, bgr(frame, 10+size.X+4, 2))

	// Black text is drawn inside the background.
	dark := 0
	for y := 0; y < 10; y++ {
		for x := 12; x < 12+size.X; x++ {
			if p := bgr(frame, x, y); p[1] < 100 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 0, "label text should be drawn")
}

// TestAnnotateNoSpecs verifies a frame with nothing to draw is left bit-identical.
func TestAnnotateNoSpecs(t *testing.T) {
	frame := grayFrame(64, 48)
	defer frame.Close()
	original := frame.Clone()
	defer original.Close()

	NewAnnotator(inference.YOLOClasses, DefaultStyle()).Annotate(&frame, nil)
	assert.True(t, images.SamePixels(original, frame))
}

// TestAnnotateDeterministic verifies two annotations of identical inputs are bit-identical.
func TestAnnotateDeterministic(t *testing.T) {
	specs := []RenderSpec{
		{Box: image.Rect(10, 10, 50, 90), Label: "person: 0.87", Confidence: 0.87},
		{Box: image.Rect(40, 5, 120, 60), Label: "person: 0.41", Confidence: 0.41},
		{Box: image.Rect(150, 150, 210, 230), Label: "person: 0.99", Confidence: 0.99},
	}
	a := NewAnnotator(inference.YOLOClasses, DefaultStyle())

	first := grayFrame(200, 200)
	defer first.Close()
	second := grayFrame(200, 200)
	defer second.Close()

	a.Annotate(&first, specs)
	a.Annotate(&second, specs)

	assert.Equal(t, images.ComputeMatChecksum(first), images.ComputeMatChecksum(second))
	assert.True(t, images.SamePixels(first, second))
}
