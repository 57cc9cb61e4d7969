package images

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// TestIoU_Correctness validates the IoU implementation against known test cases
func TestIoU_Correctness(t *testing.T) {
	tests := []struct {
		name     string
		r1       Rect
		r2       Rect
		expected float32
	}{
		{"Identical rectangles", Rect{0, 0, 100, 100}, Rect{0, 0, 100, 100}, 1.0},
		{"No overlap", Rect{0, 0, 100, 100}, Rect{200, 200, 300, 300}, 0.0},
		{"Touching edges", Rect{0, 0, 100, 100}, Rect{100, 0, 200, 100}, 0.0},
		// intersection=2500, union=10000+10000-2500=17500
		{"Half overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 150, 150}, 0.142857},
		// intersection=2500, union=10000
		{"One inside other", Rect{0, 0, 100, 100}, Rect{25, 25, 75, 75}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.InDelta(t, tt.expected, result, 0.001)

			reverse := CalculateIoU(tt.r2, tt.r1)
			assert.InDelta(t, result, reverse, 0.0001, "IoU must be symmetric")
		})
	}
}

// TestIoU_vs_ImageRectangle compares against an image.Rectangle based computation.
func TestIoU_vs_ImageRectangle(t *testing.T) {
	cases := [][2]Rect{
		{{0, 0, 100, 100}, {50, 50, 150, 150}},
		{{50, 50, 150, 150}, {50, 50, 150, 150}},
		{{0, 0, 1920, 1080}, {960, 540, 1920, 1080}},
	}

	for _, c := range cases {
		ir1, ir2 := c[0].Rectangle(), c[1].Rectangle()
		inter := ir1.Intersect(ir2)
		interArea := inter.Dx() * inter.Dy()
		union := ir1.Dx()*ir1.Dy() + ir2.Dx()*ir2.Dy() - interArea
		want := float32(interArea) / float32(union)

		got := CalculateIoU(c[0], c[1])
		if math.Abs(float64(got-want)) > 0.0001 {
			t.Errorf("IoU(%v, %v) = %v, image.Rectangle gives %v", c[0], c[1], got, want)
		}
	}
}

func TestIoU_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		r1   Rect
		r2   Rect
	}{
		{"Zero area rectangle", Rect{0, 0, 0, 0}, Rect{0, 0, 100, 100}},
		{"Both zero area", Rect{0, 0, 0, 0}, Rect{10, 10, 10, 10}},
		{"Negative coordinates", Rect{-100, -100, 0, 0}, Rect{-50, -50, 50, 50}},
		{"Single pixel", Rect{0, 0, 1, 1}, Rect{0, 0, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculateIoU(tt.r1, tt.r2)
			assert.GreaterOrEqual(t, result, float32(0))
			assert.LessOrEqual(t, result, float32(1))
		})
	}
}

func TestRectClip(t *testing.T) {
	r := Rect{X1: -20, Y1: 10, X2: 700, Y2: 500}
	assert.Equal(t, Rect{X1: 0, Y1: 10, X2: 640, Y2: 480}, r.Clip(640, 480))

	outside := Rect{X1: 700, Y1: 10, X2: 800, Y2: 20}.Clip(640, 480)
	assert.True(t, outside.Empty())
	assert.Equal(t, 0, outside.Area())
}

func TestRectRectangle(t *testing.T) {
	r := Rect{X1: 10, Y1: 10, X2: 50, Y2: 90}
	assert.Equal(t, image.Rect(10, 10, 50, 90), r.Rectangle())
	assert.Equal(t, 40, r.Width())
	assert.Equal(t, 80, r.Height())
	assert.Equal(t, 3200, r.Area())
}

func TestComputeMatChecksum(t *testing.T) {
	a := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer a.Close()
	b := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer b.Close()
	a.SetTo(gocv.NewScalar(10, 20, 30, 0))
	b.SetTo(gocv.NewScalar(10, 20, 30, 0))

	assert.Equal(t, ComputeMatChecksum(a), ComputeMatChecksum(b))
	assert.True(t, SamePixels(a, b))

	gocv.Rectangle(&b, image.Rect(5, 5, 20, 20), color.RGBA{0, 255, 0, 0}, 1)
	assert.NotEqual(t, ComputeMatChecksum(a), ComputeMatChecksum(b))
	assert.False(t, SamePixels(a, b))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Equal(t, "empty", ComputeMatChecksum(empty))
}
