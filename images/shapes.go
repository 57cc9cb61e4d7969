// Package images - Box geometry and frame helpers shared by the detector and annotator.
package images

import (
	"fmt"
	"image"
)

// Rect is an axis-aligned box in integer pixel coordinates.
//
// X1,Y1 is the top-left corner and X2,Y2 the bottom-right corner, in the same
// convention the detector reports them (x1 < x2, y1 < y2). A Rect is not
// guaranteed to lie inside the frame it was detected on.
type Rect struct {
	X1, Y1, X2, Y2 int
}

// Width returns the horizontal extent of the box.
func (r Rect) Width() int {
	return r.X2 - r.X1
}

// Height returns the vertical extent of the box.
func (r Rect) Height() int {
	return r.Y2 - r.Y1
}

// Area returns the area of the box in pixels, or 0 for degenerate boxes.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Empty reports whether the box has no area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Rectangle converts the box to an image.Rectangle with the same corners.
//
// Returns:
//   - image.Rectangle: Min is (X1, Y1) and Max is (X2, Y2).
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Clip restricts the box to the given frame dimensions.
//
// Arguments:
//   - width: The frame width in pixels.
//   - height: The frame height in pixels.
//
// Returns:
//   - Rect: The clipped box. It may be empty if the box was entirely outside the frame.
func (r Rect) Clip(width, height int) Rect {
	return Rect{
		X1: clamp(r.X1, 0, width),
		Y1: clamp(r.Y1, 0, height),
		X2: clamp(r.X2, 0, width),
		Y2: clamp(r.Y2, 0, height),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CalculateIoU returns the Intersection over Union of two boxes.
//
// IoU = area(r ∩ o) / area(r ∪ o). Boxes that do not overlap, or touch only on
// an edge, yield 0.
//
// Arguments:
//   - r: The first box.
//   - o: The second box.
//
// Returns:
//   - float32: A value in [0, 1].
//
// Example:
//
// ```go
//
//	iou := CalculateIoU(Rect{0, 0, 10, 10}, Rect{5, 5, 15, 15}) // 25 / 175 = 0.142857
//
// ```
func CalculateIoU(r, o Rect) float32 {
	ix1 := max(r.X1, o.X1)
	iy1 := max(r.Y1, o.Y1)
	ix2 := min(r.X2, o.X2)
	iy2 := min(r.Y2, o.Y2)

	interW := ix2 - ix1
	interH := iy2 - iy1
	if interW <= 0 || interH <= 0 {
		return 0.0
	}
	interArea := interW * interH

	unionArea := r.Area() + o.Area() - interArea
	if unionArea <= 0 {
		return 0.0
	}

	return float32(interArea) / float32(unionArea)
}
