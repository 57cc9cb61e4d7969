// Package annotate - Draws detection boxes and confidence labels onto frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/persondetect/inference"
	"gocv.io/x/gocv"
)

// Style holds the drawing parameters shared by every box on a frame.
type Style struct {
	// BoxColor is used for the outline and the label background.
	BoxColor color.RGBA
	// TextColor is used for the label text.
	TextColor color.RGBA
	// BoxThickness is the outline width in pixels.
	BoxThickness int
	// Font is the Hershey font face of the label.
	Font gocv.HersheyFont
	// FontScale is the label font scale factor.
	FontScale float64
	// FontThickness is the label stroke width in pixels.
	FontThickness int
}

// DefaultStyle returns green boxes of width 2 with black 0.5-scale Hershey Simplex labels.
func DefaultStyle() Style {
	return Style{
		BoxColor:      color.RGBA{R: 0, G: 255, B: 0, A: 0},
		TextColor:     color.RGBA{R: 0, G: 0, B: 0, A: 0},
		BoxThickness:  2,
		Font:          gocv.FontHersheySimplex,
		FontScale:     0.5,
		FontThickness: 1,
	}
}

// RenderSpec is what gets drawn for one detection.
type RenderSpec struct {
	// Box is the outline, Min at the top-left corner and Max at the bottom-right corner.
	Box image.Rectangle
	// Label is the text placed above the box.
	Label string
	// Confidence is the detector score the label was built from.
	Confidence float32
}

// Label formats the text drawn above a box, e.g. "person: 0.87".
func Label(className string, confidence float32) string {
	return fmt.Sprintf("%s: %.2f", className, confidence)
}

// Annotator draws render specs onto frames.
type Annotator struct {
	style Style
	names []string
}

// NewAnnotator creates an annotator.
//
// Arguments:
//   - names: The detector class names used to build labels.
//   - style: The drawing parameters.
//
// Returns:
//   - *Annotator: The annotator.
func NewAnnotator(names []string, style Style) *Annotator {
	return &Annotator{style: style, names: names}
}

// Specs derives one render spec per detection, in order.
func (a *Annotator) Specs(detections []inference.Detection) []RenderSpec {
	specs := make([]RenderSpec, 0, len(detections))
	for _, d := range detections {
		specs = append(specs, RenderSpec{
			Box:        d.Box.Rectangle(),
			Label:      Label(inference.ClassName(a.names, d.ClassID), d.Confidence),
			Confidence: d.Confidence,
		})
	}
	return specs
}

// Annotate draws every spec onto frame in order.
//
// For each spec the box outline is drawn first, then a filled label
// background sitting on the box's top edge, then the label text inside it.
// Labels are not moved when they would extend above the frame; OpenCV clips
// them. Drawing is deterministic: identical inputs give identical pixels.
//
// Arguments:
//   - frame: The BGR frame to draw on, modified in place.
//   - specs: The boxes and labels.
func (a *Annotator) Annotate(frame *gocv.Mat, specs []RenderSpec) {
	s := a.style
	for _, spec := range specs {
		x1, y1 := spec.Box.Min.X, spec.Box.Min.Y

		gocv.RectangleWithParams(frame, spec.Box, s.BoxColor, s.BoxThickness, gocv.Line8, 0)

		size, baseline := gocv.GetTextSizeWithBaseline(spec.Label, s.Font, s.FontScale, s.FontThickness)
		background := image.Rectangle{
			Min: image.Pt(x1, y1-size.Y-baseline-4),
			Max: image.Pt(x1+size.X+2, y1),
		}
		gocv.RectangleWithParams(frame, background, s.BoxColor, -1, gocv.Line8, 0)

		gocv.PutTextWithParams(frame, spec.Label, image.Pt(x1+2, y1-4),
			s.Font, s.FontScale, s.TextColor, s.FontThickness, gocv.LineAA, false)
	}
}

// AnnotateDetections is Specs followed by Annotate.
func (a *Annotator) AnnotateDetections(frame *gocv.Mat, detections []inference.Detection) []RenderSpec {
	specs := a.Specs(detections)
	a.Annotate(frame, specs)
	return specs
}
