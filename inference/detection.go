// Package inference - Detection values, the detector contract, preprocessing and ONNX Runtime setup.
package inference

import (
	"fmt"

	"github.com/nvr-ai/persondetect/images"
	"gocv.io/x/gocv"
)

// Detection is one object reported by a detector for one frame.
type Detection struct {
	// ClassID is the index into the model's label set.
	ClassID int
	// Confidence is the detector score in [0, 1].
	Confidence float32
	// Box is the object's bounding box in frame pixels.
	Box images.Rect
}

func (d Detection) String() string {
	return fmt.Sprintf("class %d (confidence %.4f) at %s", d.ClassID, d.Confidence, d.Box)
}

// Params controls a single inference call.
type Params struct {
	// ConfidenceThreshold is a hard cutoff: detections scoring below it are never returned.
	ConfidenceThreshold float32 `json:"confidence_threshold"`
	// IoUThreshold is the overlap above which non-maximum suppression drops the weaker box.
	IoUThreshold float32 `json:"iou_threshold"`
	// InputSize is the square model input edge in pixels. 0 uses the size the model was loaded with.
	InputSize int `json:"input_size"`
	// MaxDetections caps the number of boxes returned per frame. 0 means unlimited.
	MaxDetections int `json:"max_detections"`
}

// DefaultParams returns the thresholds used by the command line tool.
func DefaultParams() Params {
	return Params{
		ConfidenceThreshold: 0.25,
		IoUThreshold:        0.7,
		InputSize:           640,
		MaxDetections:       300,
	}
}

// Detector runs a pretrained object-detection model on single frames.
type Detector interface {
	// Infer returns the detections for frame. The frame is not modified.
	Infer(frame gocv.Mat, params Params) ([]Detection, error)
	// ClassNames returns the model's label set, indexed by class id.
	ClassNames() []string
	// Close releases the model.
	Close() error
}

// FilterClass keeps the detections whose class id equals classID.
//
// The result preserves the input order and performs no deduplication,
// suppression or confidence check; it is a pure projection. An empty input
// yields an empty, non-nil slice.
//
// Arguments:
//   - detections: The detector output for one frame.
//   - classID: The class to keep.
//
// Returns:
//   - []Detection: The matching detections in their original order.
func FilterClass(detections []Detection, classID int) []Detection {
	filtered := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.ClassID == classID {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
