package detectors

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/nvr-ai/persondetect/images"
	"github.com/nvr-ai/persondetect/inference"
	"github.com/pkg/errors"
)

// Head describes the layout of a YOLO detection output [1, 4+classes, anchors].
type Head struct {
	Classes int
	Anchors int
}

// Len returns the number of floats in one output.
func (h Head) Len() int {
	return (4 + h.Classes) * h.Anchors
}

// DecodeOutput turns a raw detection head into detections in frame coordinates.
//
// Each anchor column holds cx, cy, w, h in model-input pixels followed by one
// score per class. The best-scoring class is kept when its score, clamped to
// [0, 1], reaches threshold. Boxes are mapped back through the letterbox,
// clipped to the frame and truncated to whole pixels; boxes with no area
// after clipping are dropped.
//
// Arguments:
//   - output: The raw head, laid out as [4+classes][anchors].
//   - head: The head layout.
//   - lb: The letterbox the frame was prepared with.
//   - threshold: The confidence threshold.
//
// Returns:
//   - []inference.Detection: The candidates, in anchor order.
//   - error: An error if output does not match head.
func DecodeOutput(output []float32, head Head, lb inference.Letterbox, threshold float32) ([]inference.Detection, error) {
	if head.Classes <= 0 || head.Anchors <= 0 {
		return nil, errors.Errorf("invalid head %d classes x %d anchors", head.Classes, head.Anchors)
	}
	if len(output) < head.Len() {
		return nil, errors.Errorf("output holds %d floats, head needs %d", len(output), head.Len())
	}

	n := head.Anchors
	detections := make([]inference.Detection, 0, 64)

	for idx := 0; idx < n; idx++ {
		classID := 0
		probability := output[4*n+idx]
		for col := 1; col < head.Classes; col++ {
			if p := output[(4+col)*n+idx]; p > probability {
				probability = p
				classID = col
			}
		}

		if math32.IsNaN(probability) {
			continue
		}
		confidence := clampf(probability, 0, 1)
		if confidence < threshold {
			continue
		}

		xc, yc := output[idx], output[n+idx]
		w, h := output[2*n+idx], output[3*n+idx]
		box := lb.UnmapBox(xc-w/2, yc-h/2, xc+w/2, yc+h/2)
		if box.Empty() {
			continue
		}

		detections = append(detections, inference.Detection{
			ClassID:    classID,
			Confidence: confidence,
			Box:        box,
		})
	}

	return detections, nil
}

// NonMaxSuppression applies class-aware greedy suppression.
//
// Candidates are visited by descending confidence; a candidate is dropped when
// it overlaps an already kept box of the same class by more than iouThreshold.
//
// Arguments:
//   - detections: The candidates. The slice is not modified.
//   - iouThreshold: The overlap above which the weaker box is suppressed.
//   - limit: The maximum number of detections to keep, 0 for no limit.
//
// Returns:
//   - []inference.Detection: The kept detections, highest confidence first.
func NonMaxSuppression(detections []inference.Detection, iouThreshold float32, limit int) []inference.Detection {
	sorted := make([]inference.Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]inference.Detection, 0, len(sorted))
	for _, candidate := range sorted {
		overlaps := false
		for _, existing := range kept {
			if existing.ClassID == candidate.ClassID && images.CalculateIoU(existing.Box, candidate.Box) > iouThreshold {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		kept = append(kept, candidate)
		if limit > 0 && len(kept) == limit {
			break
		}
	}

	return kept
}

// AnchorCount returns the number of anchors a stride 8/16/32 head produces for a square input.
func AnchorCount(inputSize int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		n += side * side
	}
	return n
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
