package inference

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PersonClassName is the label the person filter looks for.
const PersonClassName = "person"

// DefaultPersonClassID is the person index in the 80-class YOLO label set.
const DefaultPersonClassID = 0

// YOLOClasses is the 80 COCO classes with zero-based YOLO indexing (no background class).
var YOLOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// ClassName returns the label for classID, or "class_<id>" when the id is outside names.
func ClassName(names []string, classID int) string {
	if classID >= 0 && classID < len(names) && names[classID] != "" {
		return names[classID]
	}
	return "class_" + strconv.Itoa(classID)
}

// ClassIndex returns the id of the first class named name, or fallback when it is absent.
func ClassIndex(names []string, name string, fallback int) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return fallback
}

// ParseClassNames decodes the "names" entry an exported detection model carries in its metadata.
//
// Exporters write it as a flow mapping such as `{0: 'person', 1: 'bicycle'}`,
// which is valid YAML. Missing indices are left as empty strings.
//
// Arguments:
//   - raw: The metadata value.
//
// Returns:
//   - []string: Names indexed by class id.
//   - error: An error if raw is not a mapping of non-negative integers to strings.
func ParseClassNames(raw string) ([]string, error) {
	var byID map[int]string
	if err := yaml.Unmarshal([]byte(raw), &byID); err != nil {
		return nil, errors.Wrap(err, "parse class names")
	}
	if len(byID) == 0 {
		return nil, errors.New("class names mapping is empty")
	}

	ids := make([]int, 0, len(byID))
	for id := range byID {
		if id < 0 {
			return nil, errors.Errorf("negative class id %d", id)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)

	names := make([]string, ids[len(ids)-1]+1)
	for _, id := range ids {
		names[id] = byID[id]
	}
	return names, nil
}

// ParseImageSize decodes the "imgsz" metadata entry, written as `[640, 640]`.
//
// Returns:
//   - int: The square input edge. Non-square sizes return the larger edge.
//   - error: An error if raw is not a list of one or two positive integers.
func ParseImageSize(raw string) (int, error) {
	var dims []int
	if err := yaml.Unmarshal([]byte(raw), &dims); err != nil {
		return 0, errors.Wrap(err, "parse image size")
	}
	if len(dims) == 0 || len(dims) > 2 {
		return 0, errors.Errorf("image size %q must have one or two dimensions", raw)
	}
	size := 0
	for _, d := range dims {
		if d <= 0 {
			return 0, errors.Errorf("image size %q has a non-positive dimension", raw)
		}
		size = max(size, d)
	}
	return size, nil
}
