package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYOLOClasses(t *testing.T) {
	assert.Len(t, YOLOClasses, 80)
	assert.Equal(t, PersonClassName, YOLOClasses[DefaultPersonClassID])
	assert.Equal(t, "car", YOLOClasses[2])
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "person", ClassName(YOLOClasses, 0))
	assert.Equal(t, "toothbrush", ClassName(YOLOClasses, 79))
	assert.Equal(t, "class_80", ClassName(YOLOClasses, 80))
	assert.Equal(t, "class_-1", ClassName(YOLOClasses, -1))
	assert.Equal(t, "class_1", ClassName([]string{"a", ""}, 1))
}

func TestClassIndex(t *testing.T) {
	assert.Equal(t, 0, ClassIndex(YOLOClasses, "person", 7))
	assert.Equal(t, 3, ClassIndex([]string{"car", "bus", "truck", "Person"}, "person", 0))
	assert.Equal(t, 7, ClassIndex([]string{"car", "bus"}, "person", 7))
	assert.Equal(t, 0, ClassIndex(nil, "person", 0))
}

// TestParseClassNames verifies the exporter's names mapping is decoded into a dense slice.
func TestParseClassNames(t *testing.T) {
	names, err := ParseClassNames("{0: 'person', 1: 'bicycle', 2: 'car'}")
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car"}, names)

	names, err = ParseClassNames("{3: 'helmet', 0: 'head'}")
	require.NoError(t, err)
	assert.Equal(t, []string{"head", "", "", "helmet"}, names)

	for _, raw := range []string{"", "{}", "[person, car]", "{-1: 'x'}", "{0: 'a'"} {
		_, err := ParseClassNames(raw)
		assert.Error(t, err, "raw %q", raw)
	}
}

func TestParseImageSize(t *testing.T) {
	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"[640, 640]", 640, false},
		{"[480, 640]", 640, false},
		{"[320]", 320, false},
		{"[]", 0, true},
		{"[0, 640]", 0, true},
		{"[1, 2, 3]", 0, true},
		{"640x640", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseImageSize(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
