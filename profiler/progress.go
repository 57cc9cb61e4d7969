package profiler

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress is a frame counter rendered as a terminal progress bar.
//
// A nil or disabled Progress accepts every call and draws nothing.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total frames.
//
// Arguments:
//   - w: The terminal to draw on, usually os.Stderr.
//   - total: The expected number of frames, or 0 when unknown (drawn as a spinner).
//   - description: The text shown before the bar.
//   - enabled: false returns a Progress that draws nothing.
//
// Returns:
//   - *Progress: The progress bar.
func NewProgress(w io.Writer, total int, description string, enabled bool) *Progress {
	if !enabled {
		return &Progress{}
	}

	limit := int64(total)
	if limit <= 0 {
		limit = -1
	}

	bar := progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowIts(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	)

	return &Progress{bar: bar}
}

// Add advances the bar by n frames.
func (p *Progress) Add(n int) {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Add(n)
}

// Finish completes the bar. Calling it more than once is a no-op.
func (p *Progress) Finish() error {
	if p == nil || p.bar == nil {
		return nil
	}
	bar := p.bar
	p.bar = nil
	if bar.IsFinished() {
		return nil
	}
	return bar.Finish()
}
