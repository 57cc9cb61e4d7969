// Package pipeline - Drives frames from a video source through the detector and annotator into a video sink.
package pipeline

// State is the lifecycle stage of a run.
type State int

const (
	// Initializing covers input validation and opening the source, sink and detector.
	Initializing State = iota
	// Running is the frame loop.
	Running
	// Completed means the source was exhausted and every frame was written.
	Completed
	// Failed means the run was aborted.
	Failed
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}
