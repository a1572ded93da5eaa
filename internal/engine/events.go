package engine

import "github.com/quizpath/session-gateway/internal/model"

// EventType labels asynchronous session notifications.
type EventType string

const (
	// EventTick carries the remaining whole seconds, once per second while
	// the countdown runs (through ACTIVE and FEEDBACK).
	EventTick EventType = "tick"
	// EventFeedback carries the grading outcome of a successful submission.
	EventFeedback EventType = "feedback"
	// EventFinished carries the frozen summary. Emitted exactly once, whether
	// the finish was user-driven or forced by timer expiry.
	EventFinished EventType = "finished"
)

// Event is a session notification pushed to at most one subscriber (the
// WebSocket stream). Emission never blocks the session; if the subscriber
// falls behind, events are dropped.
type Event struct {
	Type      EventType       `json:"event"`
	Remaining int             `json:"remaining,omitempty"`
	Index     int             `json:"index"`
	Feedback  *model.Feedback `json:"feedback,omitempty"`
	Summary   *model.Summary  `json:"summary,omitempty"`
}
