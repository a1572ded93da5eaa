package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionAdvance Action = "advance"
	ActionFinish  Action = "finish"
	ActionReview  Action = "review"
	ActionPing    Action = "ping"
)

// RequestPayload carries a client action. Only submit uses Option.
type RequestPayload struct {
	Action Action `json:"action"`
	Option string `json:"option,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventState    Event = "state"
	EventTick     Event = "tick"
	EventFeedback Event = "feedback"
	EventFinished Event = "finished"
	EventPong     Event = "pong"
)

// EventPayload is the envelope for server pushes. Data holds the
// event-specific body: a session view for state, remaining seconds for tick,
// the grading outcome for feedback, the frozen summary for finished.
type EventPayload struct {
	Event Event       `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
