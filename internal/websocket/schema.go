package websocket

import "github.com/stemsi/student-records/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is the only message a change-feed client may send.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventStudentChanged Event = "student_changed"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

// ChangeEvent tells the dashboard that its record list is stale.
type ChangeEvent struct {
	Event     Event              `json:"event"`
	Action    model.ChangeAction `json:"action"`
	StudentID string             `json:"student_id"`
}

// NewChangeEvent strips the snapshot and actor from a published change.
func NewChangeEvent(c model.StudentChange) ChangeEvent {
	return ChangeEvent{
		Event:     EventStudentChanged,
		Action:    c.Action,
		StudentID: c.StudentID.String(),
	}
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
