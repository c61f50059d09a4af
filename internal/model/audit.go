package model

import "github.com/google/uuid"

// ChangeAction names a student mutation.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// StudentChange is published on every successful mutation and queued for the
// audit log.
type StudentChange struct {
	Action    ChangeAction `json:"action"`
	StudentID uuid.UUID    `json:"student_id"`
	ActorID   uuid.UUID    `json:"actor_id"`
	Snapshot  *Student     `json:"snapshot,omitempty"`
}
