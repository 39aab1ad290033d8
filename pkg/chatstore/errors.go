package chatstore

import "fmt"

// NotFoundError is returned when a conversation, turn, or attachment
// doesn't exist (or is soft-deleted / owned by another user).
type NotFoundError struct {
	Kind string // "conversation" or "attachment"
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NotReadyError is returned when an attachment exists but its sanitized
// text cannot be used: parsing is still in flight, failed, or the
// sanitized artifact is missing.
type NotReadyError struct {
	ID     string
	Reason string
}

func (e NotReadyError) Error() string {
	return fmt.Sprintf("attachment %s not ready: %s", e.ID, e.Reason)
}
