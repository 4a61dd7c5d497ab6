package models

import "errors"

var (
	// ErrTaskNotFound is returned when a task id is unknown or already deleted.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskConflict is returned when a status transition races with another
	// writer (e.g. the pending poller and a direct enqueue).
	ErrTaskConflict = errors.New("task status conflict")
)
