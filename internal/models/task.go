package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusCompleted  TaskStatus = "completed"
	StatusFailed     TaskStatus = "failed"
)

// Terminal reports whether the status can no longer change.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one end-to-end scoring request tracked through its asynchronous
// lifecycle. Result is set only for completed tasks, ErrorMessage only for
// failed ones. Message carries the latest progress line while processing.
type Task struct {
	ID             uuid.UUID      `json:"id"`
	JobDescription string         `json:"job_description"`
	Provider       string         `json:"model_provider"`
	Candidates     []Candidate    `json:"-"`
	Status         TaskStatus     `json:"status"`
	Message        string         `json:"message,omitempty"`
	Result         *ScoringResult `json:"result,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
