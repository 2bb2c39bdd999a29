package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction kinds.
const (
	KindChat   = "chat"
	KindReport = "report"
)

// Interaction statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Interaction is one chat turn or report draft sent to the local model.
// Role holds the chat role for chats and the template type for reports.
type Interaction struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	Model      string    `json:"model"`
	Role       string    `json:"role"`
	Audience   string    `json:"audience"`
	Prompt     string    `json:"prompt"`
	Response   string    `json:"response"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}
