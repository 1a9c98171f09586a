package jobx

import (
	"encoding/json"
	"time"
)

// State represents the broker-owned lifecycle of a job.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateDelayed   State = "delayed"
)

// Terminal reports whether the state is absorbing.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Priority selects the dequeue lane. Higher lanes are always drained
// before lower ones.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityDefault  Priority = "default"
	PriorityLow      Priority = "low"
)

// Lanes returns all priority lanes in dequeue order.
func Lanes() []Priority {
	return []Priority{PriorityCritical, PriorityDefault, PriorityLow}
}

// Valid reports whether p is a known lane.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityDefault, PriorityLow:
		return true
	}
	return false
}

// Job is a unit of work submitted to the broker.
type Job struct {
	Category string          `json:"category"`
	UserID   string          `json:"user_id"`
	Payload  json.RawMessage `json:"payload"`

	Priority    Priority      `json:"priority"`
	MaxAttempts int           `json:"max_attempts"`
	Backoff     BackoffPolicy `json:"backoff"`

	// Retention bounds the completed/failed history kept by the broker.
	KeepCompleted int `json:"keep_completed"`
	KeepFailed    int `json:"keep_failed"`
}

// JobInfo is the broker's full view of a job, returned by status reads.
type JobInfo struct {
	ID            string          `json:"id"`
	Category      string          `json:"category"`
	UserID        string          `json:"user_id"`
	Payload       json.RawMessage `json:"payload"`
	State         State           `json:"state"`
	Priority      Priority        `json:"priority"`
	Error         string          `json:"error,omitempty"`
	Attempts      int             `json:"attempts"`
	MaxAttempts   int             `json:"max_attempts"`
	Backoff       BackoffPolicy   `json:"backoff"`
	KeepCompleted int             `json:"keep_completed"`
	KeepFailed    int             `json:"keep_failed"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
