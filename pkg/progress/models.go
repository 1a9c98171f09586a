package progress

import (
	"time"
)

// Step names one pipeline stage boundary.
type Step string

const (
	StepStarted            Step = "started"
	StepTextExtraction     Step = "text_extraction"
	StepSummarization      Step = "summarization"
	StepMetadataExtraction Step = "metadata_extraction"
	StepDatabaseUpdate     Step = "database_update"
	StepChunking           Step = "chunking"
	StepEmbeddingStorage   Step = "embedding_storage"
	StepCompleted          Step = "completed"
)

// Status is the coarse job state derived from a step for consumers that
// only render a badge.
type Status string

const (
	StatusStarted    Status = "started"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Event is one progress notification produced by the worker at a stage
// boundary. Percentages are non-decreasing within one job's lifetime.
type Event struct {
	JobID      string         `json:"jobId"`
	Percentage int            `json:"percentage"`
	Message    string         `json:"message"`
	Step       Step           `json:"step"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Failed reports whether the event is a terminal failure notification.
func (e Event) Failed() bool {
	return e.Metadata != nil && e.Metadata["failed"] == true
}

// Message is the wire form of an Event: the event plus its derived
// coarse status. Messages are ephemeral and never persisted.
type Message struct {
	Event
	Status Status `json:"status"`
}

// NewMessage wraps an event with its derived status.
func NewMessage(e Event) Message {
	return Message{Event: e, Status: deriveStatus(e)}
}

func deriveStatus(e Event) Status {
	switch {
	case e.Failed():
		return StatusFailed
	case e.Step == StepStarted:
		return StatusStarted
	case e.Step == StepCompleted:
		return StatusCompleted
	default:
		return StatusProcessing
	}
}

// ChannelFor returns the pub/sub channel for a user's progress stream.
// userID must be the internal identifier, never an email or session id.
func ChannelFor(userID string) string {
	return "job_progress:" + userID
}
