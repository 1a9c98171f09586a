package docs

import "time"

// Status is the persisted lifecycle of a document. Transitions are
// monotonic and worker-driven; ready is absorbing, failed is terminal
// for the document but re-enterable by a retried job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status ends a pipeline run.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// CanTransition reports whether from→to is a legal status move. The
// legal sequences are pending→processing→ready and
// pending→processing→failed; no transition skips processing and ready
// is absorbing. A failed document may move back to processing: the
// broker retries failed jobs, and each retry re-runs the pipeline from
// the top.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusProcessing:
		return from == StatusPending || from == StatusProcessing || from == StatusFailed
	case StatusReady, StatusFailed:
		return from == StatusProcessing
	}
	return false
}

// Document is an uploaded fragrance document and its enrichment output.
type Document struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"userId"`
	Title     string         `db:"title" json:"title"`
	FileName  string         `db:"file_name" json:"fileName"`
	MimeType  string         `db:"mime_type" json:"mimeType"`
	Status    Status         `db:"status" json:"status"`
	Summary   string         `db:"summary" json:"summary,omitempty"`
	Metadata  map[string]any `db:"-" json:"metadata,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Resource is the single retrieval unit produced for a document at the
// end of the pipeline. One resource row exists per document; retries
// overwrite it rather than duplicating it.
type Resource struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"documentId"`
	Kind       string    `db:"kind" json:"kind"`
	ChunkCount int       `db:"chunk_count" json:"chunkCount"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// Chunk is one bounded slice of extracted text with its embedding.
// Chunks are written once per pipeline run and never mutated.
type Chunk struct {
	ID        string    `db:"id" json:"id"`
	Index     int       `db:"idx" json:"index"`
	Content   string    `db:"content" json:"content"`
	Embedding []float32 `db:"-" json:"-"`
}
