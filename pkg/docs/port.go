package docs

import "context"

// Store is the persistence port for documents and their derived
// resources. The pipeline worker is the only writer of status, summary,
// resources and chunks.
type Store interface {
	// Create inserts a new document in the pending status.
	Create(ctx context.Context, doc *Document) error

	// Get returns the document or a typed not-found error.
	Get(ctx context.Context, id string) (*Document, error)

	// SaveEnrichment persists summary and metadata and moves the
	// document to processing. Safe to re-run on a retried job.
	SaveEnrichment(ctx context.Context, id string, summary string, metadata map[string]any) error

	// SetStatus applies a guarded monotonic transition. Moving an
	// already-terminal document is a typed conflict error.
	SetStatus(ctx context.Context, id string, to Status) error

	// ReplaceChunks upserts the document's single resource row and
	// replaces its chunks in one transaction, so embeddings never exist
	// without their parent resource. Returns the resource id.
	ReplaceChunks(ctx context.Context, documentID string, kind string, chunks []Chunk) (string, error)
}
