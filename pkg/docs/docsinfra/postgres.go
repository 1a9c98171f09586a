package docsinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/robypag/scentsmith/pkg/docs"
	"github.com/robypag/scentsmith/pkg/errx"
)

var storeErrors = errx.NewRegistry("DOCS_PG")

var (
	ErrNotFound          = storeErrors.Register("NOT_FOUND", errx.TypeNotFound, 404, "Document not found")
	ErrIllegalTransition = storeErrors.Register("ILLEGAL_TRANSITION", errx.TypeConflict, 409, "Illegal document status transition")
	ErrPersistence       = storeErrors.Register("PERSISTENCE", errx.TypeExternal, 500, "Document store operation failed")
)

// PostgresStore implements docs.Store on Postgres with pgvector for
// chunk embeddings.
type PostgresStore struct {
	db        *sqlx.DB
	dimension int
}

// NewPostgresStore creates a store writing embeddings of the given
// dimension.
func NewPostgresStore(db *sqlx.DB, dimension int) *PostgresStore {
	return &PostgresStore{db: db, dimension: dimension}
}

// EnsureSchema creates the pgvector extension and the pipeline tables.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS documents (
			id         UUID PRIMARY KEY,
			user_id    UUID NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			file_name  TEXT NOT NULL,
			mime_type  TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			summary    TEXT NOT NULL DEFAULT '',
			metadata   JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS documents_user_idx ON documents (user_id)`,
		`CREATE TABLE IF NOT EXISTS resources (
			id          UUID PRIMARY KEY,
			document_id UUID NOT NULL UNIQUE REFERENCES documents(id) ON DELETE CASCADE,
			kind        TEXT NOT NULL,
			chunk_count INT NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id          UUID PRIMARY KEY,
			resource_id UUID NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
			idx         INT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d)
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS chunks_resource_idx ON chunks (resource_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errx.Wrap(err, "failed to ensure document schema", errx.TypeExternal)
		}
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, doc *docs.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = docs.StatusPending
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	meta, err := json.Marshal(metadataOrEmpty(doc.Metadata))
	if err != nil {
		return wrapPersistence(err, doc.ID)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_id, title, file_name, mime_type, status, summary, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.UserID, doc.Title, doc.FileName, doc.MimeType, doc.Status, doc.Summary, meta, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return wrapPersistence(err, doc.ID)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*docs.Document, error) {
	var row struct {
		docs.Document
		Metadata []byte `db:"metadata"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, title, file_name, mime_type, status, summary, metadata, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, notFound(id)
		}
		return nil, wrapPersistence(err, id)
	}

	doc := row.Document
	if len(row.Metadata) > 0 {
		_ = json.Unmarshal(row.Metadata, &doc.Metadata)
	}
	return &doc, nil
}

// SaveEnrichment persists the summary/metadata produced mid-pipeline and
// flips pending documents to processing. Re-running on retry rewrites
// the same columns, so the operation is idempotent.
func (s *PostgresStore) SaveEnrichment(ctx context.Context, id string, summary string, metadata map[string]any) error {
	meta, err := json.Marshal(metadataOrEmpty(metadata))
	if err != nil {
		return wrapPersistence(err, id)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET summary = $2, metadata = $3, status = 'processing', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'processing')`,
		id, summary, meta,
	)
	if err != nil {
		return wrapPersistence(err, id)
	}
	return s.expectRow(ctx, res, id, docs.StatusProcessing)
}

func (s *PostgresStore) SetStatus(ctx context.Context, id string, to docs.Status) error {
	from := allowedFrom(to)
	if len(from) == 0 {
		return docsErrIllegal(id, to)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)`,
		id, to, pq.Array(from),
	)
	if err != nil {
		return wrapPersistence(err, id)
	}
	return s.expectRow(ctx, res, id, to)
}

// ReplaceChunks is the single write path for resources and chunks. The
// resource row is upserted by document_id and prior chunks are replaced
// inside one transaction, so retried jobs cannot duplicate resources or
// leave embeddings without a parent.
func (s *PostgresStore) ReplaceChunks(ctx context.Context, documentID string, kind string, chunks []docs.Chunk) (string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", wrapPersistence(err, documentID)
	}
	defer tx.Rollback()

	var resourceID string
	err = tx.GetContext(ctx, &resourceID, `
		INSERT INTO resources (id, document_id, kind, chunk_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (document_id)
		DO UPDATE SET kind = EXCLUDED.kind, chunk_count = EXCLUDED.chunk_count, updated_at = now()
		RETURNING id`,
		uuid.New().String(), documentID, kind, len(chunks),
	)
	if err != nil {
		return "", wrapPersistence(err, documentID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE resource_id = $1`, resourceID); err != nil {
		return "", wrapPersistence(err, documentID)
	}

	for _, chunk := range chunks {
		id := chunk.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, resource_id, idx, content, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)`,
			id, resourceID, chunk.Index, chunk.Content, formatVector(chunk.Embedding),
		); err != nil {
			return "", wrapPersistence(err, documentID)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", wrapPersistence(err, documentID)
	}
	return resourceID, nil
}

// expectRow turns an unmatched guarded UPDATE into the precise typed
// error: not-found when the row is missing, illegal-transition when it
// exists but the guard rejected the move.
func (s *PostgresStore) expectRow(ctx context.Context, res sql.Result, id string, to docs.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapPersistence(err, id)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.GetContext(ctx, &current, `SELECT status FROM documents WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return notFound(id)
	}
	if err != nil {
		return wrapPersistence(err, id)
	}
	return docsErrIllegal(id, to).WithDetail("current", current)
}

func allowedFrom(to docs.Status) []string {
	var from []string
	for _, s := range []docs.Status{docs.StatusPending, docs.StatusProcessing, docs.StatusReady, docs.StatusFailed} {
		if docs.CanTransition(s, to) {
			from = append(from, string(s))
		}
	}
	return from
}

// formatVector renders a pgvector literal like [0.1,0.2,0.3].
func formatVector(v []float32) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%g", f)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func notFound(id string) *errx.Error {
	return storeErrors.New(ErrNotFound).WithDetail("document_id", id)
}

func wrapPersistence(err error, id string) *errx.Error {
	return storeErrors.NewWithCause(ErrPersistence, err).WithDetail("document_id", id)
}

func docsErrIllegal(id string, to docs.Status) *errx.Error {
	return storeErrors.New(ErrIllegalTransition).
		WithDetail("document_id", id).
		WithDetail("to", string(to))
}
