package knowledge

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgx operations the query layer needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the concrete PostgreSQL query layer for knowledge documents.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertDocumentParams are the inputs for UpsertDocument.
type UpsertDocumentParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte // JSON-encoded Metadata
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, embedding, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content,
    embedding = EXCLUDED.embedding,
    metadata = EXCLUDED.metadata`

// UpsertDocument inserts or replaces a document by id.
func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.Exec(ctx, upsertDocumentSQL, arg.ID, arg.Content, arg.Embedding, arg.Metadata)
	return err
}

// SearchDocumentsParams are the inputs for SearchDocuments.
type SearchDocumentsParams struct {
	QueryEmbedding pgvector.Vector
	SourceIDs      []string // empty slice = no scope filter
	ResultLimit    int32
}

// SearchDocumentsRow is one vector search hit.
type SearchDocumentsRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

const searchDocumentsSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM documents
WHERE cardinality($2::text[]) = 0 OR metadata->>'source_id' = ANY($2::text[])
ORDER BY embedding <=> $1
LIMIT $3`

// SearchDocuments performs a cosine similarity search, optionally scoped to
// a set of source ids, ordered by descending similarity.
func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	sources := arg.SourceIDs
	if sources == nil {
		sources = []string{}
	}
	rows, err := q.db.Query(ctx, searchDocumentsSQL, arg.QueryEmbedding, sources, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchDocumentsRow
	for rows.Next() {
		var row SearchDocumentsRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const countDocumentsSQL = `SELECT count(*) FROM documents`

// CountDocuments returns the total number of stored documents.
func (q *Queries) CountDocuments(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countDocumentsSQL).Scan(&n)
	return n, err
}

const deleteBySourceSQL = `DELETE FROM documents WHERE metadata->>'source_id' = $1`

// DeleteBySource removes all documents belonging to one source.
func (q *Queries) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteBySourceSQL, sourceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
