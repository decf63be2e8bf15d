package conversation

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgx operations the query layer needs. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so the same queries run inside and
// outside transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the concrete PostgreSQL query layer for threads and messages.
type Queries struct {
	db DBTX
}

// NewQueries creates a query layer over the given connection or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// ThreadRow is the raw database representation of a thread.
type ThreadRow struct {
	ID           string
	Title        string
	PersonaID    string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
	MessageCount int64
}

// MessageRow is the raw database representation of a message.
type MessageRow struct {
	ID        uuid.UUID
	ThreadID  string
	Role      string
	Content   string
	Seq       int64
	CreatedAt pgtype.Timestamptz
}

// CreateThreadParams are the inputs for CreateThread.
type CreateThreadParams struct {
	ID        string
	Title     string
	PersonaID string
}

const createThreadSQL = `
INSERT INTO threads (id, title, persona_id)
VALUES ($1, $2, $3)
RETURNING id, title, persona_id, created_at, updated_at`

// CreateThread inserts a new thread and returns it.
func (q *Queries) CreateThread(ctx context.Context, arg CreateThreadParams) (ThreadRow, error) {
	var row ThreadRow
	err := q.db.QueryRow(ctx, createThreadSQL, arg.ID, arg.Title, arg.PersonaID).
		Scan(&row.ID, &row.Title, &row.PersonaID, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const getThreadSQL = `
SELECT t.id, t.title, t.persona_id, t.created_at, t.updated_at,
       (SELECT count(*) FROM messages m WHERE m.thread_id = t.id) AS message_count
FROM threads t
WHERE t.id = $1`

// GetThread fetches a thread by id. Returns pgx.ErrNoRows when absent.
func (q *Queries) GetThread(ctx context.Context, id string) (ThreadRow, error) {
	var row ThreadRow
	err := q.db.QueryRow(ctx, getThreadSQL, id).
		Scan(&row.ID, &row.Title, &row.PersonaID, &row.CreatedAt, &row.UpdatedAt, &row.MessageCount)
	return row, err
}

const listThreadsSQL = `
SELECT t.id, t.title, t.persona_id, t.created_at, t.updated_at,
       (SELECT count(*) FROM messages m WHERE m.thread_id = t.id) AS message_count
FROM threads t
ORDER BY t.updated_at DESC`

// ListThreads returns all threads ordered by most recent activity.
func (q *Queries) ListThreads(ctx context.Context) ([]ThreadRow, error) {
	rows, err := q.db.Query(ctx, listThreadsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThreadRow
	for rows.Next() {
		var row ThreadRow
		if err := rows.Scan(&row.ID, &row.Title, &row.PersonaID, &row.CreatedAt, &row.UpdatedAt, &row.MessageCount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const deleteThreadSQL = `DELETE FROM threads WHERE id = $1`

// DeleteThread deletes a thread; messages cascade at the schema level.
// Returns the number of deleted rows.
func (q *Queries) DeleteThread(ctx context.Context, id string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteThreadSQL, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const lockThreadSQL = `SELECT id FROM threads WHERE id = $1 FOR UPDATE`

// LockThread takes a row lock on the thread for the duration of the
// enclosing transaction, serializing concurrent appends.
func (q *Queries) LockThread(ctx context.Context, id string) (string, error) {
	var got string
	err := q.db.QueryRow(ctx, lockThreadSQL, id).Scan(&got)
	return got, err
}

const touchThreadSQL = `UPDATE threads SET updated_at = now() WHERE id = $1`

// TouchThread advances the thread's updated_at timestamp.
func (q *Queries) TouchThread(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, touchThreadSQL, id)
	return err
}

// InsertMessageParams are the inputs for InsertMessage.
type InsertMessageParams struct {
	ID       uuid.UUID
	ThreadID string
	Role     string
	Content  string
}

const insertMessageSQL = `
INSERT INTO messages (id, thread_id, role, content)
VALUES ($1, $2, $3, $4)`

// InsertMessage appends one message. Seq and created_at come from column
// defaults so insertion order is assigned by the database.
func (q *Queries) InsertMessage(ctx context.Context, arg InsertMessageParams) error {
	_, err := q.db.Exec(ctx, insertMessageSQL, arg.ID, arg.ThreadID, arg.Role, arg.Content)
	return err
}

const listMessagesSQL = `
SELECT id, thread_id, role, content, seq, created_at
FROM messages
WHERE thread_id = $1
ORDER BY created_at ASC, seq ASC`

// ListMessages returns a thread's messages in non-decreasing created_at
// order, with seq breaking ties in insertion order.
func (q *Queries) ListMessages(ctx context.Context, threadID string) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, listMessagesSQL, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(&row.ID, &row.ThreadID, &row.Role, &row.Content, &row.Seq, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const clearMessagesSQL = `DELETE FROM messages WHERE thread_id = $1`

// ClearMessages deletes all messages of a thread, keeping the thread row.
func (q *Queries) ClearMessages(ctx context.Context, threadID string) error {
	_, err := q.db.Exec(ctx, clearMessagesSQL, threadID)
	return err
}
