package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier defines the database operations the Store depends on. The
// interface is defined here, by the consumer, so tests can substitute a mock
// without a database.
type Querier interface {
	CreateThread(ctx context.Context, arg CreateThreadParams) (ThreadRow, error)
	GetThread(ctx context.Context, id string) (ThreadRow, error)
	ListThreads(ctx context.Context) ([]ThreadRow, error)
	DeleteThread(ctx context.Context, id string) (int64, error)
	TouchThread(ctx context.Context, id string) error
	InsertMessage(ctx context.Context, arg InsertMessageParams) error
	ListMessages(ctx context.Context, threadID string) ([]MessageRow, error)
	ClearMessages(ctx context.Context, threadID string) error
}

// Store manages thread and message persistence.
//
// Store is safe for concurrent use by multiple goroutines. Appends within a
// transaction take a row lock on the owning thread, so two concurrent
// appends to the same thread cannot interleave.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // nil in unit tests; disables transactional appends
	logger  *slog.Logger
}

// New creates a new Store.
//
// querier is typically NewQueries(pool); pool may be nil in tests with a
// mock querier, in which case appends run without a transaction.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, pool: pool, logger: logger}
}

// CreateThread creates a new thread. An empty id is replaced with a random
// UUID string; an empty title falls back to the id.
func (s *Store) CreateThread(ctx context.Context, id, title, personaID string) (*Thread, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if title == "" {
		title = id
	}
	if personaID == "" {
		personaID = "assistant"
	}

	row, err := s.querier.CreateThread(ctx, CreateThreadParams{
		ID:        id,
		Title:     TruncateTitle(title),
		PersonaID: personaID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create thread %q: %w", ErrPersistence, id, err)
	}

	thread := rowToThread(row)
	s.logger.Debug("created thread", "id", thread.ID, "persona", thread.PersonaID)
	return thread, nil
}

// Thread fetches a single thread by id.
func (s *Store) Thread(ctx context.Context, threadID string) (*Thread, error) {
	row, err := s.querier.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrThreadNotFound, threadID)
		}
		return nil, fmt.Errorf("%w: get thread %q: %w", ErrPersistence, threadID, err)
	}
	return rowToThread(row), nil
}

// Resolve maps a thread id to its Thread, creating the record on first use
// when create is true. seedTitle seeds the title of an implicitly created
// thread (usually the first user message).
func (s *Store) Resolve(ctx context.Context, threadID string, create bool, seedTitle, personaID string) (*Thread, error) {
	thread, err := s.Thread(ctx, threadID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, ErrThreadNotFound) || !create {
		return nil, err
	}
	return s.CreateThread(ctx, threadID, seedTitle, personaID)
}

// Append durably records one message and advances the owning thread's
// updated_at, atomically. The returned id identifies the stored message.
func (s *Store) Append(ctx context.Context, threadID, role, content string) (uuid.UUID, error) {
	if !ValidRole(role) {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	id := uuid.New()

	if s.pool == nil {
		if err := s.appendWith(ctx, s.querier, id, threadID, role, content); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("append rollback", "error", err)
		}
	}()

	txq := NewQueries(tx)

	// Row lock on the thread keeps concurrent appends ordered.
	if _, err := txq.LockThread(ctx, threadID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %q", ErrThreadNotFound, threadID)
		}
		return uuid.Nil, fmt.Errorf("%w: lock thread %q: %w", ErrPersistence, threadID, err)
	}

	if err := s.appendWith(ctx, txq, id, threadID, role, content); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("%w: commit: %w", ErrPersistence, err)
	}

	s.logger.Debug("appended message", "thread_id", threadID, "role", role, "message_id", id)
	return id, nil
}

// appendWith runs the insert-and-touch pair against the given querier,
// which may be transactional.
func (s *Store) appendWith(ctx context.Context, q Querier, id uuid.UUID, threadID, role, content string) error {
	if err := q.InsertMessage(ctx, InsertMessageParams{
		ID:       id,
		ThreadID: threadID,
		Role:     role,
		Content:  content,
	}); err != nil {
		return fmt.Errorf("%w: insert message: %w", ErrPersistence, err)
	}
	if err := q.TouchThread(ctx, threadID); err != nil {
		return fmt.Errorf("%w: touch thread %q: %w", ErrPersistence, threadID, err)
	}
	return nil
}

// List returns the thread's messages in non-decreasing created_at order,
// ties broken by insertion order. A thread with no messages yields an empty
// slice; List never returns a partially written message.
func (s *Store) List(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.querier.ListMessages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages for %q: %w", ErrPersistence, threadID, err)
	}

	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, rowToMessage(row))
	}
	return messages, nil
}

// Clear removes all messages from a thread, keeping the thread itself.
func (s *Store) Clear(ctx context.Context, threadID string) error {
	if _, err := s.Thread(ctx, threadID); err != nil {
		return err
	}
	if err := s.querier.ClearMessages(ctx, threadID); err != nil {
		return fmt.Errorf("%w: clear thread %q: %w", ErrPersistence, threadID, err)
	}
	s.logger.Debug("cleared thread", "thread_id", threadID)
	return nil
}

// ListThreads returns all threads ordered by updated_at descending.
func (s *Store) ListThreads(ctx context.Context) ([]*Thread, error) {
	rows, err := s.querier.ListThreads(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list threads: %w", ErrPersistence, err)
	}

	threads := make([]*Thread, 0, len(rows))
	for _, row := range rows {
		threads = append(threads, rowToThread(row))
	}
	return threads, nil
}

// DeleteThread deletes a thread and, via the schema's ON DELETE CASCADE, all
// of its messages.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	n, err := s.querier.DeleteThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("%w: delete thread %q: %w", ErrPersistence, threadID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrThreadNotFound, threadID)
	}
	s.logger.Debug("deleted thread", "thread_id", threadID)
	return nil
}

func rowToThread(row ThreadRow) *Thread {
	return &Thread{
		ID:           row.ID,
		Title:        row.Title,
		PersonaID:    row.PersonaID,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		MessageCount: int(row.MessageCount),
	}
}

func rowToMessage(row MessageRow) Message {
	return Message{
		ID:        row.ID,
		ThreadID:  row.ThreadID,
		Role:      row.Role,
		Content:   row.Content,
		Seq:       row.Seq,
		CreatedAt: row.CreatedAt.Time,
	}
}
