package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/internal/testutil"
)

// memQuerier is an in-memory Querier for unit tests without a database.
type memQuerier struct {
	threads  map[string]ThreadRow
	messages map[string][]MessageRow
	nextSeq  int64

	createErr error
	insertErr error
	listErr   error
}

func newMemQuerier() *memQuerier {
	return &memQuerier{
		threads:  make(map[string]ThreadRow),
		messages: make(map[string][]MessageRow),
	}
}

func (m *memQuerier) CreateThread(_ context.Context, arg CreateThreadParams) (ThreadRow, error) {
	if m.createErr != nil {
		return ThreadRow{}, m.createErr
	}
	now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
	row := ThreadRow{
		ID:        arg.ID,
		Title:     arg.Title,
		PersonaID: arg.PersonaID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.threads[arg.ID] = row
	return row, nil
}

func (m *memQuerier) GetThread(_ context.Context, id string) (ThreadRow, error) {
	row, ok := m.threads[id]
	if !ok {
		return ThreadRow{}, pgx.ErrNoRows
	}
	row.MessageCount = int64(len(m.messages[id]))
	return row, nil
}

func (m *memQuerier) ListThreads(_ context.Context) ([]ThreadRow, error) {
	out := make([]ThreadRow, 0, len(m.threads))
	for id, row := range m.threads {
		row.MessageCount = int64(len(m.messages[id]))
		out = append(out, row)
	}
	return out, nil
}

func (m *memQuerier) DeleteThread(_ context.Context, id string) (int64, error) {
	if _, ok := m.threads[id]; !ok {
		return 0, nil
	}
	delete(m.threads, id)
	delete(m.messages, id)
	return 1, nil
}

func (m *memQuerier) TouchThread(_ context.Context, id string) error {
	row, ok := m.threads[id]
	if ok {
		row.UpdatedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		m.threads[id] = row
	}
	return nil
}

func (m *memQuerier) InsertMessage(_ context.Context, arg InsertMessageParams) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextSeq++
	m.messages[arg.ThreadID] = append(m.messages[arg.ThreadID], MessageRow{
		ID:        arg.ID,
		ThreadID:  arg.ThreadID,
		Role:      arg.Role,
		Content:   arg.Content,
		Seq:       m.nextSeq,
		CreatedAt: pgtype.Timestamptz{Time: time.Now(), Valid: true},
	})
	return nil
}

func (m *memQuerier) ListMessages(_ context.Context, threadID string) ([]MessageRow, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.messages[threadID], nil
}

func (m *memQuerier) ClearMessages(_ context.Context, threadID string) error {
	delete(m.messages, threadID)
	return nil
}

func newTestStore(q Querier) *Store {
	return New(q, nil, testutil.DiscardLogger())
}

func TestCreateThreadDefaults(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	thread, err := store.CreateThread(context.Background(), "", "", "")
	require.NoError(t, err)

	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, thread.ID, thread.Title)
	assert.Equal(t, "assistant", thread.PersonaID)
}

func TestCreateThreadTruncatesTitle(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	long := strings.Repeat("x", TitleMaxLength+50)
	thread, err := store.CreateThread(context.Background(), "t1", long, "assistant")
	require.NoError(t, err)

	assert.Len(t, []rune(thread.Title), TitleMaxLength)
	assert.True(t, strings.HasSuffix(thread.Title, "..."))
}

func TestThreadNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	_, err := store.Thread(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestResolveCreatesOnFirstUse(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())
	ctx := context.Background()

	thread, err := store.Resolve(ctx, "t1", true, "What is a monad?", "philosopher")
	require.NoError(t, err)
	assert.Equal(t, "t1", thread.ID)
	assert.Equal(t, "What is a monad?", thread.Title)
	assert.Equal(t, "philosopher", thread.PersonaID)

	// Second resolve returns the existing thread unchanged.
	again, err := store.Resolve(ctx, "t1", true, "different title", "assistant")
	require.NoError(t, err)
	assert.Equal(t, "What is a monad?", again.Title)
	assert.Equal(t, "philosopher", again.PersonaID)
}

func TestResolveNoCreate(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	_, err := store.Resolve(context.Background(), "missing", false, "", "")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestAppendAndList(t *testing.T) {
	t.Parallel()

	q := newMemQuerier()
	store := newTestStore(q)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "t1", "test", "assistant")
	require.NoError(t, err)

	id1, err := store.Append(ctx, "t1", RoleUser, "hello")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id1)

	id2, err := store.Append(ctx, "t1", RoleAssistant, "hi there")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	messages, err := store.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.Less(t, messages[0].Seq, messages[1].Seq)
}

func TestAppendRejectsInvalidRole(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	_, err := store.Append(context.Background(), "t1", "system", "nope")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAppendInsertFailure(t *testing.T) {
	t.Parallel()

	q := newMemQuerier()
	q.insertErr = errors.New("disk full")
	store := newTestStore(q)

	_, err := store.Append(context.Background(), "t1", RoleUser, "hello")
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestListEmptyThread(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	messages, err := store.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NotNil(t, messages)
}

func TestClearKeepsThread(t *testing.T) {
	t.Parallel()

	q := newMemQuerier()
	store := newTestStore(q)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "t1", "test", "assistant")
	require.NoError(t, err)
	_, err = store.Append(ctx, "t1", RoleUser, "hello")
	require.NoError(t, err)

	require.NoError(t, store.Clear(ctx, "t1"))

	messages, err := store.List(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, messages)

	thread, err := store.Thread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", thread.ID)
}

func TestClearMissingThread(t *testing.T) {
	t.Parallel()

	store := newTestStore(newMemQuerier())

	err := store.Clear(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestDeleteThread(t *testing.T) {
	t.Parallel()

	q := newMemQuerier()
	store := newTestStore(q)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "t1", "test", "assistant")
	require.NoError(t, err)

	require.NoError(t, store.DeleteThread(ctx, "t1"))

	_, err = store.Thread(ctx, "t1")
	assert.ErrorIs(t, err, ErrThreadNotFound)

	err = store.DeleteThread(ctx, "t1")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestTruncateTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "hello", "hello"},
		{"exact", strings.Repeat("a", TitleMaxLength), strings.Repeat("a", TitleMaxLength)},
		{"long", strings.Repeat("a", TitleMaxLength+1), strings.Repeat("a", TitleMaxLength-3) + "..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TruncateTitle(tt.input))
		})
	}
}

func TestValidRole(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleAssistant))
	assert.False(t, ValidRole("system"))
	assert.False(t, ValidRole(""))
}
