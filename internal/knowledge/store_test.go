package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secondbrain/internal/testutil"
)

// mockEmbedder implements ai.Embedder without a registered plugin.
type mockEmbedder struct {
	delay       time.Duration
	embedErr    error
	returnEmpty bool
	embeddings  []float32
	callCount   int
	lastInput   string
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	if len(req.Input) > 0 && len(req.Input[0].Content) > 0 {
		m.lastInput = req.Input[0].Content[0].Text
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.returnEmpty {
		return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: []float32{}}}}, nil
	}

	embedding := m.embeddings
	if embedding == nil {
		embedding = []float32{0.1, 0.2, 0.3}
	}
	return &ai.EmbedResponse{Embeddings: []*ai.Embedding{{Embedding: embedding}}}, nil
}

// mockQuerier implements Querier without a database.
type mockQuerier struct {
	upsertErr error
	searchErr error
	countErr  error
	deleteErr error

	searchResults []SearchDocumentsRow
	countResult   int64
	deletedRows   int64

	upserted   []UpsertDocumentParams
	lastSearch SearchDocumentsParams
}

func (m *mockQuerier) UpsertDocument(_ context.Context, arg UpsertDocumentParams) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, arg)
	return nil
}

func (m *mockQuerier) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]SearchDocumentsRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	m.lastSearch = arg
	return m.searchResults, nil
}

func (m *mockQuerier) CountDocuments(_ context.Context) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.countResult, nil
}

func (m *mockQuerier) DeleteBySource(_ context.Context, _ string) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deletedRows, nil
}

func mustMetadataJSON(t *testing.T, meta Metadata) []byte {
	t.Helper()
	data, err := json.Marshal(meta)
	require.NoError(t, err)
	return data
}

func TestAdd(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	embedder := &mockEmbedder{}
	store := NewStore(querier, embedder, testutil.DiscardLogger())

	err := store.Add(context.Background(), Document{
		ID:      "doc-1",
		Content: "the capital of France is Paris",
		Metadata: Metadata{
			SourceID:   "geo",
			SourceName: "Geography Notes",
			ChunkType:  "text",
		},
	})
	require.NoError(t, err)

	require.Len(t, querier.upserted, 1)
	assert.Equal(t, "doc-1", querier.upserted[0].ID)
	assert.Equal(t, "the capital of France is Paris", embedder.lastInput)

	var meta Metadata
	require.NoError(t, json.Unmarshal(querier.upserted[0].Metadata, &meta))
	assert.Equal(t, "geo", meta.SourceID)
}

func TestAddEmbedFailure(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	embedder := &mockEmbedder{embedErr: errors.New("embedder down")}
	store := NewStore(querier, embedder, testutil.DiscardLogger())

	err := store.Add(context.Background(), Document{ID: "doc-1", Content: "text"})
	require.Error(t, err)
	assert.Empty(t, querier.upserted)
}

func TestAddEmptyEmbedding(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	embedder := &mockEmbedder{returnEmpty: true}
	store := NewStore(querier, embedder, testutil.DiscardLogger())

	err := store.Add(context.Background(), Document{ID: "doc-1", Content: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty embedding")
}

func TestRetrieve(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{
		searchResults: []SearchDocumentsRow{
			{ID: "a", Content: "most relevant", Metadata: mustMetadataJSON(t, Metadata{SourceID: "s1"}), Similarity: 0.95},
			{ID: "b", Content: "less relevant", Metadata: mustMetadataJSON(t, Metadata{SourceID: "s2"}), Similarity: 0.80},
		},
	}
	store := NewStore(querier, &mockEmbedder{}, testutil.DiscardLogger())

	evidence, err := store.Retrieve(context.Background(), "query")
	require.NoError(t, err)

	require.Len(t, evidence, 2)
	assert.Equal(t, "most relevant", evidence[0].Content)
	assert.Equal(t, "s1", evidence[0].Metadata.SourceID)
	assert.Equal(t, "less relevant", evidence[1].Content)
	assert.Equal(t, int32(DefaultTopK), querier.lastSearch.ResultLimit)
	assert.Empty(t, querier.lastSearch.SourceIDs)
}

func TestRetrieveWithOptions(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{}
	store := NewStore(querier, &mockEmbedder{}, testutil.DiscardLogger())

	_, err := store.Retrieve(context.Background(), "query",
		WithTopK(5),
		WithSources("s1", "s2"))
	require.NoError(t, err)

	assert.Equal(t, int32(5), querier.lastSearch.ResultLimit)
	assert.Equal(t, []string{"s1", "s2"}, querier.lastSearch.SourceIDs)
}

func TestRetrieveTopKOutOfRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		k    int
		want int32
	}{
		{"zero falls back to default", 0, DefaultTopK},
		{"negative falls back to default", -1, DefaultTopK},
		{"above max falls back to default", 11, DefaultTopK},
		{"max accepted", 10, 10},
		{"one accepted", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			querier := &mockQuerier{}
			store := NewStore(querier, &mockEmbedder{}, testutil.DiscardLogger())

			_, err := store.Retrieve(context.Background(), "query", WithTopK(tt.k))
			require.NoError(t, err)
			assert.Equal(t, tt.want, querier.lastSearch.ResultLimit)
		})
	}
}

func TestRetrieveEmptyResult(t *testing.T) {
	t.Parallel()

	store := NewStore(&mockQuerier{}, &mockEmbedder{}, testutil.DiscardLogger())

	evidence, err := store.Retrieve(context.Background(), "nothing matches")
	require.NoError(t, err)
	assert.Empty(t, evidence)
	assert.NotNil(t, evidence)
}

func TestRetrieveEmbedTimeout(t *testing.T) {
	t.Parallel()

	embedder := &mockEmbedder{delay: 200 * time.Millisecond}
	store := NewStore(&mockQuerier{}, embedder, testutil.DiscardLogger())

	_, err := store.Retrieve(context.Background(), "query", WithTimeout(10*time.Millisecond))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestRetrieveSearchFailure(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{searchErr: errors.New("connection refused")}
	store := NewStore(querier, &mockEmbedder{}, testutil.DiscardLogger())

	_, err := store.Retrieve(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector search")
}

func TestRetrieveMalformedMetadata(t *testing.T) {
	t.Parallel()

	querier := &mockQuerier{
		searchResults: []SearchDocumentsRow{
			{ID: "a", Content: "still usable", Metadata: []byte("{not json"), Similarity: 0.9},
		},
	}
	store := NewStore(querier, &mockEmbedder{}, testutil.DiscardLogger())

	evidence, err := store.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, evidence, 1)
	assert.Equal(t, "still usable", evidence[0].Content)
	assert.Empty(t, evidence[0].Metadata.SourceID)
}

func TestCount(t *testing.T) {
	t.Parallel()

	store := NewStore(&mockQuerier{countResult: 42}, &mockEmbedder{}, testutil.DiscardLogger())

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestDeleteSource(t *testing.T) {
	t.Parallel()

	store := NewStore(&mockQuerier{deletedRows: 3}, &mockEmbedder{}, testutil.DiscardLogger())

	n, err := store.DeleteSource(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
