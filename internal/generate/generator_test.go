package generate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"secondbrain/internal/testutil"
)

func newTestGenerator(t *testing.T, g *genkit.Genkit, modelName string) *Generator {
	t.Helper()
	gen, err := New(Config{
		Genkit:    g,
		ModelName: modelName,
		Logger:    testutil.DiscardLogger(),
		Retry: RetryConfig{
			MaxRetries:      3,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		},
		RateLimiter: rate.NewLimiter(rate.Inf, 1),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gen
}

func TestNewRequiresGenkit(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for nil Genkit")
	}
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := testutil.NewMockLLM("fallback answer")
	mock.AddResponse("capital of france", "The capital of France is Paris.")
	mock.RegisterModel(g)

	gen := newTestGenerator(t, g, "mock/test-model")

	var chunks []string
	response, err := gen.Stream(ctx, "What is the capital of France?", func(_ context.Context, chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}

	if response != "The capital of France is Paris." {
		t.Errorf("unexpected response: %q", response)
	}
	if len(chunks) < 2 {
		t.Errorf("expected multiple chunks, got %d", len(chunks))
	}
	var joined string
	for _, c := range chunks {
		joined += c
	}
	if joined != response {
		t.Errorf("streamed chunks %q do not reassemble response %q", joined, response)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 model call, got %d", len(calls))
	}
	if calls[0].Prompt != "What is the capital of France?" {
		t.Errorf("prompt not forwarded: %q", calls[0].Prompt)
	}
}

func TestStreamNilCallback(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := testutil.NewMockLLM("quiet answer")
	mock.RegisterModel(g)

	gen := newTestGenerator(t, g, "mock/test-model")

	response, err := gen.Stream(ctx, "anything", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if response != "quiet answer" {
		t.Errorf("unexpected response: %q", response)
	}
}

func TestStreamCallbackError(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	mock := testutil.NewMockLLM("some long answer here")
	mock.RegisterModel(g)

	gen := newTestGenerator(t, g, "mock/test-model")

	sentinel := errors.New("client went away")
	_, err := gen.Stream(ctx, "anything", func(context.Context, string) error {
		return sentinel
	})
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestStreamRetriesTransientFailure(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	attempts := 0
	genkit.DefineModel(g, "mock/flaky-model", &ai.ModelOptions{
		Label: "Flaky Model",
	}, func(_ context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("503 service unavailable")
		}
		return &ai.ModelResponse{
			Request: req,
			Message: &ai.Message{
				Role:    ai.RoleModel,
				Content: []*ai.Part{ai.NewTextPart("recovered")},
			},
		}, nil
	})

	gen := newTestGenerator(t, g, "mock/flaky-model")

	response, err := gen.Stream(ctx, "anything", nil)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if response != "recovered" {
		t.Errorf("unexpected response: %q", response)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestStreamDoesNotRetryPermanentFailure(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	attempts := 0
	genkit.DefineModel(g, "mock/broken-model", &ai.ModelOptions{
		Label: "Broken Model",
	}, func(context.Context, *ai.ModelRequest, ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		attempts++
		return nil, errors.New("invalid api key")
	})

	gen := newTestGenerator(t, g, "mock/broken-model")

	_, err := gen.Stream(ctx, "anything", nil)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestStreamNoRetryAfterFirstChunk(t *testing.T) {
	ctx := context.Background()
	g := genkit.Init(ctx)

	attempts := 0
	genkit.DefineModel(g, "mock/midstream-model", &ai.ModelOptions{
		Label: "Midstream Failure Model",
	}, func(ctx context.Context, _ *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		attempts++
		if cb != nil {
			if err := cb(ctx, &ai.ModelResponseChunk{
				Content: []*ai.Part{ai.NewTextPart("partial ")},
			}); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("connection reset midstream, attempt %d", attempts)
	})

	gen := newTestGenerator(t, g, "mock/midstream-model")

	_, err := gen.Stream(ctx, "anything", func(context.Context, string) error { return nil })
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected no retry after emitted chunk, got %d attempts", attempts)
	}
}
