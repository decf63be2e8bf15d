// Package generate wraps the external token-streaming completion capability
// behind a small gateway: one prompt in, a cancellable stream of text
// fragments out, plus the final aggregated text.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
)

// ErrGenerationFailed indicates the model failed to produce a response.
// The turn is fatal: no assistant message may be persisted for it.
var ErrGenerationFailed = errors.New("generation failed")

// StreamFunc receives one text fragment as it arrives from the model.
// Returning an error aborts the stream.
type StreamFunc func(ctx context.Context, chunk string) error

// Config contains the parameters for a Generator.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash" or "ollama/llama3.3"
	Logger    *slog.Logger

	// Retry controls backoff for transient model errors; zero value uses
	// defaults.
	Retry RetryConfig

	// RateLimiter throttles outbound model calls. Nil installs a default
	// limiter (10 req/s sustained, burst 30).
	RateLimiter *rate.Limiter
}

// Generator is the genkit-backed generation gateway.
//
// Generator is stateless per call and safe for concurrent use.
type Generator struct {
	g           *genkit.Genkit
	modelName   string
	retry       RetryConfig
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// New creates a Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	return &Generator{
		g:           cfg.Genkit,
		modelName:   cfg.ModelName,
		retry:       retryCfg,
		rateLimiter: rl,
		logger:      logger,
	}, nil
}

// Stream opens exactly one token stream for the prompt and forwards each
// fragment to cb as it arrives; cb may be nil for non-streaming use. The
// final aggregated text is returned after the stream completes.
//
// The stream is not restartable: transient errors are retried only while no
// fragment has been forwarded yet. Once streaming has begun, any failure is
// terminal. Context cancellation closes the stream and returns the context
// error wrapped in ErrGenerationFailed.
func (g *Generator) Stream(ctx context.Context, promptText string, cb StreamFunc) (string, error) {
	var emitted bool

	opts := []ai.GenerateOption{
		ai.WithPrompt(promptText),
		ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			text := chunk.Text()
			if text == "" {
				return nil
			}
			emitted = true
			if cb == nil {
				return nil
			}
			return cb(ctx, text)
		}),
	}
	if g.modelName != "" {
		opts = append(opts, ai.WithModelName(g.modelName))
	}

	resp, err := g.generateWithRetry(ctx, opts, &emitted)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	text := resp.Text()
	g.logger.Debug("generation complete", "prompt_length", len(promptText), "response_length", len(text))
	return text, nil
}

// generateWithRetry executes the model call with exponential backoff for
// transient errors. Retrying is abandoned as soon as any fragment has been
// forwarded to the caller, since replaying a partial stream would duplicate
// output.
func (g *Generator) generateWithRetry(ctx context.Context, opts []ai.GenerateOption, emitted *bool) (*ai.ModelResponse, error) {
	var lastErr error
	delay := g.retry.InitialInterval

	for attempt := 0; attempt <= g.retry.MaxRetries; attempt++ {
		if err := g.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		resp, err := genkit.Generate(ctx, g.g, opts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if *emitted || !retryableError(err) {
			return nil, err
		}
		if attempt == g.retry.MaxRetries {
			break
		}

		g.logger.Debug("retrying generation", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, g.retry.MaxInterval)
		}
	}

	return nil, fmt.Errorf("after %d retries: %w", g.retry.MaxRetries, lastErr)
}
