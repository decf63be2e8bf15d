// Package pipeline orchestrates a single conversational turn: load history,
// retrieve evidence, build the prompt, stream the model response, and persist
// both sides of the exchange.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"secondbrain/internal/conversation"
	"secondbrain/internal/generate"
	"secondbrain/internal/knowledge"
	"secondbrain/internal/persona"
	"secondbrain/internal/prompt"
)

var (
	// ErrEmptyQuery rejects a turn whose query is empty or whitespace.
	ErrEmptyQuery = errors.New("empty query")

	// ErrThreadBusy rejects a turn while another turn is in flight on the
	// same thread.
	ErrThreadBusy = errors.New("thread busy")
)

// Store is the conversation persistence the pipeline depends on.
type Store interface {
	Resolve(ctx context.Context, threadID string, create bool, seedTitle, personaID string) (*conversation.Thread, error)
	List(ctx context.Context, threadID string) ([]conversation.Message, error)
	Append(ctx context.Context, threadID, role, content string) (uuid.UUID, error)
}

// Retriever searches the knowledge base for evidence relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Evidence, error)
}

// Generator streams a model completion for an assembled prompt.
type Generator interface {
	Stream(ctx context.Context, promptText string, cb generate.StreamFunc) (string, error)
}

// Turn is one user request against a thread.
type Turn struct {
	// ThreadID selects the conversation; empty means start a new thread.
	ThreadID string

	// Query is the user's message.
	Query string

	// PersonaID overrides the thread's persona for this turn. Empty keeps
	// the thread's persona; unknown ids fall back to the default persona.
	PersonaID string

	// Sources restricts retrieval to the named source ids. Empty searches
	// the whole knowledge base.
	Sources []string
}

// Result is the completed turn.
type Result struct {
	ThreadID      string `json:"thread_id"`
	PersonaID     string `json:"persona_id"`
	Response      string `json:"response"`
	EvidenceCount int    `json:"evidence_count"`
}

// Option configures a Pipeline beyond its required collaborators.
type Option func(*Pipeline)

// WithTopK sets the top-N evidence cutoff applied to every retrieval.
// Non-positive values keep the retriever's default.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		p.topK = k
	}
}

// Pipeline wires the turn stages together. It is safe for concurrent use;
// turns on distinct threads proceed in parallel while a second turn on the
// same thread is rejected with ErrThreadBusy.
type Pipeline struct {
	store     Store
	retriever Retriever
	generator Generator
	registry  *persona.Registry
	logger    *slog.Logger
	topK      int

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates a Pipeline. All four collaborators are required.
func New(store Store, retriever Retriever, generator Generator, registry *persona.Registry, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if registry == nil {
		return nil, errors.New("persona registry is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:     store,
		retriever: retriever,
		generator: generator,
		registry:  registry,
		logger:    logger,
		active:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run executes one turn. Fragments stream to cb as the model produces them;
// cb may be nil. The user message is persisted before generation starts, the
// assistant message only after the stream completes, so a failed generation
// leaves the thread with a trailing user message and no reply.
//
// Retrieval failures do not fail the turn; the prompt is built with empty
// evidence instead.
func (p *Pipeline) Run(ctx context.Context, turn Turn, cb generate.StreamFunc) (*Result, error) {
	query := strings.TrimSpace(turn.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	threadID := turn.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	if !p.acquire(threadID) {
		return nil, fmt.Errorf("%w: %q", ErrThreadBusy, threadID)
	}
	defer p.release(threadID)

	// Only a registered persona id may be written into a new thread record;
	// an unknown override must not outlive the turn it came with.
	seedPersona := turn.PersonaID
	if !p.registry.Has(seedPersona) {
		seedPersona = ""
	}

	thread, err := p.store.Resolve(ctx, threadID, true, query, seedPersona)
	if err != nil {
		return nil, err
	}

	personaID := turn.PersonaID
	if personaID == "" {
		personaID = thread.PersonaID
	}
	pers := p.registry.Get(personaID)

	history, err := p.store.List(ctx, thread.ID)
	if err != nil {
		return nil, err
	}

	evidence := p.retrieve(ctx, history, query, turn.Sources)

	promptText, err := prompt.Build(pers, prompt.Assemble(evidence), history, query)
	if err != nil {
		return nil, err
	}

	if _, err := p.store.Append(ctx, thread.ID, conversation.RoleUser, query); err != nil {
		return nil, err
	}

	response, err := p.generator.Stream(ctx, promptText, cb)
	if err != nil {
		return nil, err
	}

	if _, err := p.store.Append(ctx, thread.ID, conversation.RoleAssistant, response); err != nil {
		return nil, err
	}

	p.logger.Info("turn complete",
		"thread_id", thread.ID,
		"persona", pers.ID,
		"evidence", len(evidence),
		"response_length", len(response),
	)

	return &Result{
		ThreadID:      thread.ID,
		PersonaID:     pers.ID,
		Response:      response,
		EvidenceCount: len(evidence),
	}, nil
}

// retrieve runs the knowledge search and absorbs its failure modes. The
// search query widens the user's message with recent conversation context.
func (p *Pipeline) retrieve(ctx context.Context, history []conversation.Message, query string, sources []string) []knowledge.Evidence {
	opts := []knowledge.SearchOption{}
	if p.topK > 0 {
		opts = append(opts, knowledge.WithTopK(p.topK))
	}
	if len(sources) > 0 {
		opts = append(opts, knowledge.WithSources(sources...))
	}

	evidence, err := p.retriever.Retrieve(ctx, searchQuery(history, query), opts...)
	if err != nil {
		p.logger.Warn("retrieval failed, continuing without evidence", "error", err)
		return nil
	}
	return evidence
}

// searchQuery builds the retrieval query from the two most recent history
// messages plus the new user message, space-joined. With no history the new
// message stands alone.
func searchQuery(history []conversation.Message, query string) string {
	if len(history) == 0 {
		return query
	}
	parts := make([]string, 0, 3)
	start := len(history) - 2
	if start < 0 {
		start = 0
	}
	for _, msg := range history[start:] {
		parts = append(parts, msg.Content)
	}
	parts = append(parts, query)
	return strings.Join(parts, " ")
}

// acquire marks the thread as having a turn in flight. It reports false when
// the thread is already busy.
func (p *Pipeline) acquire(threadID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[threadID]; busy {
		return false
	}
	p.active[threadID] = struct{}{}
	return true
}

func (p *Pipeline) release(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, threadID)
}
