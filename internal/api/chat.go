package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"secondbrain/internal/conversation"
	"secondbrain/internal/generate"
	"secondbrain/internal/pipeline"
)

// TurnRunner executes one conversational turn. Implemented by
// *pipeline.Pipeline; defined here so tests can substitute a fake.
type TurnRunner interface {
	Run(ctx context.Context, turn pipeline.Turn, cb generate.StreamFunc) (*pipeline.Result, error)
}

// chatHandler serves the chat endpoints.
//
//   - POST /api/v1/chat        - synchronous chat (JSON request/response)
//   - POST /api/v1/chat/stream - streaming chat (Server-Sent Events)
//
// Both endpoints run the same turn pipeline; the stream variant forwards
// model fragments as they arrive.
type chatHandler struct {
	runner TurnRunner
	logger *slog.Logger
}

// chatRequest is the JSON body for both chat endpoints.
type chatRequest struct {
	ThreadID  string   `json:"thread_id"`
	Query     string   `json:"query"`
	PersonaID string   `json:"persona_id"`
	Sources   []string `json:"sources"`
}

// SSE event types for chat streaming.
const (
	EventChunk = "chunk" // partial response text
	EventDone  = "done"  // stream completed successfully
	EventError = "error" // error occurred during streaming
)

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const maxChatBodyBytes = 1024 * 1024

// send handles synchronous chat requests.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	result, err := h.runner.Run(r.Context(), pipeline.Turn{
		ThreadID:  req.ThreadID,
		Query:     req.Query,
		PersonaID: req.PersonaID,
		Sources:   req.Sources,
	}, nil)
	if err != nil {
		status, code := mapTurnError(err)
		writeError(w, status, code, err.Error(), h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// stream handles SSE streaming chat requests. Fragments are forwarded as
// chunk events; the final done event carries the complete result.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    "invalid_request",
			Message: "invalid request body",
		})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "thread_id", req.ThreadID)

	result, err := h.runner.Run(ctx, pipeline.Turn{
		ThreadID:  req.ThreadID,
		Query:     req.Query,
		PersonaID: req.PersonaID,
		Sources:   req.Sources,
	}, func(_ context.Context, chunk string) error {
		return writeEvent(w, flusher, EventChunk, ChunkPayload{Text: chunk})
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "thread_id", req.ThreadID)
			return
		}
		_, code := mapTurnError(err)
		_ = writeEvent(w, flusher, EventError, ErrorPayload{
			Code:    code,
			Message: err.Error(),
		})
		return
	}

	_ = writeEvent(w, flusher, EventDone, result)
	h.logger.Debug("SSE stream completed", "thread_id", result.ThreadID)
}

// mapTurnError maps pipeline errors to an HTTP status and machine-readable
// error code.
func mapTurnError(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyQuery):
		return http.StatusBadRequest, "empty_query"
	case errors.Is(err, pipeline.ErrThreadBusy):
		return http.StatusConflict, "thread_busy"
	case errors.Is(err, conversation.ErrThreadNotFound):
		return http.StatusNotFound, "thread_not_found"
	case errors.Is(err, generate.ErrGenerationFailed):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, conversation.ErrPersistence):
		return http.StatusInternalServerError, "persistence_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
