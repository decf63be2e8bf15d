package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"secondbrain/internal/conversation"
)

// ThreadStore is the conversation persistence the thread endpoints depend
// on. Implemented by *conversation.Store.
type ThreadStore interface {
	CreateThread(ctx context.Context, id, title, personaID string) (*conversation.Thread, error)
	Thread(ctx context.Context, threadID string) (*conversation.Thread, error)
	ListThreads(ctx context.Context) ([]*conversation.Thread, error)
	DeleteThread(ctx context.Context, threadID string) error
	List(ctx context.Context, threadID string) ([]conversation.Message, error)
	Clear(ctx context.Context, threadID string) error
}

// threadHandler serves thread CRUD endpoints.
type threadHandler struct {
	store  ThreadStore
	logger *slog.Logger
}

type createThreadRequest struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PersonaID string `json:"persona_id"`
}

// listThreads handles GET /api/v1/threads.
func (h *threadHandler) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := h.store.ListThreads(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "persistence_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// createThread handles POST /api/v1/threads.
func (h *threadHandler) createThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body", h.logger)
		return
	}

	thread, err := h.store.CreateThread(r.Context(), req.ID, req.Title, req.PersonaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "persistence_failed", err.Error(), h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

// getThread handles GET /api/v1/threads/{id}.
func (h *threadHandler) getThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.store.Thread(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

// getMessages handles GET /api/v1/threads/{id}/messages.
func (h *threadHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	// Distinguish a missing thread from an empty one.
	if _, err := h.store.Thread(r.Context(), threadID); err != nil {
		h.writeStoreError(w, err)
		return
	}

	messages, err := h.store.List(r.Context(), threadID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// deleteThread handles DELETE /api/v1/threads/{id}.
func (h *threadHandler) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteThread(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// clearThread handles DELETE /api/v1/threads/{id}/messages. The thread
// survives with an empty history.
func (h *threadHandler) clearThread(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context(), r.PathValue("id")); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *threadHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, conversation.ErrThreadNotFound) {
		writeError(w, http.StatusNotFound, "thread_not_found", err.Error(), h.logger)
		return
	}
	writeError(w, http.StatusInternalServerError, "persistence_failed", err.Error(), h.logger)
}
