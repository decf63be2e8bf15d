package api

import (
	"net/http"

	"secondbrain/internal/persona"
)

// personaHandler serves the persona listing endpoint.
type personaHandler struct {
	registry *persona.Registry
}

// listPersonas handles GET /api/v1/personas. Templates are never exposed.
func (h *personaHandler) listPersonas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"personas": h.registry.List(),
		"default":  persona.DefaultID,
	})
}
