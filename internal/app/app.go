// Package app provides application initialization and dependency wiring.
//
// App is the container that holds every long-lived component: the database
// pool, Genkit instance, persona registry, stores, and the turn pipeline.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"secondbrain/internal/config"
	"secondbrain/internal/conversation"
	"secondbrain/internal/generate"
	"secondbrain/internal/knowledge"
	"secondbrain/internal/log"
	"secondbrain/internal/persona"
	"secondbrain/internal/pipeline"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Personas      *persona.Registry
	Conversations *conversation.Store
	Knowledge     *knowledge.Store
	Generator     *generate.Generator
	Pipeline      *pipeline.Pipeline
}

// Close releases all resources.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		slog.Info("database pool closed")
	}
	return nil
}
