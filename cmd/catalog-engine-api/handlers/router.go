package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/catalogmind/catalog-engine/internal/config"
	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/pkg/engine"
)

// NewRouter assembles the full API router over a wired engine.
func NewRouter(logger *observability.Logger, eng *engine.Engine, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	// No global timeout: catalog ingestion legitimately runs for minutes.

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "catalog-engine",
		})
	})

	catalogHandler := NewCatalogHandler(logger, eng, cfg.Server.MaxUploadBytes)
	queryHandler := NewQueryHandler(logger, eng)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/catalogs", catalogHandler.Upload)
		r.Get("/catalogs", catalogHandler.List)
		r.Delete("/catalogs/{name}", catalogHandler.Remove)
		r.Post("/ask", queryHandler.Ask)
	})

	return r
}
