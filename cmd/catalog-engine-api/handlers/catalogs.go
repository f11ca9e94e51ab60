package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/pkg/engine"
)

// CatalogHandler handles catalog upload, listing, and removal.
type CatalogHandler struct {
	logger         *observability.Logger
	engine         *engine.Engine
	maxUploadBytes int64
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(logger *observability.Logger, eng *engine.Engine, maxUploadBytes int64) *CatalogHandler {
	return &CatalogHandler{logger: logger, engine: eng, maxUploadBytes: maxUploadBytes}
}

// CatalogDTO is the API view of a stored catalog record.
type CatalogDTO struct {
	Filename         string   `json:"filename"`
	Summary          string   `json:"summary"`
	Categories       []string `json:"categories"`
	Keywords         []string `json:"keywords"`
	ProductTypes     []string `json:"product_types"`
	BrandNames       []string `json:"brand_names,omitempty"`
	ProductNames     []string `json:"product_names,omitempty"`
	MainBusinessType string   `json:"main_business_type"`
	PageCount        int      `json:"page_count"`
	ProcessedAt      string   `json:"processed_at,omitempty"`
}

// Upload handles POST /v1/catalogs. Accepts multipart form data with a
// "file" part. Extraction runs synchronously; large catalogs take minutes.
func (h *CatalogHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "missing file upload", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "failed to read upload", err)
		return
	}

	filename := filepath.Base(header.Filename)
	result, err := h.engine.AddCatalog(r.Context(), filename, data)
	if err != nil {
		writeError(w, h.logger, statusForError(err), "catalog ingestion failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /v1/catalogs.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	catalogs := h.engine.ListCatalogs()

	dtos := make([]CatalogDTO, 0, len(catalogs))
	for _, m := range catalogs {
		dto := CatalogDTO{
			Filename:         m.Filename,
			Summary:          m.Summary,
			Categories:       m.Categories,
			Keywords:         m.Keywords,
			ProductTypes:     m.ProductTypes,
			BrandNames:       m.BrandNames,
			ProductNames:     m.ProductNames,
			MainBusinessType: m.MainBusinessType,
			PageCount:        m.PageCount,
		}
		if m.ProcessingDate != nil {
			dto.ProcessedAt = m.ProcessingDate.Format(time.RFC3339)
		}
		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"catalogs": dtos,
		"count":    len(dtos),
	})
}

// Remove handles DELETE /v1/catalogs/{name}.
func (h *CatalogHandler) Remove(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.engine.RemoveCatalog(name) {
		writeError(w, h.logger, http.StatusNotFound, "catalog not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
