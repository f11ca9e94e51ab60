package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmind/catalog-engine/internal/config"
	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/pkg/engine"
)

type stubModel struct{}

func (stubModel) Generate(_ context.Context, prompt string, images []domain.PageImage) (string, error) {
	switch {
	case strings.Contains(prompt, "Return ONLY a JSON object"):
		return `{"summary": "Tool catalog", "categories": ["tools"], "keywords": ["drill"], "product_types": ["power tools"], "main_business_type": "hardware"}`, nil
	case strings.Contains(prompt, "Score each catalog"):
		return `[{"catalog": "tools.pdf", "relevance_score": 9, "reason": "tools"}]`, nil
	case strings.Contains(prompt, "Raw analysis:"):
		return "=== PRODUCT INDEX ===\nPAGE 1: VM-500 drill - $199\n\n=== DETAILED CATALOG CONTENT ===\nVM-500 cordless drill, $199, page 1.", nil
	case strings.Contains(prompt, "product index"):
		return "PAGE 1: VM-500 drill - $199", nil
	case len(images) > 0:
		return "VM-500 drill, $199, page 1.", nil
	default:
		return "Model: VM-500 cordless drill. Price: $199.99, page 1. Includes two batteries, a charger, and a hard case.", nil
	}
}

type stubRasterizer struct{}

func (stubRasterizer) Rasterize(_ context.Context, _ string, _ int) ([]domain.PageImage, error) {
	return []domain.PageImage{{PageNumber: 1, ImagePath: "/tmp/p1.jpg"}}, nil
}

func (stubRasterizer) Cleanup() error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Dir = t.TempDir()

	eng, err := engine.New(context.Background(), cfg, observability.Nop(),
		engine.WithGenerator(stubModel{}),
		engine.WithRasterizer(stubRasterizer{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })

	srv := httptest.NewServer(NewRouter(observability.Nop(), eng, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func uploadCatalog(t *testing.T, srv *httptest.Server, filename string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/v1/catalogs", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestUploadAndListCatalogs(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCatalog(t, srv, "tools.pdf")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result engine.IngestionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.JobID)
	assert.Equal(t, "tools.pdf", result.Catalog)
	assert.Equal(t, 1, result.Pages)

	listResp, err := http.Get(srv.URL + "/v1/catalogs")
	require.NoError(t, err)
	defer listResp.Body.Close()
	require.Equal(t, http.StatusOK, listResp.StatusCode)

	var listBody struct {
		Catalogs []CatalogDTO `json:"catalogs"`
		Count    int          `json:"count"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listBody))
	require.Equal(t, 1, listBody.Count)
	assert.Equal(t, "tools.pdf", listBody.Catalogs[0].Filename)
	assert.Equal(t, "Tool catalog", listBody.Catalogs[0].Summary)
	assert.NotEmpty(t, listBody.Catalogs[0].ProcessedAt)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCatalog(t, srv, "notes.txt")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadMissingFilePart(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/catalogs", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body ErrorDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Error)
}

func TestAsk(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCatalog(t, srv, "tools.pdf")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	askResp, err := http.Post(srv.URL+"/v1/ask", "application/json",
		strings.NewReader(`{"question": "how much is the cordless drill?"}`))
	require.NoError(t, err)
	defer askResp.Body.Close()
	require.Equal(t, http.StatusOK, askResp.StatusCode)

	var answer engine.Answer
	require.NoError(t, json.NewDecoder(askResp.Body).Decode(&answer))
	assert.Equal(t, "tools.pdf", answer.SelectedCatalog)
	assert.Contains(t, answer.Text, "**Selected Catalog: tools.pdf**")
}

func TestAskEmptyQuestion(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/ask", "application/json", strings.NewReader(`{"question": "  "}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveCatalog(t *testing.T) {
	srv := newTestServer(t)

	resp := uploadCatalog(t, srv, "tools.pdf")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/v1/catalogs/%s", srv.URL, "tools.pdf"), nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	delResp2, err := http.DefaultClient.Do(req.Clone(context.Background()))
	require.NoError(t, err)
	delResp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, delResp2.StatusCode)
}
