// Package engine is the embedding surface for the catalog engine: it wires
// the extraction pipeline, metadata store, ranker, query agent, and answer
// cache behind a small facade used by both the CLI and the HTTP API.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/catalogmind/catalog-engine/internal/agent"
	"github.com/catalogmind/catalog-engine/internal/cache"
	"github.com/catalogmind/catalog-engine/internal/config"
	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/extract"
	"github.com/catalogmind/catalog-engine/internal/llm"
	"github.com/catalogmind/catalog-engine/internal/observability"
	"github.com/catalogmind/catalog-engine/internal/orchestrator"
	"github.com/catalogmind/catalog-engine/internal/pdf"
	"github.com/catalogmind/catalog-engine/internal/rank"
	"github.com/catalogmind/catalog-engine/internal/store"
)

// IngestionResult reports what one catalog upload produced.
type IngestionResult struct {
	JobID    string        `json:"job_id"`
	Catalog  string        `json:"catalog"`
	Pages    int           `json:"pages"`
	Batches  int           `json:"batches"`
	Duration time.Duration `json:"duration"`
}

// Answer is the result of one question.
type Answer struct {
	Text            string `json:"answer"`
	SelectedCatalog string `json:"selected_catalog,omitempty"`
	Cached          bool   `json:"cached"`
}

// Engine is the top-level application object.
type Engine struct {
	cfg       *config.Config
	logger    *observability.Logger
	library   *store.Library
	extractor *extract.Service
	orch      *orchestrator.Orchestrator
	answers   cache.Client
}

// Option overrides a default collaborator, used mainly by tests and by
// callers embedding the engine with their own model client.
type Option func(*builder)

type builder struct {
	generator  domain.Generator
	rasterizer domain.Rasterizer
	answers    cache.Client
}

// WithGenerator substitutes the language model client.
func WithGenerator(g domain.Generator) Option {
	return func(b *builder) { b.generator = g }
}

// WithRasterizer substitutes the PDF rasterizer.
func WithRasterizer(r domain.Rasterizer) Option {
	return func(b *builder) { b.rasterizer = r }
}

// WithAnswerCache substitutes the answer cache.
func WithAnswerCache(c cache.Client) Option {
	return func(b *builder) { b.answers = c }
}

// New builds a fully wired engine from configuration.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = observability.DefaultLogger()
	}

	var b builder
	for _, opt := range opts {
		opt(&b)
	}

	if b.generator == nil {
		retryCfg := llm.DefaultRetryConfig()
		retryCfg.MaxRetries = cfg.LLM.MaxRetries
		b.generator = llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, logger,
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithTimeout(cfg.LLM.RequestTimeout),
			llm.WithRetryConfig(retryCfg),
		)
	}
	if b.rasterizer == nil {
		b.rasterizer = pdf.NewConverter(cfg.Extraction.JPEGQuality, logger)
	}
	if b.answers == nil {
		var err error
		b.answers, err = buildCache(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	persister, err := buildPersister(cfg)
	if err != nil {
		return nil, err
	}
	library, err := store.Open(cfg.Storage.Dir, persister, logger)
	if err != nil {
		return nil, err
	}
	library.MaxCatalogs = cfg.Search.MaxCatalogs

	extractor := extract.NewService(b.rasterizer, b.generator, cfg.Extraction, logger)
	ranker := rank.NewRanker(b.generator, logger)
	answerer := agent.NewAgent(b.generator, logger)
	orch := orchestrator.New(library, ranker, answerer, cfg.Search.TopK, logger)

	return &Engine{
		cfg:       cfg,
		logger:    logger,
		library:   library,
		extractor: extractor,
		orch:      orch,
		answers:   b.answers,
	}, nil
}

func buildPersister(cfg *config.Config) (store.Persister, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return store.NewSQLitePersister(cfg.Storage.SQLite.Path, cfg.Storage.SQLite.JournalMode)
	default:
		return store.NewJSONPersister(cfg.Storage.Dir), nil
	}
}

func buildCache(ctx context.Context, cfg *config.Config, logger *observability.Logger) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		}, cfg.Cache.TTL, logger)
	default:
		return cache.NewMemoryCache(cfg.Cache.TTL), nil
	}
}

// AddCatalog ingests one uploaded PDF: rasterize, extract, store. The add is
// atomic; on failure the library is unchanged.
func (e *Engine) AddCatalog(ctx context.Context, filename string, pdfData []byte) (*IngestionResult, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, domain.ValidationError(fmt.Sprintf("%s is not a PDF file", filename), nil)
	}
	if len(pdfData) == 0 {
		return nil, domain.ValidationError("uploaded file is empty", nil)
	}

	start := time.Now()
	defer e.extractor.Cleanup()

	meta, err := e.library.Add(ctx, filename, pdfData, e.extractor)
	if err != nil {
		return nil, err
	}

	batchSize := e.cfg.Extraction.BatchSize
	result := &IngestionResult{
		JobID:    uuid.NewString(),
		Catalog:  meta.Filename,
		Pages:    meta.PageCount,
		Batches:  (meta.PageCount + batchSize - 1) / batchSize,
		Duration: time.Since(start),
	}

	e.logger.WithCatalog(filename).Info().
		Str("job_id", result.JobID).
		Int("pages", result.Pages).
		Dur("duration", result.Duration).
		Msg("catalog ingested")
	return result, nil
}

// Ask answers a product question against the stored catalogs. Answers are
// cached per question and library state; mutations invalidate the cache by
// changing the library fingerprint.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ValidationError("question must not be empty", nil)
	}

	key := cache.Key(question, e.library.Fingerprint())
	if entry, err := e.answers.Get(ctx, key); err == nil {
		e.logger.Debug().Str("key", key).Msg("answer cache hit")
		return &Answer{Text: entry.Answer, SelectedCatalog: entry.SelectedCatalog, Cached: true}, nil
	}

	result := e.orch.Process(ctx, question)

	if err := e.answers.Set(ctx, key, cache.Entry{
		Answer:          result.Text,
		SelectedCatalog: result.SelectedCatalog,
	}); err != nil {
		e.logger.Warn().Err(err).Msg("failed to cache answer")
	}

	return &Answer{Text: result.Text, SelectedCatalog: result.SelectedCatalog}, nil
}

// RemoveCatalog deletes a stored catalog. Returns false when the name is
// unknown.
func (e *Engine) RemoveCatalog(name string) bool {
	return e.library.Remove(name)
}

// ListCatalogs returns all stored records in upload order.
func (e *Engine) ListCatalogs() []*domain.CatalogMetadata {
	return e.library.List()
}

// Overview renders a human-readable summary of the whole library.
func (e *Engine) Overview() string {
	catalogs := e.library.List()
	if len(catalogs) == 0 {
		return orchestrator.NoCatalogsMessage
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d catalog(s) available:\n", len(catalogs))
	for _, m := range catalogs {
		fmt.Fprintf(&sb, "\n- %s (%d pages)", m.Filename, m.PageCount)
		if m.Summary != "" {
			fmt.Fprintf(&sb, "\n  %s", m.Summary)
		}
		if len(m.Categories) > 0 {
			fmt.Fprintf(&sb, "\n  Categories: %s", strings.Join(m.Categories, ", "))
		}
	}
	return sb.String()
}

// Close releases the store and cache.
func (e *Engine) Close() error {
	err := e.library.Close()
	if cerr := e.answers.Close(); err == nil {
		err = cerr
	}
	return err
}
