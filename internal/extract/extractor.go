// Package extract turns rasterized catalog pages into structured metadata
// and searchable full-text content using a multimodal language model.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/catalogmind/catalog-engine/internal/config"
	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/llm"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// Service orchestrates the full extraction run for one uploaded catalog:
// rasterization, metadata sampling, batched content analysis, product index
// construction, and consolidation.
type Service struct {
	rasterizer domain.Rasterizer
	generator  domain.Generator
	cfg        config.ExtractionConfig
	logger     *observability.Logger
}

// NewService wires an extraction service.
func NewService(rasterizer domain.Rasterizer, generator domain.Generator, cfg config.ExtractionConfig, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Service{
		rasterizer: rasterizer,
		generator:  generator,
		cfg:        cfg,
		logger:     logger,
	}
}

// ExtractCatalog runs the whole pipeline and returns a populated record.
// Metadata extraction never fails the run: when the model's response cannot
// be parsed, filename-derived fallback metadata is used so the catalog stays
// searchable. Rasterization failure is the only hard error.
func (s *Service) ExtractCatalog(ctx context.Context, pdfPath, filename string) (*domain.CatalogMetadata, error) {
	log := s.logger.WithCatalog(filename)

	pages, err := s.rasterizer.Rasterize(ctx, pdfPath, s.cfg.DPI)
	if err != nil {
		return nil, domain.ConversionError(fmt.Sprintf("failed to rasterize %s", filename), err)
	}
	if len(pages) == 0 {
		return nil, domain.ConversionError(fmt.Sprintf("no pages rasterized from %s", filename), nil)
	}
	log.Info().Int("pages", len(pages)).Msg("catalog rasterized")

	meta := s.ExtractMetadata(ctx, filename, pages)
	meta.PageCount = len(pages)

	content := s.ExtractFullContent(ctx, filename, pages)
	content = s.Consolidate(ctx, filename, content)
	meta.DetailedContent = content
	meta.ProductIndex = s.BuildProductIndex(ctx, filename, content)

	now := time.Now()
	meta.ProcessingDate = &now
	meta.IsProcessed = true
	return meta, nil
}

// ExtractMetadata samples the leading pages and asks the model for a JSON
// metadata object. Any failure, from the API call to JSON parsing, yields
// fallback metadata derived from the filename.
func (s *Service) ExtractMetadata(ctx context.Context, filename string, pages []domain.PageImage) *domain.CatalogMetadata {
	log := s.logger.WithCatalog(filename)

	sample := pages
	if len(sample) > s.cfg.MetadataSamplePages {
		sample = sample[:s.cfg.MetadataSamplePages]
	}

	raw, err := s.generator.Generate(ctx, metadataPrompt, sample)
	if err != nil {
		log.Warn().Err(err).Msg("metadata extraction failed, using fallback metadata")
		return fallbackMetadata(filename)
	}

	var data domain.ExtractionData
	if err := json.Unmarshal([]byte(llm.StripCodeFences(raw)), &data); err != nil {
		log.Warn().Err(err).Str("response", observability.TruncateForLog(raw, 200)).
			Msg("unparseable metadata response, using fallback metadata")
		return fallbackMetadata(filename)
	}

	meta := domain.NewCatalogMetadata(filename)
	if data.Summary != "" {
		meta.Summary = data.Summary
	} else {
		meta.Summary = fallbackSummary(filename)
	}
	meta.Categories = orDefault(data.Categories, []string{"general"})
	meta.Keywords = orDefault(data.Keywords, []string{fallbackKeyword(filename)})
	meta.ProductTypes = orDefault(data.ProductTypes, []string{"products"})
	meta.BrandNames = data.BrandNames
	meta.ProductNames = data.ProductNames
	if data.MainBusinessType != "" {
		meta.MainBusinessType = data.MainBusinessType
	} else {
		meta.MainBusinessType = "retail"
	}
	return meta
}

// ExtractFullContent analyzes the catalog in page batches and concatenates
// the per-batch summaries under page-range headers. A failed batch is
// recorded inline so the surviving batches still produce usable content.
func (s *Service) ExtractFullContent(ctx context.Context, filename string, pages []domain.PageImage) string {
	log := s.logger.WithCatalog(filename)

	var sb strings.Builder
	total := len(pages)
	for start := 0; start < total; start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > total {
			end = total
		}
		batch := pages[start:end]

		header := fmt.Sprintf("=== PAGES %d-%d ===", start+1, end)
		analysis, err := s.generator.Generate(ctx, batchAnalysisPrompt(start+1, end, total), batch)
		if err != nil {
			log.Warn().Err(err).Int("batch_start", start+1).Int("batch_end", end).
				Msg("batch analysis failed")
			analysis = fmt.Sprintf("[Error analyzing these pages: %v]", err)
		}

		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(header)
		sb.WriteString("\n")
		sb.WriteString(analysis)
	}
	return sb.String()
}

// BuildProductIndex derives a page-by-page product index from the extracted
// content. Index construction is best-effort: on failure the catalog simply
// carries no index and the query agent skips its index stage.
func (s *Service) BuildProductIndex(ctx context.Context, filename, content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	indexed := content
	if len(indexed) > s.cfg.MaxAnalysisChars {
		indexed = indexed[:s.cfg.MaxAnalysisChars]
	}
	prompt := fmt.Sprintf(productIndexPrompt, indexed)
	index, err := s.generator.Generate(ctx, prompt, nil)
	if err != nil {
		s.logger.WithCatalog(filename).Warn().Err(err).Msg("product index construction failed")
		return ""
	}
	return strings.TrimSpace(index)
}

// Consolidate reorganizes the raw batch analysis into a compact two-section
// document. Input beyond the analysis limit is truncated before the model
// call. When the call fails the raw analysis is truncated to the
// consolidation limit, so something searchable always survives.
func (s *Service) Consolidate(ctx context.Context, filename, content string) string {
	if strings.TrimSpace(content) == "" {
		return content
	}

	input := content
	if len(input) > s.cfg.MaxAnalysisChars {
		input = input[:s.cfg.MaxAnalysisChars]
	}

	log := s.logger.WithCatalog(filename)
	log.Info().Int("chars", len(content)).Msg("consolidating catalog content")

	consolidated, err := s.generator.Generate(ctx, fmt.Sprintf(consolidationPrompt, input), nil)
	if err != nil {
		log.Warn().Err(err).Msg("consolidation failed, truncating raw analysis")
		if len(content) > s.cfg.MaxConsolidateChars {
			return content[:s.cfg.MaxConsolidateChars]
		}
		return content
	}
	return consolidated
}

// Cleanup releases rasterizer temp files.
func (s *Service) Cleanup() error {
	return s.rasterizer.Cleanup()
}

func fallbackMetadata(filename string) *domain.CatalogMetadata {
	meta := domain.NewCatalogMetadata(filename)
	meta.Summary = fallbackSummary(filename)
	meta.Categories = []string{"general"}
	meta.Keywords = []string{fallbackKeyword(filename)}
	meta.ProductTypes = []string{"products"}
	meta.MainBusinessType = "retail"
	return meta
}

func fallbackSummary(filename string) string {
	return "Product catalog: " + filename
}

func fallbackKeyword(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.ToLower(base)
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
