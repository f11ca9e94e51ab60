// Package agent answers a user question against a single catalog's
// extracted content, broadening its search strategy across fixed retry
// stages until an answer clears the quality gate.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// Agent runs the staged search over one catalog.
type Agent struct {
	generator domain.Generator
	logger    *observability.Logger
}

// NewAgent wires a query agent.
func NewAgent(generator domain.Generator, logger *observability.Logger) *Agent {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Agent{generator: generator, logger: logger}
}

type stage struct {
	name   string
	prompt func(query string, meta *domain.CatalogMetadata) string
	skip   func(meta *domain.CatalogMetadata) bool
}

// Stages run strictly in order. Later prompts state that earlier searches
// found nothing, so the order is behavioral and must not change.
var stages = []stage{
	{
		name:   "index",
		prompt: indexSearchPrompt,
		skip: func(meta *domain.CatalogMetadata) bool {
			return strings.TrimSpace(meta.ProductIndex) == ""
		},
	},
	{name: "full_content", prompt: fullContentSearchPrompt},
	{name: "related_product", prompt: relatedProductSearchPrompt},
	{name: "category_inference", prompt: categoryInferencePrompt},
}

// Answer searches the catalog for the query, one stage at a time. The first
// stage output that passes the quality gate is returned immediately. If no
// stage passes, the last non-empty output is returned anyway: a weak answer
// beats a refusal. Only when every stage fails outright does the caller get
// a fixed apology naming the catalog, worded to read as a miss so callers
// can fall back to another catalog. The error return is always nil today;
// it is kept for interface symmetry with other model-backed components.
func (a *Agent) Answer(ctx context.Context, query string, meta *domain.CatalogMetadata) (string, error) {
	log := a.logger.WithCatalog(meta.Filename)

	var lastOutput string
	for _, st := range stages {
		if st.skip != nil && st.skip(meta) {
			log.Debug().Str("stage", st.name).Msg("stage skipped")
			continue
		}

		prompt := st.prompt(query, meta)
		output, err := a.generator.Generate(ctx, prompt, nil)
		if err != nil {
			log.Warn().Err(err).Str("stage", st.name).
				Str("prompt", observability.TruncateForLog(prompt, 120)).
				Msg("stage model call failed")
			continue
		}

		if IsGoodResponse(output, query) {
			log.Info().Str("stage", st.name).Msg("answer accepted")
			return output, nil
		}

		log.Debug().Str("stage", st.name).Int("length", len(output)).Msg("answer rejected by quality gate")
		if strings.TrimSpace(output) != "" {
			lastOutput = output
		}
	}

	if lastOutput != "" {
		log.Info().Msg("no stage passed the gate, returning best available answer")
		return lastOutput, nil
	}

	log.Warn().Msg("all stages failed, returning apology")
	return fmt.Sprintf(
		"I'm sorry, I was unable to find an answer in the catalog %q right now. Please try rephrasing your question or asking again later.",
		meta.Filename,
	), nil
}

func indexSearchPrompt(query string, meta *domain.CatalogMetadata) string {
	return fmt.Sprintf(`You are searching a product catalog named %q.

Here is its product index (one product per line, with page numbers):
%s

User question: %s

Find entries matching the question. For each match give the product name,
model, price if listed, and page number. If the index has no match, say so.`,
		meta.Filename, meta.ProductIndex, query)
}

func fullContentSearchPrompt(query string, meta *domain.CatalogMetadata) string {
	return fmt.Sprintf(`You are searching the full content of a product catalog named %q.

Catalog content:
%s

User question: %s

Search for exact or near matches. For every matching product report:
- Product name and model
- Specifications
- Price if listed
- Page reference
- Why it matches the question`,
		meta.Filename, meta.DetailedContent, query)
}

func relatedProductSearchPrompt(query string, meta *domain.CatalogMetadata) string {
	return fmt.Sprintf(`A direct search of the catalog %q found no products matching this question:
%s

Catalog content:
%s

Broaden the search: look for products in the same category or with a similar
function to what the user asked about. List each related product with its
name, price if shown, and page number, and explain briefly how it relates.`,
		meta.Filename, query, meta.DetailedContent)
}

func categoryInferencePrompt(query string, meta *domain.CatalogMetadata) string {
	return fmt.Sprintf(`Previous searches of the catalog %q found nothing for this question:
%s

First, infer the product category the question most likely refers to.
Then list ALL products in the catalog that belong to that category, with
names, prices if shown, and page numbers.

Catalog content:
%s`,
		meta.Filename, query, meta.DetailedContent)
}
