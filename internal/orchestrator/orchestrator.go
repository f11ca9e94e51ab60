// Package orchestrator ties the relevance ranker and the catalog query
// agent together into the single user-facing ask operation.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/catalogmind/catalog-engine/internal/agent"
	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// Fixed user-facing messages. The conversational surface never shows raw
// errors.
const (
	NoCatalogsMessage        = "No product catalogs have been uploaded yet. Please upload a catalog PDF first, then ask your question again."
	NoSuitableCatalogMessage = "I couldn't find a catalog that matches your question. Try rephrasing it or upload a catalog that covers this product area."
)

// Store is the read-only view of the catalog library the orchestrator needs.
type Store interface {
	Get(name string) *domain.CatalogMetadata
	Names() []string
	Summaries() string
	Len() int
}

// Ranker scores catalogs against a query.
type Ranker interface {
	Rank(ctx context.Context, query, summaries string, known []string, topK int) []domain.CatalogSearchResult
}

// Answerer answers a query from one catalog's content.
type Answerer interface {
	Answer(ctx context.Context, query string, meta *domain.CatalogMetadata) (string, error)
}

// Result is the orchestrator's complete output contract.
type Result struct {
	// Text is the formatted answer shown to the user.
	Text string
	// SelectedCatalog names the catalog the answer came from; empty when no
	// catalog was usable.
	SelectedCatalog string
}

// Orchestrator routes each question to the best catalog and falls back to
// lower-ranked candidates when an answer looks like a miss.
type Orchestrator struct {
	store    Store
	ranker   Ranker
	answerer Answerer
	topK     int
	logger   *observability.Logger
}

// New wires an orchestrator. topK bounds how many ranked catalogs one
// question may touch.
func New(store Store, ranker Ranker, answerer Answerer, topK int, logger *observability.Logger) *Orchestrator {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	if topK < 1 {
		topK = 1
	}
	return &Orchestrator{
		store:    store,
		ranker:   ranker,
		answerer: answerer,
		topK:     topK,
		logger:   logger,
	}
}

// Process answers the query. Candidates are tried in rank order; an answer
// containing a negative phrase triggers the next candidate. When every
// candidate answers poorly, the first (top-ranked) poor answer is still
// returned: the surface favors a weak answer over a refusal.
func (o *Orchestrator) Process(ctx context.Context, query string) Result {
	if o.store.Len() == 0 {
		return Result{Text: NoCatalogsMessage}
	}

	ranked := o.ranker.Rank(ctx, query, o.store.Summaries(), o.store.Names(), o.topK)
	if len(ranked) == 0 {
		return Result{Text: NoSuitableCatalogMessage}
	}

	var fallback *Result
	for i, candidate := range ranked {
		meta := o.store.Get(candidate.CatalogName)
		if meta == nil {
			o.logger.Warn().Str("catalog", candidate.CatalogName).Msg("ranked catalog missing from store")
			continue
		}

		o.logger.Info().Str("catalog", candidate.CatalogName).
			Float64("score", candidate.RelevanceScore).Int("rank", i+1).
			Msg("querying catalog")

		answer, err := o.answerer.Answer(ctx, query, meta)
		if err != nil {
			o.logger.Warn().Err(err).Str("catalog", candidate.CatalogName).Msg("query agent failed")
			continue
		}

		result := Result{
			Text:            formatAnswer(candidate, answer),
			SelectedCatalog: candidate.CatalogName,
		}
		if !agent.ContainsNegativePhrase(answer) {
			return result
		}

		o.logger.Info().Str("catalog", candidate.CatalogName).Msg("poor answer, trying next ranked catalog")
		if fallback == nil {
			fallback = &result
		}
	}

	if fallback != nil {
		return *fallback
	}
	return Result{Text: NoSuitableCatalogMessage}
}

func formatAnswer(candidate domain.CatalogSearchResult, answer string) string {
	return fmt.Sprintf("**Selected Catalog: %s** (Relevance: %.1f/10)\n\n**Answer:**\n%s",
		candidate.CatalogName, candidate.RelevanceScore, answer)
}
