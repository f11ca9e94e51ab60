// Package rank scores stored catalogs against a user question so the query
// orchestrator can try the most promising ones first.
package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/llm"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// FallbackScore is assigned uniformly when the model's ranking cannot be
// used. Every stored catalog stays a candidate rather than none.
const FallbackScore = 5.0

const rankingPrompt = `You are matching a user question to stored product catalogs.

User question: %s

Available catalogs:
%s

Score each catalog's relevance to the question from 0 to 10:
- 9-10: catalog clearly covers the asked product or brand
- 6-8: catalog's categories or keywords strongly overlap the question
- 3-5: loose or partial overlap
- 0-2: unrelated

Return ONLY a JSON array, most relevant first:
[{"catalog": "<exact filename>", "relevance_score": <number>, "reason": "<one sentence>"}]

Use the exact catalog filenames shown above. Do not invent catalogs.`

// Ranker asks a language model to score catalog summaries against a query.
type Ranker struct {
	generator domain.Generator
	logger    *observability.Logger
}

// NewRanker wires a ranker.
func NewRanker(generator domain.Generator, logger *observability.Logger) *Ranker {
	if logger == nil {
		logger = observability.DefaultLogger()
	}
	return &Ranker{generator: generator, logger: logger}
}

// Rank returns up to topK catalogs ordered by descending relevance. Results
// naming catalogs that are not in known are dropped. When the model call
// fails, returns unparseable JSON, or every result is hallucinated, all
// known catalogs are returned in store order with a uniform fallback score.
// Ranking never fails outright while at least one catalog exists.
func (r *Ranker) Rank(ctx context.Context, query, summaries string, known []string, topK int) []domain.CatalogSearchResult {
	if len(known) == 0 {
		return nil
	}
	if topK < 1 {
		topK = 1
	}

	raw, err := r.generator.Generate(ctx, fmt.Sprintf(rankingPrompt, query, summaries), nil)
	if err != nil {
		r.logger.Warn().Err(err).Msg("catalog ranking failed, using uniform fallback")
		return r.fallback(known, topK)
	}

	var results []domain.CatalogSearchResult
	if err := json.Unmarshal([]byte(llm.StripCodeFences(raw)), &results); err != nil {
		r.logger.Warn().Err(err).Str("response", observability.TruncateForLog(raw, 200)).
			Msg("unparseable ranking response, using uniform fallback")
		return r.fallback(known, topK)
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}
	}

	kept := results[:0]
	for _, res := range results {
		if _, ok := knownSet[res.CatalogName]; !ok {
			r.logger.Warn().Str("catalog", res.CatalogName).Msg("dropping hallucinated catalog from ranking")
			continue
		}
		kept = append(kept, res)
	}

	if len(kept) == 0 {
		r.logger.Warn().Msg("ranking produced no usable results, using uniform fallback")
		return r.fallback(known, topK)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})

	if len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// fallback keeps every catalog in play at an identical score, preserving
// store order so earlier uploads are tried first.
func (r *Ranker) fallback(known []string, topK int) []domain.CatalogSearchResult {
	n := len(known)
	if n > topK {
		n = topK
	}
	results := make([]domain.CatalogSearchResult, 0, n)
	for _, name := range known[:n] {
		results = append(results, domain.CatalogSearchResult{
			CatalogName:    name,
			RelevanceScore: FallbackScore,
			Reason:         "fallback: ranking unavailable",
		})
	}
	return results
}
