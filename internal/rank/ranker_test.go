package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

type stubGenerator struct {
	response string
	err      error
}

func (g *stubGenerator) Generate(_ context.Context, _ string, _ []domain.PageImage) (string, error) {
	return g.response, g.err
}

var knownCatalogs = []string{"tools.pdf", "garden.pdf", "office.pdf"}

func TestRankOrdersByScore(t *testing.T) {
	gen := &stubGenerator{response: `[
		{"catalog": "garden.pdf", "relevance_score": 4, "reason": "some overlap"},
		{"catalog": "tools.pdf", "relevance_score": 9.5, "reason": "drills listed"},
		{"catalog": "office.pdf", "relevance_score": 2, "reason": "unrelated"}
	]`}
	ranker := NewRanker(gen, observability.Nop())

	results := ranker.Rank(context.Background(), "cordless drill price", "summaries", knownCatalogs, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "tools.pdf", results[0].CatalogName)
	assert.InDelta(t, 9.5, results[0].RelevanceScore, 0.001)
	assert.Equal(t, "garden.pdf", results[1].CatalogName)
	assert.Equal(t, "office.pdf", results[2].CatalogName)
}

func TestRankCapsAtTopK(t *testing.T) {
	gen := &stubGenerator{response: `[
		{"catalog": "tools.pdf", "relevance_score": 9},
		{"catalog": "garden.pdf", "relevance_score": 8},
		{"catalog": "office.pdf", "relevance_score": 7}
	]`}
	ranker := NewRanker(gen, observability.Nop())

	results := ranker.Rank(context.Background(), "anything", "summaries", knownCatalogs, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "tools.pdf", results[0].CatalogName)
	assert.Equal(t, "garden.pdf", results[1].CatalogName)
}

func TestRankStripsCodeFence(t *testing.T) {
	gen := &stubGenerator{response: "```json\n[{\"catalog\": \"tools.pdf\", \"relevance_score\": 8}]\n```"}
	ranker := NewRanker(gen, observability.Nop())

	results := ranker.Rank(context.Background(), "drill", "summaries", knownCatalogs, 3)
	require.Len(t, results, 1)
	assert.Equal(t, "tools.pdf", results[0].CatalogName)
}

func TestRankDropsHallucinatedCatalogs(t *testing.T) {
	gen := &stubGenerator{response: `[
		{"catalog": "imaginary.pdf", "relevance_score": 10, "reason": "made up"},
		{"catalog": "garden.pdf", "relevance_score": 6, "reason": "real"}
	]`}
	ranker := NewRanker(gen, observability.Nop())

	results := ranker.Rank(context.Background(), "patio chairs", "summaries", knownCatalogs, 3)
	require.Len(t, results, 1)
	assert.Equal(t, "garden.pdf", results[0].CatalogName)
}

func TestRankFallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"model error", &stubGenerator{err: errors.New("timeout")}},
		{"unparseable response", &stubGenerator{response: "The most relevant catalog is tools.pdf."}},
		{"all hallucinated", &stubGenerator{response: `[{"catalog": "ghost.pdf", "relevance_score": 10}]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranker := NewRanker(tt.gen, observability.Nop())
			results := ranker.Rank(context.Background(), "drill", "summaries", knownCatalogs, 3)

			require.Len(t, results, 3)
			for i, res := range results {
				assert.Equal(t, knownCatalogs[i], res.CatalogName, "fallback preserves store order")
				assert.InDelta(t, FallbackScore, res.RelevanceScore, 0.001)
			}
		})
	}
}

func TestRankFallbackRespectsTopK(t *testing.T) {
	ranker := NewRanker(&stubGenerator{err: errors.New("down")}, observability.Nop())
	results := ranker.Rank(context.Background(), "drill", "summaries", knownCatalogs, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "tools.pdf", results[0].CatalogName)
	assert.Equal(t, "garden.pdf", results[1].CatalogName)
}

func TestRankEmptyLibrary(t *testing.T) {
	ranker := NewRanker(&stubGenerator{response: "[]"}, observability.Nop())
	assert.Nil(t, ranker.Rank(context.Background(), "drill", "summaries", nil, 3))
}

func TestRankStableOrderOnTies(t *testing.T) {
	gen := &stubGenerator{response: `[
		{"catalog": "office.pdf", "relevance_score": 7},
		{"catalog": "tools.pdf", "relevance_score": 7},
		{"catalog": "garden.pdf", "relevance_score": 7}
	]`}
	ranker := NewRanker(gen, observability.Nop())

	results := ranker.Rank(context.Background(), "stapler", "summaries", knownCatalogs, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "office.pdf", results[0].CatalogName)
	assert.Equal(t, "tools.pdf", results[1].CatalogName)
	assert.Equal(t, "garden.pdf", results[2].CatalogName)
}
