package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalogmind/catalog-engine/internal/domain"
	"github.com/catalogmind/catalog-engine/internal/observability"
)

// sequenceGenerator replays responses per call; nil error entries succeed.
type sequenceGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *sequenceGenerator) Generate(_ context.Context, prompt string, _ []domain.PageImage) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("unexpected extra call")
}

func catalogWithIndex() *domain.CatalogMetadata {
	return &domain.CatalogMetadata{
		Filename:        "tools.pdf",
		DetailedContent: "=== PAGES 1-10 ===\nDrills and saws with prices.",
		ProductIndex:    "PAGE 3: VM-500 drill - $199",
	}
}

func catalogWithoutIndex() *domain.CatalogMetadata {
	return &domain.CatalogMetadata{
		Filename:        "tools.pdf",
		DetailedContent: "=== PAGES 1-10 ===\nDrills and saws with prices.",
	}
}

const goodAnswer = "Model: VM-500 cordless drill, $199.99, page 3. Two-speed gearbox, 45 Nm torque, supplied with two batteries and a charger."

func TestAnswerShortCircuitsOnFirstGoodStage(t *testing.T) {
	gen := &sequenceGenerator{responses: []string{goodAnswer}}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "cordless drill price", catalogWithIndex())
	require.NoError(t, err)
	assert.Equal(t, goodAnswer, answer)
	assert.Equal(t, 1, gen.calls, "later stages must not run after an accepted answer")
}

func TestAnswerSkipsIndexStageWithoutIndex(t *testing.T) {
	gen := &sequenceGenerator{responses: []string{goodAnswer}}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "cordless drill price", catalogWithoutIndex())
	require.NoError(t, err)
	assert.Equal(t, goodAnswer, answer)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "full content", "first call should be the full-content stage")
}

func TestAnswerProgressesThroughStages(t *testing.T) {
	gen := &sequenceGenerator{responses: []string{
		"No products matching that were listed in the index.",
		"The requested product was not found in the catalog content.",
		goodAnswer,
	}}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "impact driver", catalogWithIndex())
	require.NoError(t, err)
	assert.Equal(t, goodAnswer, answer)
	assert.Equal(t, 3, gen.calls)
	assert.Contains(t, gen.prompts[2], "same category", "third call should be the related-product stage")
}

func TestAnswerStageOrderIsFixed(t *testing.T) {
	reject := strings.Repeat("Nothing relevant here at all. ", 1)
	gen := &sequenceGenerator{responses: []string{reject, reject, reject, reject}}
	a := NewAgent(gen, observability.Nop())

	_, err := a.Answer(context.Background(), "impact driver", catalogWithIndex())
	require.NoError(t, err)
	require.Len(t, gen.prompts, 4)
	assert.Contains(t, gen.prompts[0], "product index")
	assert.Contains(t, gen.prompts[1], "full content")
	assert.Contains(t, gen.prompts[2], "Broaden the search")
	assert.Contains(t, gen.prompts[3], "infer the product category")
}

func TestAnswerExhaustionReturnsBestAvailable(t *testing.T) {
	gen := &sequenceGenerator{responses: []string{
		"Not found in the product index.",
		"Not found in the full catalog content either.",
		"Not found among related products.",
		"Not found in any inferred category.",
	}}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "submarine", catalogWithIndex())
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	assert.Equal(t, "Not found in any inferred category.", answer,
		"exhaustion returns the last produced output, never a raised failure")
}

func TestAnswerAllStagesFailReturnsApology(t *testing.T) {
	boom := errors.New("api down")
	gen := &sequenceGenerator{errs: []error{boom, boom, boom, boom}}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "drill", catalogWithIndex())
	require.NoError(t, err)
	assert.Contains(t, answer, "tools.pdf", "apology must name the catalog")
	assert.Contains(t, answer, "sorry")
	assert.True(t, ContainsNegativePhrase(answer),
		"apology must read as a miss so callers can fall back to another catalog")
}

func TestAnswerStageFailureFallsThrough(t *testing.T) {
	gen := &sequenceGenerator{
		responses: []string{"", goodAnswer},
		errs:      []error{errors.New("rate limited"), nil},
	}
	a := NewAgent(gen, observability.Nop())

	answer, err := a.Answer(context.Background(), "drill price", catalogWithIndex())
	require.NoError(t, err)
	assert.Equal(t, goodAnswer, answer)
	assert.Equal(t, 2, gen.calls)
}
