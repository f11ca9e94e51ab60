package agent

import "strings"

const (
	// minAnswerLength is the first-pass cutoff; anything shorter cannot be a
	// real product answer.
	minAnswerLength = 30
	// acceptAnswerLength is required for final acceptance by the gate.
	acceptAnswerLength = 100
)

// negativePhrases mark an answer as a miss regardless of length. Substring
// match, case-insensitive. The orchestrator applies the same list when
// deciding whether to fall back to the next catalog.
var negativePhrases = []string{
	"no products matching",
	"not found",
	"no information",
	"unable to find",
	"error",
}

// positiveMarkers are cheap signals that an answer carries actual product
// detail rather than filler prose.
var positiveMarkers = []string{
	"$", "€", "£",
	"price:", "model:", "page:",
	"specification", "feature",
}

// ContainsNegativePhrase reports whether the text reads like a "no match"
// response.
func ContainsNegativePhrase(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// IsGoodResponse is the deterministic quality gate applied to each retry
// stage's output. It accepts only answers that are long enough, free of
// negative phrases, and visibly grounded in either product markers or the
// user's own query terms.
func IsGoodResponse(answer, query string) bool {
	trimmed := strings.TrimSpace(answer)
	if len(trimmed) < minAnswerLength {
		return false
	}
	if ContainsNegativePhrase(trimmed) {
		return false
	}
	if len(trimmed) < acceptAnswerLength {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range positiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?\"'()")
		if len(word) > 3 && strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
