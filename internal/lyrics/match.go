package lyrics

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Scorer rates how well a candidate label matches the wanted track,
// 0 (unrelated) to 100 (identical). The resolution workflow treats
// this as an external contract; LevenshteinScorer is the default.
type Scorer func(target, candidate string) int

// LevenshteinScorer folds case and normalizes edit distance over the
// longer string.
func LevenshteinScorer(target, candidate string) int {
	a := strings.ToLower(strings.TrimSpace(target))
	b := strings.ToLower(strings.TrimSpace(candidate))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}

	dist := fuzzy.LevenshteinDistance(a, b)
	if dist >= longest {
		return 0
	}
	return (longest - dist) * 100 / longest
}

// pickBest returns the highest-scoring candidate at or above the
// cutoff, or nil when none qualifies.
func pickBest(target string, candidates []Candidate, score Scorer, cutoff int) (*Candidate, int) {
	var best *Candidate
	bestScore := -1

	for i := range candidates {
		s := score(target, candidates[i].Label())
		if s > bestScore {
			best = &candidates[i]
			bestScore = s
		}
	}

	if best == nil || bestScore < cutoff {
		return nil, bestScore
	}
	return best, bestScore
}
