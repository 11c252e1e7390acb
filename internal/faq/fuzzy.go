// File path: internal/faq/fuzzy.go
package faq

import (
	"github.com/helpmate-bot/helpmate/internal/nlp"
)

// DefaultFuzzyThreshold is the maximum acceptable distance score. Scores run
// from 0 (token bags identical) to 1 (nothing in common).
const DefaultFuzzyThreshold = 0.5

// Matcher finds the closest FAQ pair by comparing token bags with
// edit-distance tolerance for inflected word forms.
type Matcher struct {
	store     *Store
	threshold float64
}

// Hit is a fuzzy-match candidate together with its distance score.
type Hit struct {
	Pair  Pair
	Score float64
}

func NewMatcher(store *Store, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	return &Matcher{store: store, threshold: threshold}
}

// FindFuzzy returns the single best pair whose question is within the
// matcher's threshold of the query. Ties keep the first-loaded pair so
// results stay stable across calls.
func (m *Matcher) FindFuzzy(query string) (Hit, bool) {
	queryTokens := nlp.Tokenize(query)
	if len(queryTokens) == 0 {
		return Hit{}, false
	}
	pairs, err := m.store.Load()
	if err != nil || len(pairs) == 0 {
		return Hit{}, false
	}
	best := Hit{Score: m.threshold + 1}
	found := false
	for _, pair := range pairs {
		pairTokens := nlp.Tokenize(pair.Question)
		if len(pairTokens) == 0 {
			continue
		}
		score := bagDistance(queryTokens, pairTokens)
		if score < best.Score {
			best = Hit{Pair: pair, Score: score}
			found = true
		}
	}
	if !found || best.Score > m.threshold {
		return Hit{}, false
	}
	return best, true
}

// bagDistance scores how far the query token bag sits from a candidate bag.
// Each query token contributes the normalized edit distance to its closest
// candidate token; the score is the mean contribution.
func bagDistance(query, candidate []string) float64 {
	total := 0.0
	for _, q := range query {
		best := 1.0
		for _, c := range candidate {
			if d := normalizedDistance(q, c); d < best {
				best = d
				if best == 0 {
					break
				}
			}
		}
		total += best
	}
	return total / float64(len(query))
}

func normalizedDistance(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return float64(levenshtein(ra, rb)) / float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
