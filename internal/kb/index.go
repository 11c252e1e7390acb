// File path: internal/kb/index.go
package kb

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/nlp"
)

const (
	titleBoost   = 3.0
	tagBoost     = 2.0
	contentBoost = 1.0

	exactWeight  = 1.0
	prefixWeight = 0.6
	fuzzyWeight  = 0.4

	// minQueryRunes guards the index against noise queries.
	minQueryRunes = 2
)

// SearchHit is one scored document with its query-highlighted snippet.
type SearchHit struct {
	Doc     Doc
	Score   float64
	Snippet string
}

// Index is an inverted index over the KB documents. It builds lazily on the
// first search and swaps in a fresh build atomically on Reindex, so readers
// never observe a half-built state.
type Index struct {
	load func() ([]Doc, error)

	mu   sync.RWMutex
	snap *snapshot
}

type snapshot struct {
	docs     []Doc
	postings map[string][]posting
	terms    []string
}

type posting struct {
	doc    int
	weight float64
}

// NewIndex wires the index to a document source, typically a LoadDir closure.
func NewIndex(load func() ([]Doc, error)) *Index {
	return &Index{load: load}
}

// Search scores documents against the query and returns the top limit hits,
// best first. Queries shorter than two normalized runes return nothing and
// leave the index untouched.
func (ix *Index) Search(query string, limit int) ([]SearchHit, error) {
	if utf8.RuneCountInString(nlp.Normalize(query)) < minQueryRunes {
		return nil, nil
	}
	tokens := nlp.Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}
	snap, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	scores := make(map[int]float64)
	for _, token := range tokens {
		for _, term := range snap.matchTerms(token) {
			for _, p := range snap.postings[term.term] {
				scores[p.doc] += p.weight * term.weight
			}
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}
	hits := make([]SearchHit, 0, len(scores))
	for docIdx, score := range scores {
		hits = append(hits, SearchHit{Doc: snap.docs[docIdx], Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Doc.ID < hits[j].Doc.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	for i := range hits {
		hits[i].Snippet = Snippet(hits[i].Doc.Content, tokens, DefaultSnippetOptions())
	}
	return hits, nil
}

// Reindex rebuilds the index from the document source and swaps it in.
func (ix *Index) Reindex() error {
	snap, err := ix.build()
	if err != nil {
		return err
	}
	ix.mu.Lock()
	ix.snap = snap
	ix.mu.Unlock()
	common.Logger().Info("kb: index rebuilt", "docs", len(snap.docs), "terms", len(snap.terms))
	return nil
}

// Docs returns the currently indexed documents, building the index if needed.
func (ix *Index) Docs() ([]Doc, error) {
	snap, err := ix.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.docs, nil
}

func (ix *Index) snapshot() (*snapshot, error) {
	ix.mu.RLock()
	snap := ix.snap
	ix.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	if err := ix.Reindex(); err != nil {
		return nil, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.snap, nil
}

func (ix *Index) build() (*snapshot, error) {
	docs, err := ix.load()
	if err != nil {
		return nil, err
	}
	postings := make(map[string][]posting)
	add := func(docIdx int, token string, boost float64) {
		list := postings[token]
		if n := len(list); n > 0 && list[n-1].doc == docIdx {
			list[n-1].weight += boost
			postings[token] = list
			return
		}
		postings[token] = append(list, posting{doc: docIdx, weight: boost})
	}
	for docIdx, doc := range docs {
		for _, token := range nlp.Tokenize(doc.Title) {
			add(docIdx, token, titleBoost)
		}
		for _, tag := range doc.Tags {
			for _, token := range nlp.Tokenize(tag) {
				add(docIdx, token, tagBoost)
			}
		}
		for _, token := range nlp.Tokenize(doc.Content) {
			add(docIdx, token, contentBoost)
		}
	}
	terms := make([]string, 0, len(postings))
	for term := range postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return &snapshot{docs: docs, postings: postings, terms: terms}, nil
}

type termMatch struct {
	term   string
	weight float64
}

// matchTerms resolves one query token against the indexed vocabulary: exact
// match first, then prefix expansion, then single-edit fuzzy terms. Each term
// is reported once with its strongest weight.
func (s *snapshot) matchTerms(token string) []termMatch {
	seen := make(map[string]float64)
	if _, ok := s.postings[token]; ok {
		seen[token] = exactWeight
	}
	start := sort.SearchStrings(s.terms, token)
	for i := start; i < len(s.terms) && strings.HasPrefix(s.terms[i], token); i++ {
		if seen[s.terms[i]] < prefixWeight {
			seen[s.terms[i]] = prefixWeight
		}
	}
	for _, term := range s.terms {
		if _, ok := seen[term]; ok {
			continue
		}
		if withinOneEdit(token, term) {
			seen[term] = fuzzyWeight
		}
	}
	matches := make([]termMatch, 0, len(seen))
	for term, weight := range seen {
		matches = append(matches, termMatch{term: term, weight: weight})
	}
	return matches
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion, or substitution. Cheaper than a full distance table for the
// hot search path.
func withinOneEdit(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}
	if len(rb)-len(ra) > 1 {
		return false
	}
	i, j, edits := 0, 0, 0
	for i < len(ra) && j < len(rb) {
		if ra[i] == rb[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		if len(ra) == len(rb) {
			i++
		}
		j++
	}
	if j < len(rb) {
		edits++
	}
	return edits <= 1
}
