// File path: internal/nlp/text.go
package nlp

import (
	"strings"
	"unicode"
)

// minTokenLen drops single-letter noise tokens ("в", "и", "a") before they
// reach the matchers.
const minTokenLen = 2

// stopwords lists high-frequency Russian and English words that carry no
// matching signal. Kept small on purpose: the corpus is short support
// questions, not prose.
var stopwords = map[string]struct{}{
	"и": {}, "в": {}, "на": {}, "не": {}, "что": {}, "как": {}, "это": {},
	"по": {}, "из": {}, "за": {}, "для": {}, "или": {}, "ли": {}, "же": {},
	"бы": {}, "то": {}, "у": {}, "от": {}, "до": {}, "при": {}, "чтобы": {},
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "to": {}, "of": {},
	"and": {}, "or": {}, "in": {}, "on": {}, "for": {}, "with": {}, "how": {},
	"what": {}, "do": {}, "does": {},
}

// FoldRune maps visually or phonetically equivalent letters onto a single
// canonical form so that "ёжик"/"ежик" and "чай"/"чаи" normalize identically.
func FoldRune(r rune) rune {
	switch r {
	case 'ё':
		return 'е'
	case 'й':
		return 'и'
	}
	return r
}

// Normalize canonicalizes raw text for matching: lowercase, letter folding,
// punctuation and symbols replaced by spaces, whitespace collapsed. The
// result of Normalize is a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	space := true
	for _, r := range strings.ToLower(text) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		b.WriteRune(FoldRune(r))
		space = false
	}
	return strings.TrimRight(b.String(), " ")
}

// Tokenize splits normalized text into matching tokens, dropping stopwords
// and tokens shorter than minTokenLen runes. Token order follows first
// occurrence in the input so callers can locate snippet anchors.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	if len(fields) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < minTokenLen {
			continue
		}
		if _, ok := stopwords[f]; ok {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
