// File path: internal/kb/chunker.go
package kb

import (
	"strings"

	"github.com/google/uuid"
)

const (
	defaultChunkSize    = 1200
	defaultChunkOverlap = 200
)

// Chunk is a contiguous slice of a normalized document, addressable by its
// [Start,End) rune offsets into the normalized text.
type Chunk struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Start   int      `json:"start"`
	End     int      `json:"end"`
	Title   string   `json:"title,omitempty"`
	Heading string   `json:"heading,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// ChunkOptions tunes the sliding window. Zero values take the defaults.
type ChunkOptions struct {
	Size    int
	Overlap int
	Title   string
	Tags    []string
}

// SplitChunks cuts text into overlapping windows for embedding. Whitespace is
// normalized first; window ends snap back to the last newline when one falls
// past the midpoint, so chunks tend to break on paragraph boundaries. The
// offsets satisfy end[i] - overlap <= start[i+1] <= end[i].
func SplitChunks(text string, opts ChunkOptions) []Chunk {
	size := opts.Size
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := opts.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = defaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	normalized := []rune(NormalizeWhitespace(text))
	if len(normalized) == 0 {
		return nil
	}
	var chunks []Chunk
	heading := opts.Title
	start := 0
	for start < len(normalized) {
		end := start + size
		if end >= len(normalized) {
			end = len(normalized)
		} else if nl := lastNewline(normalized, start, end); nl > start+size/2 {
			end = nl
		}
		body := normalized[start:end]
		if h := lastHeading(body); h != "" {
			heading = h
		}
		if strings.TrimSpace(string(body)) != "" {
			chunks = append(chunks, Chunk{
				ID:      chunkID(),
				Text:    string(body),
				Start:   start,
				End:     end,
				Title:   opts.Title,
				Heading: heading,
				Tags:    opts.Tags,
			})
		}
		if end >= len(normalized) {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// NormalizeWhitespace strips carriage returns, collapses runs of tabs and
// spaces, and caps blank-line runs at a single blank line.
func NormalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	var b strings.Builder
	b.Grow(len(text))
	spaceRun := false
	newlineRun := 0
	for _, r := range text {
		switch {
		case r == '\n':
			newlineRun++
			spaceRun = false
			if newlineRun <= 2 {
				b.WriteRune('\n')
			}
		case r == ' ' || r == '\t':
			if !spaceRun {
				b.WriteRune(' ')
				spaceRun = true
			}
		default:
			b.WriteRune(r)
			spaceRun = false
			newlineRun = 0
		}
	}
	return strings.TrimSpace(b.String())
}

// lastNewline finds the rune offset just past the last newline in [start,end),
// or -1 when the window has none.
func lastNewline(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

// lastHeading returns the text of the last markdown heading inside the chunk
// body so the following chunk can carry its section context.
func lastHeading(body []rune) string {
	lines := strings.Split(string(body), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "# "))
		}
	}
	return ""
}

func chunkID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
