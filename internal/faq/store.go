// File path: internal/faq/store.go
package faq

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/nlp"
)

// Pair is a single question/answer entry of the FAQ corpus. Pairs are
// immutable once loaded; Reload discards and rebuilds the whole set.
type Pair struct {
	ID       string   `json:"id"`
	Question string   `json:"q"`
	Answer   string   `json:"a"`
	Tags     []string `json:"tags,omitempty"`
}

// Store holds the FAQ pairs and an exact-match index keyed by the normalized
// question text. The backing file is read once; subsequent calls serve the
// cached set until Reload.
type Store struct {
	jsonPath string
	csvPath  string

	mu     sync.RWMutex
	pairs  []Pair
	index  map[string]Pair
	loaded bool
}

func NewStore(jsonPath, csvPath string) *Store {
	return &Store{jsonPath: jsonPath, csvPath: csvPath}
}

// Load returns the FAQ pairs, reading them from disk on first call. The JSON
// form wins when present; otherwise the CSV source is converted and persisted
// back as JSON. Both files missing yields an empty set, not an error.
func (s *Store) Load() ([]Pair, error) {
	s.mu.RLock()
	if s.loaded {
		pairs := s.pairs
		s.mu.RUnlock()
		return pairs, nil
	}
	s.mu.RUnlock()
	return s.Reload()
}

// Reload rebuilds the pair set and index from disk, replacing the cached set
// wholesale. Readers observe either the old or the new index, never a mix.
func (s *Store) Reload() ([]Pair, error) {
	pairs, err := s.read()
	if err != nil {
		return nil, err
	}
	index := make(map[string]Pair, len(pairs))
	for _, pair := range pairs {
		key := nlp.Normalize(pair.Question)
		if key == "" {
			continue
		}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = pair
	}
	s.mu.Lock()
	s.pairs = pairs
	s.index = index
	s.loaded = true
	s.mu.Unlock()
	common.Logger().Info("faq: corpus loaded", "pairs", len(pairs))
	return pairs, nil
}

// FindExact looks the query up by its normalized form.
func (s *Store) FindExact(query string) (Pair, bool) {
	if _, err := s.Load(); err != nil {
		common.Logger().Warn("faq: load failed during lookup", "error", err)
		return Pair{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.index[nlp.Normalize(query)]
	return pair, ok
}

func (s *Store) read() ([]Pair, error) {
	if s.jsonPath != "" {
		data, err := os.ReadFile(s.jsonPath)
		if err == nil {
			var pairs []Pair
			if err := json.Unmarshal(data, &pairs); err != nil {
				return nil, fmt.Errorf("parse faq json: %w", err)
			}
			return pairs, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read faq json: %w", err)
		}
	}
	if s.csvPath != "" {
		pairs, err := s.readCSV()
		if err == nil {
			s.persistJSON(pairs)
			return pairs, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	common.Logger().Warn("faq: no source files found, serving empty corpus",
		"json", s.jsonPath, "csv", s.csvPath)
	return nil, nil
}

// readCSV converts the two-column tabular source into pairs. The header row
// must contain recognizable question/answer markers.
func (s *Store) readCSV() ([]Pair, error) {
	file, err := os.Open(s.csvPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse faq csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := strings.ToLower(strings.Join(records[0], ","))
	if !containsAny(header, "вопрос", "question") || !containsAny(header, "ответ", "answer") {
		return nil, fmt.Errorf("faq csv header must contain question/answer columns, got %q", strings.Join(records[0], ","))
	}
	pairs := make([]Pair, 0, len(records)-1)
	for idx, row := range records[1:] {
		if len(row) < 2 {
			continue
		}
		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		if question == "" || answer == "" {
			continue
		}
		pairs = append(pairs, Pair{
			ID:       fmt.Sprintf("csv-%d", idx+1),
			Question: question,
			Answer:   answer,
		})
	}
	return pairs, nil
}

// persistJSON writes the converted pairs back so subsequent loads skip the
// CSV path. Best-effort: a write failure is logged, not returned.
func (s *Store) persistJSON(pairs []Pair) {
	if s.jsonPath == "" || len(pairs) == 0 {
		return
	}
	data, err := json.MarshalIndent(pairs, "", "  ")
	if err != nil {
		common.Logger().Warn("faq: marshal converted pairs failed", "error", err)
		return
	}
	if err := os.WriteFile(s.jsonPath, data, 0o644); err != nil {
		common.Logger().Warn("faq: persist converted pairs failed", "path", s.jsonPath, "error", err)
		return
	}
	common.Logger().Info("faq: csv source converted", "path", s.jsonPath, "pairs", len(pairs))
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
