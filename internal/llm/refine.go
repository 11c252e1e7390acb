// File path: internal/llm/refine.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/retriever"
)

const (
	// DefaultMinConfidence forces escalation below this confidence.
	DefaultMinConfidence = 0.55
	maxAnswerRunes       = 4000
)

// Draft carries the material the model rewrites into the final answer.
type Draft struct {
	Question string
	Draft    string
	Sources  []retriever.Citation
	Lang     string
}

// RefineOptions tunes one refinement call.
type RefineOptions struct {
	MinConfidence float64
}

// Refined is the validated model output.
type Refined struct {
	Answer     string        `json:"answer"`
	Confidence float64       `json:"confidence"`
	Escalate   bool          `json:"escalate"`
	Citations  []CitationRef `json:"citations"`
}

// CitationRef names a source the model actually used.
type CitationRef struct {
	ID string `json:"id"`
}

// Refine asks the provider to rewrite the draft into a concise answer and
// validates the structured reply. A malformed reply is an error of the same
// class as a transport failure: the caller owns any fallback behavior.
func Refine(ctx context.Context, provider Provider, draft Draft, opts RefineOptions) (Refined, error) {
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	lang := draft.Lang
	if lang == "" {
		lang = "ru"
	}
	payload, err := json.MarshalIndent(map[string]interface{}{
		"question": draft.Question,
		"draft":    draft.Draft,
		"sources":  draft.Sources,
	}, "", "  ")
	if err != nil {
		return Refined{}, fmt.Errorf("marshal refine payload: %w", err)
	}
	messages := []Message{
		{Role: RoleSystem, Content: refineInstructions(lang)},
		{Role: RoleUser, Content: "Материалы ниже. Верни СТРОГО JSON по указанной схеме, без пояснений."},
		{Role: RoleUser, Content: string(payload)},
	}
	raw, err := provider.Chat(ctx, messages)
	if err != nil {
		return Refined{}, fmt.Errorf("refine draft: %w", err)
	}
	refined, err := parseRefined(raw)
	if err != nil {
		common.Logger().Warn("llm: refine reply rejected", "provider", provider.Name(), "error", err)
		return Refined{}, fmt.Errorf("refine draft: %w", err)
	}
	if refined.Confidence < minConfidence {
		refined.Escalate = true
	}
	return refined, nil
}

func refineInstructions(lang string) string {
	return strings.Join([]string{
		"Ты — ассистент поддержки.",
		"Перефразируй черновик ответа кратко и ясно на языке: " + lang + ".",
		"Используй только факты из черновика/источников. Не выдумывай.",
		"Если информации мало или уверенность низкая — мягко предложи «связаться с оператором поддержки».",
		`Верни строго JSON со схемой: { "answer": string, "confidence": number (0..1), "escalate": boolean, "citations": [{"id": string}...] }.`,
	}, "\n")
}

// parseRefined extracts and validates the JSON object from the model reply.
// Providers sometimes wrap the object in prose; the last {...} span wins.
func parseRefined(raw string) (Refined, error) {
	obj, err := extractJSON(raw)
	if err != nil {
		return Refined{}, err
	}
	var refined Refined
	decoder := json.NewDecoder(strings.NewReader(obj))
	if err := decoder.Decode(&refined); err != nil {
		return Refined{}, fmt.Errorf("malformed refine reply: %w", err)
	}
	if strings.TrimSpace(refined.Answer) == "" {
		return Refined{}, fmt.Errorf("malformed refine reply: empty answer")
	}
	if utf8.RuneCountInString(refined.Answer) > maxAnswerRunes {
		return Refined{}, fmt.Errorf("malformed refine reply: answer exceeds %d characters", maxAnswerRunes)
	}
	if refined.Confidence < 0 || refined.Confidence > 1 {
		return Refined{}, fmt.Errorf("malformed refine reply: confidence %.3f out of range", refined.Confidence)
	}
	for _, c := range refined.Citations {
		if strings.TrimSpace(c.ID) == "" {
			return Refined{}, fmt.Errorf("malformed refine reply: citation without id")
		}
	}
	return refined, nil
}

// extractJSON returns the raw text when it already is a JSON object, else the
// last top-level {...} span.
func extractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}
	end := strings.LastIndex(trimmed, "}")
	if end < 0 {
		return "", fmt.Errorf("malformed refine reply: no JSON object found")
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch trimmed[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				candidate := trimmed[i : end+1]
				if !json.Valid([]byte(candidate)) {
					return "", fmt.Errorf("malformed refine reply: invalid JSON object")
				}
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("malformed refine reply: unbalanced JSON object")
}
