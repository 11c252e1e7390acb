// File path: internal/pipeline/engine.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
	"github.com/helpmate-bot/helpmate/internal/faq"
	"github.com/helpmate-bot/helpmate/internal/history"
	"github.com/helpmate-bot/helpmate/internal/kb"
	"github.com/helpmate-bot/helpmate/internal/llm"
	"github.com/helpmate-bot/helpmate/internal/nlp"
	"github.com/helpmate-bot/helpmate/internal/retriever"
)

// FallbackAnswer is returned when every stage of the cascade comes up empty.
const FallbackAnswer = "Не нашёл ответа в базе. Попробуйте переформулировать вопрос или создайте запрос /ticket."

// fuzzySuffix marks answers that came from an approximate FAQ match.
const fuzzySuffix = " (по FAQ)"

// Stage names used in logs and telemetry.
const (
	StageCache    = "cache"
	StageExact    = "exact"
	StageFuzzy    = "fuzzy"
	StageKB       = "kb"
	StageFallback = "fallback"
)

// ErrAskNotConfigured is returned by Ask when the engine was wired without
// the retrieval tier.
var ErrAskNotConfigured = errors.New("ask tier not configured")

// Source identifies a KB article cited by an answer.
type Source struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// AnswerResult is the outcome of the cascade.
type AnswerResult struct {
	Text    string   `json:"text"`
	Stage   string   `json:"stage"`
	Sources []Source `json:"sources,omitempty"`
}

// AnswerOptions tunes one Answer call.
type AnswerOptions struct {
	RequestID string
}

// AskResult is the outcome of the retrieval+refinement tier.
type AskResult struct {
	Answer     string            `json:"answer"`
	Confidence float64           `json:"confidence"`
	Escalate   bool              `json:"escalate"`
	Citations  []llm.CitationRef `json:"citations"`
}

// Recorder persists refined answers for auditing.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Engine runs the answer cascade and, when configured, the Ask tier.
type Engine struct {
	store   *faq.Store
	matcher *faq.Matcher
	index   *kb.Index
	cache   Cache
	cfg     Config

	retriever *retriever.Retriever
	provider  llm.Provider
	recorder  Recorder
}

// Option wires an optional collaborator into the engine.
type Option func(*Engine)

func WithRetriever(r *retriever.Retriever) Option {
	return func(e *Engine) { e.retriever = r }
}

func WithProvider(p llm.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func NewEngine(store *faq.Store, matcher *faq.Matcher, index *kb.Index, cache Cache, cfg Config, opts ...Option) *Engine {
	cfg.applyDefaults()
	engine := &Engine{store: store, matcher: matcher, index: index, cache: cache, cfg: cfg}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// Answer runs the cascade: cache → exact FAQ → fuzzy FAQ → KB search →
// fallback. The first stage that produces a result wins; a stage error aborts
// the whole call. Every finished result is cached under the normalized query.
func (e *Engine) Answer(ctx context.Context, query string, opts AnswerOptions) (AnswerResult, error) {
	rid := opts.RequestID
	if rid == "" {
		rid = uuid.NewString()
	}
	key := nlp.Normalize(query)
	if key == "" {
		return AnswerResult{Text: FallbackAnswer, Stage: StageFallback}, nil
	}

	started := time.Now()
	if cached, ok := e.cache.Get(ctx, key); ok {
		e.logStage(rid, StageCache, 1, started)
		return *cached, nil
	}
	e.logStage(rid, StageCache, 0, started)

	started = time.Now()
	if pair, ok := e.store.FindExact(query); ok {
		e.logStage(rid, StageExact, 1, started)
		return e.finish(ctx, key, AnswerResult{Text: pair.Answer, Stage: StageExact}), nil
	}
	e.logStage(rid, StageExact, 0, started)

	started = time.Now()
	if hit, ok := e.matcher.FindFuzzy(query); ok {
		e.logStage(rid, StageFuzzy, 1, started)
		return e.finish(ctx, key, AnswerResult{Text: hit.Pair.Answer + fuzzySuffix, Stage: StageFuzzy}), nil
	}
	e.logStage(rid, StageFuzzy, 0, started)

	started = time.Now()
	hits, err := e.index.Search(query, e.cfg.KBLimit)
	if err != nil {
		return AnswerResult{}, fmt.Errorf("kb search: %w", err)
	}
	e.logStage(rid, StageKB, len(hits), started)
	if len(hits) > 0 {
		return e.finish(ctx, key, buildKBAnswer(hits)), nil
	}

	return e.finish(ctx, key, AnswerResult{Text: FallbackAnswer, Stage: StageFallback}), nil
}

// Ask is the explicitly invoked higher tier: retrieve chunk context, refine
// with the LLM, audit the result. When retrieval finds nothing the FAQ is
// consulted before the model sees the question.
func (e *Engine) Ask(ctx context.Context, question, lang string) (AskResult, error) {
	if e.retriever == nil || e.provider == nil {
		return AskResult{}, ErrAskNotConfigured
	}
	ctx, done := telemetry.StartSpan(ctx, "pipeline.ask")
	defer done()
	if lang == "" {
		lang = "ru"
	}
	retrieved, err := e.retriever.Retrieve(ctx, question, retriever.Options{
		TopK:          e.cfg.TopK,
		ContextBudget: e.cfg.ContextBudget,
	})
	if err != nil {
		return AskResult{}, err
	}
	if retrieved.ContextText == "" {
		if pair, ok := e.store.FindExact(question); ok {
			result := AskResult{Answer: pair.Answer, Confidence: 1}
			e.record(ctx, question, lang, result)
			return result, nil
		}
		if hit, ok := e.matcher.FindFuzzy(question); ok {
			result := AskResult{Answer: hit.Pair.Answer, Confidence: 0.9}
			e.record(ctx, question, lang, result)
			return result, nil
		}
	}
	refined, err := llm.Refine(ctx, e.provider, llm.Draft{
		Question: question,
		Draft:    retrieved.ContextText,
		Sources:  retrieved.Citations,
		Lang:     lang,
	}, llm.RefineOptions{MinConfidence: e.cfg.MinConfidence})
	if err != nil {
		return AskResult{}, err
	}
	result := AskResult{
		Answer:     refined.Answer,
		Confidence: refined.Confidence,
		Escalate:   refined.Escalate,
		Citations:  refined.Citations,
	}
	e.record(ctx, question, lang, result)
	return result, nil
}

// Invalidate drops all cached answers, typically after a reindex.
func (e *Engine) Invalidate(ctx context.Context) {
	e.cache.Invalidate(ctx)
}

// Reindex reloads the FAQ corpus and rebuilds the KB index, then drops the
// cache so stale answers cannot survive a content update.
func (e *Engine) Reindex(ctx context.Context) error {
	if _, err := e.store.Reload(); err != nil {
		return fmt.Errorf("reload faq: %w", err)
	}
	if err := e.index.Reindex(); err != nil {
		return fmt.Errorf("reindex kb: %w", err)
	}
	e.cache.Invalidate(ctx)
	return nil
}

func (e *Engine) finish(ctx context.Context, key string, result AnswerResult) AnswerResult {
	e.cache.Set(ctx, key, &result)
	return result
}

func (e *Engine) logStage(rid, stage string, hits int, started time.Time) {
	elapsed := time.Since(started)
	telemetry.RecordStage(stage, hits, elapsed)
	common.Logger().Info("pipeline: stage complete",
		"rid", rid, "stage", stage, "ms", elapsed.Milliseconds(), "hits", hits)
}

func (e *Engine) record(ctx context.Context, question, lang string, result AskResult) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(ctx, history.Entry{
		Question:   question,
		Answer:     result.Answer,
		Confidence: result.Confidence,
		Escalate:   result.Escalate,
		Lang:       lang,
	})
	if err != nil {
		common.Logger().Warn("pipeline: history record failed", "error", err)
	}
}

// buildKBAnswer joins the hit snippets and appends a numbered source line.
func buildKBAnswer(hits []kb.SearchHit) AnswerResult {
	snippets := make([]string, len(hits))
	refs := make([]string, len(hits))
	sources := make([]Source, len(hits))
	for i, hit := range hits {
		snippets[i] = hit.Snippet
		refs[i] = fmt.Sprintf("[%d] %s", i+1, hit.Doc.Title)
		sources[i] = Source{ID: hit.Doc.ID, Title: hit.Doc.Title, Slug: hit.Doc.Slug}
	}
	text := strings.Join(snippets, "\n---\n") + "\n\nИсточники: " + strings.Join(refs, ", ")
	return AnswerResult{Text: text, Stage: StageKB, Sources: sources}
}
