// File path: internal/common/telemetry/telemetry.go
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/helpmate-bot/helpmate/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	stageTotal     *expvar.Map
	stageHits      *expvar.Map
	stageLatencyMS *expvar.Map

	cacheHitsTotal   *expvar.Int
	cacheMissesTotal *expvar.Int

	vectorSearchTotal     *expvar.Int
	vectorSearchLatencyMS *expvar.Int
)

func ensureInit() {
	initOnce.Do(func() {
		stageTotal = expvar.NewMap("helpmate_stage_total")
		stageHits = expvar.NewMap("helpmate_stage_hits")
		stageLatencyMS = expvar.NewMap("helpmate_stage_latency_ms")

		cacheHitsTotal = expvar.NewInt("helpmate_answer_cache_hits")
		cacheMissesTotal = expvar.NewInt("helpmate_answer_cache_misses")

		vectorSearchTotal = expvar.NewInt("helpmate_vector_search_total")
		vectorSearchLatencyMS = expvar.NewInt("helpmate_vector_search_latency_ms")
	})
}

// StartSpan begins a debug-traced span tied to the returned context. The
// returned func closes the span and logs its duration with optional attrs.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordStage counts one execution of a pipeline stage.
func RecordStage(stage string, hits int, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(stage))
	if key == "" {
		key = "unknown"
	}
	stageTotal.Add(key, 1)
	if hits > 0 {
		stageHits.Add(key, int64(hits))
	}
	if duration > 0 {
		stageLatencyMS.Add(key, duration.Milliseconds())
	}
}

// RecordCacheLookup counts an answer-cache hit or miss.
func RecordCacheLookup(hit bool) {
	ensureInit()
	if hit {
		cacheHitsTotal.Add(1)
		return
	}
	cacheMissesTotal.Add(1)
}

// RecordVectorSearch counts a similarity search against the chunk store.
func RecordVectorSearch(duration time.Duration) {
	ensureInit()
	vectorSearchTotal.Add(1)
	if duration > 0 {
		vectorSearchLatencyMS.Add(duration.Milliseconds())
	}
}

// SpanDuration reports the elapsed time of the span carried by ctx, if any.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
