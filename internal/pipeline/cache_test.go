// File path: internal/pipeline/cache_test.go
package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, time.Minute)
	cache.Set(ctx, "key", &AnswerResult{Text: "ответ", Stage: StageExact})
	got, ok := cache.Get(ctx, "key")
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.Text != "ответ" || got.Stage != StageExact {
		t.Fatalf("unexpected result: %+v", got)
	}
	if _, ok := cache.Get(ctx, "другой"); ok {
		t.Fatalf("unexpected hit for unknown key")
	}
}

func TestMemoryCacheExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, time.Minute)
	current := time.Now()
	cache.now = func() time.Time { return current }
	cache.Set(ctx, "key", &AnswerResult{Text: "ответ"})
	if _, ok := cache.Get(ctx, "key"); !ok {
		t.Fatalf("expected hit before expiry")
	}
	current = current.Add(time.Minute + time.Second)
	if _, ok := cache.Get(ctx, "key"); ok {
		t.Fatalf("expected miss after ttl")
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(2, time.Minute)
	cache.Set(ctx, "a", &AnswerResult{Text: "a"})
	cache.Set(ctx, "b", &AnswerResult{Text: "b"})
	if _, ok := cache.Get(ctx, "a"); !ok {
		t.Fatalf("expected hit for a")
	}
	cache.Set(ctx, "c", &AnswerResult{Text: "c"})
	if _, ok := cache.Get(ctx, "b"); ok {
		t.Fatalf("b should have been evicted as least recently used")
	}
	if _, ok := cache.Get(ctx, "a"); !ok {
		t.Fatalf("a should have survived eviction")
	}
}

func TestMemoryCacheReturnsCopy(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, time.Minute)
	cache.Set(ctx, "key", &AnswerResult{Text: "оригинал"})
	got, _ := cache.Get(ctx, "key")
	got.Text = "изменено"
	again, _ := cache.Get(ctx, "key")
	if again.Text != "оригинал" {
		t.Fatalf("cached value mutated through returned pointer")
	}
}

func TestMemoryCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(10, time.Minute)
	for i := 0; i < 5; i++ {
		cache.Set(ctx, fmt.Sprintf("k%d", i), &AnswerResult{Text: "x"})
	}
	cache.Invalidate(ctx)
	for i := 0; i < 5; i++ {
		if _, ok := cache.Get(ctx, fmt.Sprintf("k%d", i)); ok {
			t.Fatalf("expected empty cache after invalidate")
		}
	}
}

func newRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t, time.Minute)
	cache.Set(ctx, "вопрос", &AnswerResult{Text: "ответ", Stage: StageKB, Sources: []Source{{ID: "doc", Title: "Статья"}}})
	got, ok := cache.Get(ctx, "вопрос")
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.Text != "ответ" || len(got.Sources) != 1 || got.Sources[0].ID != "doc" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRedisCacheExpiresByTTL(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)
	cache.Set(ctx, "key", &AnswerResult{Text: "x"})
	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "key"); ok {
		t.Fatalf("expected miss after ttl")
	}
}

func TestRedisCacheMissesWhenServerDown(t *testing.T) {
	ctx := context.Background()
	cache, mr := newRedisCache(t, time.Minute)
	cache.Set(ctx, "key", &AnswerResult{Text: "x"})
	mr.Close()
	if _, ok := cache.Get(ctx, "key"); ok {
		t.Fatalf("downed server must read as a miss, never an error")
	}
}

func TestRedisCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newRedisCache(t, time.Minute)
	cache.Set(ctx, "a", &AnswerResult{Text: "a"})
	cache.Set(ctx, "b", &AnswerResult{Text: "b"})
	cache.Invalidate(ctx)
	if _, ok := cache.Get(ctx, "a"); ok {
		t.Fatalf("expected empty cache after invalidate")
	}
	if _, ok := cache.Get(ctx, "b"); ok {
		t.Fatalf("expected empty cache after invalidate")
	}
}
