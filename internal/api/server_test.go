// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/helpmate-bot/helpmate/internal/faq"
	"github.com/helpmate-bot/helpmate/internal/kb"
	"github.com/helpmate-bot/helpmate/internal/pipeline"
)

func testServer(t *testing.T, docs []kb.Doc, opts ...Option) *Server {
	t.Helper()
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "faq.json")
	fixture := `[{"id": "greeting", "q": "Как тебя зовут?", "a": "Я бот поддержки."}]`
	if err := os.WriteFile(jsonPath, []byte(fixture), 0o644); err != nil {
		t.Fatalf("write faq fixture: %v", err)
	}
	store := faq.NewStore(jsonPath, "")
	matcher := faq.NewMatcher(store, 0)
	index := kb.NewIndex(func() ([]kb.Doc, error) { return docs, nil })
	cache := pipeline.NewMemoryCache(50, time.Minute)
	engine := pipeline.NewEngine(store, matcher, index, cache, pipeline.Config{})
	return NewServer(engine, index, opts...)
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected health response: %d %q", rr.Code, rr.Body.String())
	}
}

func TestAnswerEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	rr := postJSON(t, srv, "/v1/answer", map[string]string{"question": "Как тебя зовут?"})
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rr.Code, rr.Body.String())
	}
	var result pipeline.AnswerResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Text != "Я бот поддержки." || result.Stage != pipeline.StageExact {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestAnswerEndpointRejectsEmptyQuestion(t *testing.T) {
	srv := testServer(t, nil)
	rr := postJSON(t, srv, "/v1/answer", map[string]string{"question": "  "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestAskEndpointHidesProviderErrors(t *testing.T) {
	// Engine without the ask tier fails internally; the client must see the
	// generic message only.
	srv := testServer(t, nil)
	rr := postJSON(t, srv, "/v1/ask", map[string]string{"question": "вопрос"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "failed to process question" {
		t.Fatalf("internal error leaked to client: %q", resp["error"])
	}
}

func TestSearchEndpoint(t *testing.T) {
	docs := []kb.Doc{
		{ID: "pay", Title: "Оплата заказов", Slug: "payments", Content: "Заказ можно оплатить картой."},
	}
	srv := testServer(t, docs)
	req := httptest.NewRequest(http.MethodGet, "/v1/search?q=оплата&limit=5", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []searchResult `json:"results"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "pay" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[0].Snippet == "" {
		t.Fatalf("snippet missing")
	}
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/search", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestReindexAndCacheInvalidate(t *testing.T) {
	srv := testServer(t, nil)
	for _, path := range []string{"/v1/reindex", "/v1/cache/invalidate"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status %d %s", path, rr.Code, rr.Body.String())
		}
	}
}

func TestHistoryEndpointNotConfigured(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/history", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without history, got %d", rr.Code)
	}
}

func TestLogsEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	var resp struct {
		Entries []struct {
			Message   string `json:"message"`
			Component string `json:"component"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode logs: %v", err)
	}
}
