package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store/mock"
	"github.com/facegate/facegate/internal/tenant"
)

func cachedRoster(t *testing.T, scopes ...tenant.Scope) (*recognition.EmbeddingCache, *mock.MemberStore) {
	t.Helper()
	memberStore := mock.NewMemberStore()
	cache := recognition.NewEmbeddingCache(memberStore)
	for _, scope := range scopes {
		memberStore.Seed(scope, recognition.Member{Name: "Alice", Embedding: []float32{0.1, 0.2}})
		if _, err := cache.Refresh(t.Context(), scope); err != nil {
			t.Fatalf("refreshing cache: %v", err)
		}
	}
	return cache, memberStore
}

func TestCache_Stats(t *testing.T) {
	scope := tenant.Legacy()
	cache, _ := cachedRoster(t, scope)
	handler := NewCacheHandler(cache)

	req := requestWithTenant(http.MethodGet, "/api/v1/cache/stats", "", scope)
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var stats recognition.CacheStats
	parseJSONResponse(t, rec, &stats)
	if stats.ScopeKey != scope.Key() {
		t.Errorf("expected scope %s, got %s", scope.Key(), stats.ScopeKey)
	}
	if stats.Count != 1 {
		t.Errorf("expected 1 cached member, got %d", stats.Count)
	}
}

func TestCache_StatsUncachedScope(t *testing.T) {
	cache, _ := cachedRoster(t)
	handler := NewCacheHandler(cache)

	req := requestWithTenant(http.MethodGet, "/api/v1/cache/stats", "", tenant.Legacy())
	rec := httptest.NewRecorder()
	handler.Stats(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp map[string]any
	parseJSONResponse(t, rec, &resp)
	if cached, _ := resp["cached"].(bool); cached {
		t.Error("expected cached=false for an uncached scope")
	}
}

func TestCache_AllStats(t *testing.T) {
	scopeA, _ := tenant.For("org-a")
	scopeB, _ := tenant.For("org-b")
	cache, _ := cachedRoster(t, scopeA, scopeB)
	handler := NewCacheHandler(cache)

	req := requestWithTenant(http.MethodGet, "/api/v1/cache/stats/all", "", tenant.Legacy())
	rec := httptest.NewRecorder()
	handler.AllStats(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var stats []recognition.CacheStats
	parseJSONResponse(t, rec, &stats)
	if len(stats) != 2 {
		t.Errorf("expected stats for 2 scopes, got %d", len(stats))
	}
}

func TestCache_InvalidateDropsEntryAndNotifies(t *testing.T) {
	scope := tenant.Legacy()
	cache, _ := cachedRoster(t, scope)
	extra := &fakeInvalidator{}
	handler := NewCacheHandler(cache, extra)

	req := requestWithTenant(http.MethodPost, "/api/v1/cache/invalidate", "", scope)
	rec := httptest.NewRecorder()
	handler.Invalidate(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if _, ok := cache.Get(scope); ok {
		t.Error("expected cache entry to be dropped")
	}
	if extra.count() != 1 {
		t.Errorf("expected extra invalidator to be notified once, got %d", extra.count())
	}
}
