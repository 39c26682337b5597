package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/facegate/facegate/internal/recognition"
	"github.com/facegate/facegate/internal/store/mock"
	"github.com/facegate/facegate/internal/tenant"
)

func TestMembers_CreateAndGet(t *testing.T) {
	memberStore := mock.NewMemberStore()
	invalidator := &fakeInvalidator{}
	handler := NewMembersHandler(memberStore, invalidator)
	scope := tenant.Legacy()

	req := requestWithTenant(http.MethodPost, "/api/v1/members",
		`{"name": "Alice", "status": "allowed", "embedding": [0.1, 0.2]}`, scope)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)

	var created MemberResponse
	parseJSONResponse(t, rec, &created)
	if created.ID == "" {
		t.Fatal("expected generated member id")
	}
	if !created.HasEmbedding {
		t.Error("expected has_embedding true")
	}
	if invalidator.count() != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", invalidator.count())
	}

	getReq := requestWithChiParams(
		requestWithTenant(http.MethodGet, "/api/v1/members/"+created.ID, "", scope),
		map[string]string{"id": created.ID})
	getRec := httptest.NewRecorder()
	handler.Get(getRec, getReq)

	assertStatusCode(t, getRec, http.StatusOK)
	var fetched MemberResponse
	parseJSONResponse(t, getRec, &fetched)
	if fetched.Name != "Alice" {
		t.Errorf("expected name 'Alice', got '%s'", fetched.Name)
	}
}

func TestMembers_CreateTidiesName(t *testing.T) {
	memberStore := mock.NewMemberStore()
	handler := NewMembersHandler(memberStore)

	req := requestWithTenant(http.MethodPost, "/api/v1/members",
		`{"name": "  Jiří   Novák "}`, tenant.Legacy())
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	assertStatusCode(t, rec, http.StatusCreated)
	var created MemberResponse
	parseJSONResponse(t, rec, &created)
	if created.Name != "Jiří Novák" {
		t.Errorf("expected tidied name 'Jiří Novák', got '%s'", created.Name)
	}
	if created.Status != "allowed" {
		t.Errorf("expected default status 'allowed', got '%s'", created.Status)
	}
}

func TestMembers_CreateValidation(t *testing.T) {
	handler := NewMembersHandler(mock.NewMemberStore())

	cases := map[string]struct {
		body    string
		message string
	}{
		"missing name":   {`{"status": "allowed"}`, "name is required"},
		"unknown status": {`{"name": "Bob", "status": "suspended"}`, "unknown status"},
		"bad json":       {`{`, errInvalidRequestBody},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := requestWithTenant(http.MethodPost, "/api/v1/members", tc.body, tenant.Legacy())
			rec := httptest.NewRecorder()
			handler.Create(rec, req)

			assertStatusCode(t, rec, http.StatusBadRequest)
			assertJSONError(t, rec, tc.message)
		})
	}
}

func TestMembers_ListScopedToTenant(t *testing.T) {
	memberStore := mock.NewMemberStore()
	scopeA, _ := tenant.For("org-a")
	scopeB, _ := tenant.For("org-b")
	memberStore.Seed(scopeA, recognition.Member{Name: "Alice"})
	memberStore.Seed(scopeA, recognition.Member{Name: "Bob"})
	memberStore.Seed(scopeB, recognition.Member{Name: "Carol"})

	handler := NewMembersHandler(memberStore)

	req := requestWithTenant(http.MethodGet, "/api/v1/members", "", scopeA)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var members []MemberResponse
	parseJSONResponse(t, rec, &members)
	if len(members) != 2 {
		t.Errorf("expected 2 members for org-a, got %d", len(members))
	}
}

func TestMembers_ListSearchIgnoresDiacritics(t *testing.T) {
	memberStore := mock.NewMemberStore()
	scope := tenant.Legacy()
	memberStore.Seed(scope, recognition.Member{Name: "Jiří Novák"})
	memberStore.Seed(scope, recognition.Member{Name: "Alice Smith"})

	handler := NewMembersHandler(memberStore)

	req := requestWithTenant(http.MethodGet, "/api/v1/members?q=jiri", "", scope)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var members []MemberResponse
	parseJSONResponse(t, rec, &members)
	if len(members) != 1 || members[0].Name != "Jiří Novák" {
		t.Errorf("expected only 'Jiří Novák', got %+v", members)
	}
}

func TestMembers_UpdateInvalidatesCache(t *testing.T) {
	memberStore := mock.NewMemberStore()
	invalidator := &fakeInvalidator{}
	handler := NewMembersHandler(memberStore, invalidator)
	scope := tenant.Legacy()
	seeded := memberStore.Seed(scope, recognition.Member{Name: "Alice", Status: recognition.StatusAllowed})

	req := requestWithChiParams(
		requestWithTenant(http.MethodPut, "/api/v1/members/"+seeded.ID,
			`{"name": "Alice", "status": "banned"}`, scope),
		map[string]string{"id": seeded.ID})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if invalidator.count() != 1 {
		t.Errorf("expected 1 invalidation after update, got %d", invalidator.count())
	}

	var updated MemberResponse
	parseJSONResponse(t, rec, &updated)
	if updated.Status != "banned" {
		t.Errorf("expected status 'banned', got '%s'", updated.Status)
	}
}

func TestMembers_UpdateNotFound(t *testing.T) {
	handler := NewMembersHandler(mock.NewMemberStore())

	req := requestWithChiParams(
		requestWithTenant(http.MethodPut, "/api/v1/members/missing", `{"name": "X"}`, tenant.Legacy()),
		map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	handler.Update(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
}

func TestMembers_DeleteInvalidatesCache(t *testing.T) {
	memberStore := mock.NewMemberStore()
	invalidator := &fakeInvalidator{}
	handler := NewMembersHandler(memberStore, invalidator)
	scope := tenant.Legacy()
	seeded := memberStore.Seed(scope, recognition.Member{Name: "Alice"})

	req := requestWithChiParams(
		requestWithTenant(http.MethodDelete, "/api/v1/members/"+seeded.ID, "", scope),
		map[string]string{"id": seeded.ID})
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	if invalidator.count() != 1 {
		t.Errorf("expected 1 invalidation after delete, got %d", invalidator.count())
	}
}

func TestMembers_DeleteNotFound(t *testing.T) {
	invalidator := &fakeInvalidator{}
	handler := NewMembersHandler(mock.NewMemberStore(), invalidator)

	req := requestWithChiParams(
		requestWithTenant(http.MethodDelete, "/api/v1/members/missing", "", tenant.Legacy()),
		map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	handler.Delete(rec, req)

	assertStatusCode(t, rec, http.StatusNotFound)
	if invalidator.count() != 0 {
		t.Error("expected no invalidation when delete fails")
	}
}

func TestMembers_StoreFailure(t *testing.T) {
	memberStore := mock.NewMemberStore()
	memberStore.ListError = errors.New("connection refused")
	handler := NewMembersHandler(memberStore)

	req := requestWithTenant(http.MethodGet, "/api/v1/members", "", tenant.Legacy())
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusServiceUnavailable)
	assertJSONError(t, rec, "store unavailable")
}
