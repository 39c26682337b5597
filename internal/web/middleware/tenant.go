package middleware

import (
	"net/http"

	"github.com/facegate/facegate/internal/tenant"
)

// OrgHeader carries the tenant identifier. A missing header selects the
// legacy (single-tenant) scope so pre-multitenancy clients keep working.
const OrgHeader = "X-Org-ID"

// WithTenant resolves the request's tenant scope from the org header and
// stores it in the request context. An invalid org id is rejected before
// any handler runs.
func WithTenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := tenant.Legacy()
			if orgID := r.Header.Get(OrgHeader); orgID != "" {
				var err error
				scope, err = tenant.For(orgID)
				if err != nil {
					http.Error(w, `{"error": "invalid org id"}`, http.StatusBadRequest)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(tenant.NewContext(r.Context(), scope)))
		})
	}
}

// ScopeFromRequest returns the scope resolved by WithTenant. Requests that
// bypassed the middleware (tests calling handlers directly) get the legacy
// scope.
func ScopeFromRequest(r *http.Request) tenant.Scope {
	if scope, ok := tenant.FromContext(r.Context()); ok {
		return scope
	}
	return tenant.Legacy()
}
