// Package tenant defines the organization scope that partitions rosters and
// attendance data. Every cache and storage operation takes a Scope explicitly;
// there is no process-wide "current organization" variable.
package tenant

import (
	"context"
	"errors"
	"strings"
)

// LegacyKey is the storage key for the reserved null-tenant scope used by
// installations that predate multi-tenancy.
const LegacyKey = "legacy"

// orgKeyPrefix prefixes real organization ids in storage key form.
const orgKeyPrefix = "org:"

// ErrInvalidScope is returned when an organization id is empty or malformed.
var ErrInvalidScope = errors.New("invalid tenant scope")

// Scope identifies the tenant partition for a single operation.
// The zero value is the legacy scope, so a Scope is always usable.
type Scope struct {
	orgID string
}

// For returns the scope for a real organization id.
func For(orgID string) (Scope, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" || orgID == LegacyKey || strings.ContainsAny(orgID, " \t\n") {
		return Scope{}, ErrInvalidScope
	}
	return Scope{orgID: orgID}, nil
}

// Legacy returns the reserved null-tenant scope.
func Legacy() Scope {
	return Scope{}
}

// IsLegacy reports whether this is the null-tenant scope.
func (s Scope) IsLegacy() bool {
	return s.orgID == ""
}

// OrgID returns the organization id and true, or "" and false for the
// legacy scope.
func (s Scope) OrgID() (string, bool) {
	if s.orgID == "" {
		return "", false
	}
	return s.orgID, true
}

// Key returns the storage key form: "org:<id>" for real tenants, "legacy"
// for the null tenant. Keys are unique across scopes, including legacy.
func (s Scope) Key() string {
	if s.orgID == "" {
		return LegacyKey
	}
	return orgKeyPrefix + s.orgID
}

// FromKey parses a storage key back into a Scope.
func FromKey(key string) (Scope, error) {
	if key == LegacyKey {
		return Legacy(), nil
	}
	id, ok := strings.CutPrefix(key, orgKeyPrefix)
	if !ok {
		return Scope{}, ErrInvalidScope
	}
	return For(id)
}

func (s Scope) String() string {
	return s.Key()
}

type contextKey struct{}

// NewContext returns a context carrying the given scope.
func NewContext(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the scope carried by the context, if any.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(contextKey{}).(Scope)
	return s, ok
}
