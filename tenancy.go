package tenantdb

import (
	"context"
)

type contextKey int

const (
	tenantKey contextKey = iota
	systemModeKey
)

// WithTenant returns a context carrying the active tenant for every
// operation derived from it. Call it once per inbound request, after
// authentication has established which tenant is acting.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// Tenant reports the active tenant on ctx, if any.
func Tenant(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// WithSystemMode returns a context in which tenant filtering is bypassed.
// Prefer RunAsSystem, which keeps the privileged context from escaping the
// function it was created for.
func WithSystemMode(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemModeKey, true)
}

// InSystemMode reports whether ctx bypasses tenant filtering.
func InSystemMode(ctx context.Context) bool {
	on, ok := ctx.Value(systemModeKey).(bool)
	return ok && on
}

// RunAsSystem executes fn with tenant filtering disabled. The privileged
// state lives only on the derived context handed to fn: the caller's context
// is never mutated, so the prior mode is intact on every exit path,
// including a panic inside fn, and nested calls are safe.
func RunAsSystem(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(WithSystemMode(ctx))
}

// resolve returns the active tenant, or system=true when filtering is
// bypassed. With neither present it fails closed: callers must never treat
// a missing tenant as "no filter".
func resolve(ctx context.Context, collection, op string) (tenant string, system bool, err error) {
	if InSystemMode(ctx) {
		return "", true, nil
	}
	if id, ok := Tenant(ctx); ok {
		return id, false, nil
	}
	return "", false, &ViolationError{
		Collection: collection,
		Op:         op,
		kind:       ErrNoTenantContext,
	}
}
