package tenantdb

import (
	"errors"
	"fmt"
)

// Sentinel errors for the isolation layer. Match with errors.Is; the
// concrete error is a *ViolationError carrying the collection and operation.
var (
	// ErrNoTenantContext means an operation on a tenant-scoped collection was
	// attempted with neither an active tenant nor system mode on the context.
	ErrNoTenantContext = errors.New("no tenant in context")

	// ErrCrossTenantAccess means a read surfaced a document belonging to a
	// different tenant. Always a security event, never retried.
	ErrCrossTenantAccess = errors.New("cross-tenant access")

	// ErrConflictingTenantFilter means a caller-supplied query or update
	// already pins tenant_id to a value other than the active tenant.
	ErrConflictingTenantFilter = errors.New("conflicting tenant filter")

	// ErrUnknownCollection is returned in strict mode for collection names
	// missing from the registry.
	ErrUnknownCollection = errors.New("collection not registered")

	// ErrNotFound is returned by a Store when no document matches.
	ErrNotFound = errors.New("document not found")
)

// ViolationError is the error type for every isolation failure. It carries
// enough context for the caller to log and for triage: which collection, which
// operation, and which tenants were involved.
type ViolationError struct {
	Collection string
	Op         string

	// Tenant is the active tenant at the time of the violation, empty when
	// the failure is a missing context.
	Tenant string

	// Found is the tenant_id discovered on the offending document or filter,
	// empty when the field was absent.
	Found string

	kind error
}

func (e *ViolationError) Error() string {
	msg := fmt.Sprintf("%s %s.%s", e.kind.Error(), e.Collection, e.Op)
	if e.Tenant != "" {
		msg += fmt.Sprintf(": active tenant %q", e.Tenant)
	}
	if e.Found != "" {
		msg += fmt.Sprintf(", found %q", e.Found)
	}
	return msg
}

func (e *ViolationError) Unwrap() error { return e.kind }

// Kind returns the sentinel this violation wraps.
func (e *ViolationError) Kind() error { return e.kind }
