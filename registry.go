package tenantdb

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Scope classifies a collection for isolation purposes.
type Scope int

const (
	// ScopeTenant collections require a tenant filter on every operation.
	ScopeTenant Scope = iota
	// ScopeSystem collections are shared across tenants by design.
	ScopeSystem
)

func (s Scope) String() string {
	if s == ScopeSystem {
		return "system"
	}
	return "tenant"
}

// Registry is the static partition of collection names into system and
// tenant scope. It is immutable once built; Classify is safe for concurrent
// use from request paths.
type Registry struct {
	scopes map[string]Scope

	warnMu sync.Mutex
	warned map[string]bool
}

// NewRegistry builds a registry from explicit name lists.
func NewRegistry(system, tenant []string) *Registry {
	r := &Registry{
		scopes: make(map[string]Scope, len(system)+len(tenant)),
		warned: make(map[string]bool),
	}
	for _, name := range system {
		r.scopes[name] = ScopeSystem
	}
	for _, name := range tenant {
		r.scopes[name] = ScopeTenant
	}
	return r
}

// DefaultRegistry covers the collections of the accessibility-audit data
// model: the tenant registry and schema bookkeeping are shared, everything
// holding customer data is isolated.
func DefaultRegistry() *Registry {
	return NewRegistry(
		[]string{"tenants", "audit_log", "schema_migrations"},
		[]string{"projects", "pages", "results", "users", "scans"},
	)
}

// Classify resolves the scope for a collection name. Unregistered names
// default to tenant scope with a one-time warning, so an unlisted collection
// can never silently escape isolation; under strict handles they are
// rejected outright.
func (r *Registry) Classify(name string, strict bool, log zerolog.Logger) (Scope, error) {
	if scope, ok := r.scopes[name]; ok {
		return scope, nil
	}
	if strict {
		return ScopeTenant, &ViolationError{Collection: name, Op: "classify", kind: ErrUnknownCollection}
	}
	r.warnMu.Lock()
	if !r.warned[name] {
		r.warned[name] = true
		log.Warn().
			Str("collection", name).
			Msg("collection not registered, defaulting to tenant scope")
	}
	r.warnMu.Unlock()
	return ScopeTenant, nil
}

// TenantCollections returns the tenant-scoped collection names in stable
// order, for migration and audit sweeps.
func (r *Registry) TenantCollections() []string {
	names := make([]string, 0, len(r.scopes))
	for name, scope := range r.scopes {
		if scope == ScopeTenant {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
