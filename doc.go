// Package tenantdb is a multi-tenant isolation layer over a shared document
// store: every tenant's data lives in the same collections, and this package
// guarantees that no read, write, or aggregation issued through it can cross
// a tenant boundary.
//
// # Tenant context
//
// The active tenant travels on the context.Context, never on the handle or
// in a global. Derive a context once per inbound request with [WithTenant]
// and pass it to every operation:
//
//	ctx := tenantdb.WithTenant(r.Context(), tenantID)
//	projects, err := db.Collection("projects").Find(ctx, bson.M{"status": "active"})
//
// An operation on a tenant-scoped collection with no tenant on the context
// fails with [ErrNoTenantContext]: the layer fails closed and never
// defaults to "no filter".
//
// # What the layer rewrites
//
// Reads get {tenant_id: T} merged into the filter, aggregations get a $match
// stage prepended to the pipeline, and writes are stamped with tenant_id
// plus created_at/updated_at audit timestamps. Single-document reads are
// additionally re-validated after the fetch; a document from another tenant
// surfaces as [ErrCrossTenantAccess] rather than as data.
//
// # System mode
//
// Privileged cross-tenant work (migrations, audits) runs under
// [RunAsSystem], which disables filtering only on the context handed to the
// wrapped function. [DB.BackfillTenant] and [DB.Audit] use it internally.
//
// # Backends
//
// [Store] is the raw backend surface. The mongostore package adapts a
// *mongo.Database from go.mongodb.org/mongo-driver/v2; internal/memstore
// backs the test suite.
package tenantdb
