package tenantdb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Collection is the guarded accessor for one named collection. Every method
// resolves the tenant from ctx, rewrites the request, and hands it to the
// underlying Store; reads on tenant-scoped collections are re-validated
// before results reach the caller.
type Collection struct {
	db   *DB
	name string
}

// Name returns the collection name this accessor is bound to.
func (c *Collection) Name() string { return c.name }

// guard classifies the collection and resolves the tenant context for op.
// scoped is false when no rewriting applies (system collection or system
// mode); system distinguishes the two for write stamping.
func (c *Collection) guard(ctx context.Context, op string) (tenant string, scoped, system bool, err error) {
	scope, err := c.db.registry.Classify(c.name, c.db.strict, c.db.log)
	if err != nil {
		return "", false, false, err
	}
	if scope == ScopeSystem {
		return "", false, false, nil
	}
	tenant, system, err = c.resolveTenant(ctx, op)
	if err != nil {
		return "", false, false, err
	}
	if system {
		return "", false, true, nil
	}
	return tenant, true, false, nil
}

func (c *Collection) resolveTenant(ctx context.Context, op string) (string, bool, error) {
	return resolve(ctx, c.name, op)
}

// validate re-checks that a fetched document belongs to the active tenant.
// This is defense in depth behind the query filter: a mismatch here means a
// filtering bug upstream and is treated as a security violation, never as an
// empty result.
func (c *Collection) validate(op, tenant string, doc bson.M) (bson.M, error) {
	found, _ := doc[TenantField].(string)
	if found == tenant {
		return doc, nil
	}
	c.db.log.Error().
		Str("collection", c.name).
		Str("op", op).
		Str("tenant", tenant).
		Str("found_tenant", found).
		Msg("cross-tenant access blocked")
	return nil, &ViolationError{
		Collection: c.name,
		Op:         op,
		Tenant:     tenant,
		Found:      found,
		kind:       ErrCrossTenantAccess,
	}
}

// FindOne fetches a single document. ErrNotFound passes through from the
// store; a document from another tenant raises ErrCrossTenantAccess.
func (c *Collection) FindOne(ctx context.Context, filter bson.M) (bson.M, error) {
	tenant, scoped, _, err := c.guard(ctx, "findOne")
	if err != nil {
		return nil, err
	}
	if !scoped {
		return c.db.store.FindOne(ctx, c.name, filter)
	}
	guarded, err := tenantFilter(c.name, "findOne", tenant, filter)
	if err != nil {
		return nil, err
	}
	doc, err := c.db.store.FindOne(ctx, c.name, guarded)
	if err != nil {
		return nil, err
	}
	return c.validate("findOne", tenant, doc)
}

// Find returns all matching documents. List reads rely on the injected
// filter alone; per-document re-validation is reserved for FindOne.
func (c *Collection) Find(ctx context.Context, filter bson.M, opts ...FindOption) ([]bson.M, error) {
	var fo FindOptions
	for _, opt := range opts {
		opt(&fo)
	}
	tenant, scoped, _, err := c.guard(ctx, "find")
	if err != nil {
		return nil, err
	}
	if !scoped {
		return c.db.store.Find(ctx, c.name, filter, fo)
	}
	guarded, err := tenantFilter(c.name, "find", tenant, filter)
	if err != nil {
		return nil, err
	}
	return c.db.store.Find(ctx, c.name, guarded, fo)
}

// Count counts matching documents within the active tenant.
func (c *Collection) Count(ctx context.Context, filter bson.M) (int64, error) {
	tenant, scoped, _, err := c.guard(ctx, "count")
	if err != nil {
		return 0, err
	}
	if !scoped {
		return c.db.store.Count(ctx, c.name, filter)
	}
	guarded, err := tenantFilter(c.name, "count", tenant, filter)
	if err != nil {
		return 0, err
	}
	return c.db.store.Count(ctx, c.name, guarded)
}

// Distinct returns the distinct values of field within the active tenant.
func (c *Collection) Distinct(ctx context.Context, field string, filter bson.M) ([]any, error) {
	tenant, scoped, _, err := c.guard(ctx, "distinct")
	if err != nil {
		return nil, err
	}
	if !scoped {
		return c.db.store.Distinct(ctx, c.name, field, filter)
	}
	guarded, err := tenantFilter(c.name, "distinct", tenant, filter)
	if err != nil {
		return nil, err
	}
	return c.db.store.Distinct(ctx, c.name, field, guarded)
}

// InsertOne stamps tenant identity and audit timestamps onto doc and stores
// it. The caller never sets created_at or updated_at.
func (c *Collection) InsertOne(ctx context.Context, doc bson.M) (any, error) {
	tenant, scoped, system, err := c.guard(ctx, "insert")
	if err != nil {
		return nil, err
	}
	if !scoped && !system {
		return c.db.store.InsertOne(ctx, c.name, doc)
	}
	stamped, err := stampInsert(c.name, tenant, system, doc, c.db.clock.Now())
	if err != nil {
		return nil, err
	}
	return c.db.store.InsertOne(ctx, c.name, stamped)
}

// InsertMany stamps every element with the same tenant context snapshot, so
// a batch can never straddle tenants.
func (c *Collection) InsertMany(ctx context.Context, docs []bson.M) ([]any, error) {
	tenant, scoped, system, err := c.guard(ctx, "insert")
	if err != nil {
		return nil, err
	}
	if !scoped && !system {
		return c.db.store.InsertMany(ctx, c.name, docs)
	}
	now := c.db.clock.Now()
	stamped := make([]bson.M, len(docs))
	for i, doc := range docs {
		stamped[i], err = stampInsert(c.name, tenant, system, doc, now)
		if err != nil {
			return nil, err
		}
	}
	return c.db.store.InsertMany(ctx, c.name, stamped)
}

// UpdateOne applies update to the first matching document of the active
// tenant, advancing updated_at.
func (c *Collection) UpdateOne(ctx context.Context, filter, update bson.M) (*UpdateResult, error) {
	guarded, stamped, err := c.prepareUpdate(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return c.db.store.UpdateOne(ctx, c.name, guarded, stamped)
}

// UpdateMany applies update to every matching document of the active tenant.
func (c *Collection) UpdateMany(ctx context.Context, filter, update bson.M) (*UpdateResult, error) {
	guarded, stamped, err := c.prepareUpdate(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return c.db.store.UpdateMany(ctx, c.name, guarded, stamped)
}

func (c *Collection) prepareUpdate(ctx context.Context, filter, update bson.M) (bson.M, bson.M, error) {
	tenant, scoped, system, err := c.guard(ctx, "update")
	if err != nil {
		return nil, nil, err
	}
	if !scoped && !system {
		return filter, update, nil
	}
	guarded := filter
	if scoped {
		guarded, err = tenantFilter(c.name, "update", tenant, filter)
		if err != nil {
			return nil, nil, err
		}
	}
	stamped, err := stampUpdate(c.name, tenant, system, update, c.db.clock.Now())
	if err != nil {
		return nil, nil, err
	}
	return guarded, stamped, nil
}

// ReplaceOne swaps a matching document of the active tenant for doc, with
// the same tenant rules as an insert.
func (c *Collection) ReplaceOne(ctx context.Context, filter, doc bson.M) (*UpdateResult, error) {
	tenant, scoped, system, err := c.guard(ctx, "replace")
	if err != nil {
		return nil, err
	}
	if !scoped && !system {
		return c.db.store.ReplaceOne(ctx, c.name, filter, doc)
	}
	guarded := filter
	if scoped {
		guarded, err = tenantFilter(c.name, "replace", tenant, filter)
		if err != nil {
			return nil, err
		}
	}
	stamped, err := stampReplace(c.name, tenant, system, doc, c.db.clock.Now())
	if err != nil {
		return nil, err
	}
	return c.db.store.ReplaceOne(ctx, c.name, guarded, stamped)
}

// DeleteOne removes the first matching document of the active tenant.
func (c *Collection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	tenant, scoped, _, err := c.guard(ctx, "delete")
	if err != nil {
		return 0, err
	}
	if !scoped {
		return c.db.store.DeleteOne(ctx, c.name, filter)
	}
	guarded, err := tenantFilter(c.name, "delete", tenant, filter)
	if err != nil {
		return 0, err
	}
	return c.db.store.DeleteOne(ctx, c.name, guarded)
}

// DeleteMany removes every matching document of the active tenant.
func (c *Collection) DeleteMany(ctx context.Context, filter bson.M) (int64, error) {
	tenant, scoped, _, err := c.guard(ctx, "delete")
	if err != nil {
		return 0, err
	}
	if !scoped {
		return c.db.store.DeleteMany(ctx, c.name, filter)
	}
	guarded, err := tenantFilter(c.name, "delete", tenant, filter)
	if err != nil {
		return 0, err
	}
	return c.db.store.DeleteMany(ctx, c.name, guarded)
}

// CreateIndex passes through to the store. Index management is structural,
// never tenant-filtered.
func (c *Collection) CreateIndex(ctx context.Context, keys bson.D, unique bool) (string, error) {
	return c.db.store.CreateIndex(ctx, c.name, keys, unique)
}

// DropIndex passes through to the store.
func (c *Collection) DropIndex(ctx context.Context, name string) error {
	return c.db.store.DropIndex(ctx, c.name, name)
}

// ListIndexes passes through to the store.
func (c *Collection) ListIndexes(ctx context.Context) ([]string, error) {
	return c.db.store.ListIndexes(ctx, c.name)
}
