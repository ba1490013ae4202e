package tenantdb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Aggregate runs a pipeline against the collection. For tenant-scoped
// collections outside system mode, a $match on the active tenant is
// prepended to the caller's stages: filtering must happen before any later
// stage groups or joins across documents, so the tenant stage always comes
// first and is never appended.
func (c *Collection) Aggregate(ctx context.Context, pipeline []bson.D) ([]bson.M, error) {
	tenant, scoped, _, err := c.guard(ctx, "aggregate")
	if err != nil {
		return nil, err
	}
	if !scoped {
		return c.db.store.Aggregate(ctx, c.name, pipeline)
	}
	return c.db.store.Aggregate(ctx, c.name, augment(tenant, pipeline))
}

func augment(tenant string, pipeline []bson.D) []bson.D {
	match := bson.D{{Key: "$match", Value: bson.D{{Key: TenantField, Value: tenant}}}}
	out := make([]bson.D, 0, len(pipeline)+1)
	out = append(out, match)
	return append(out, pipeline...)
}
