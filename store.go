package tenantdb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store is the raw, unguarded surface of the underlying document store. The
// isolation layer rewrites every request before it reaches a Store and never
// adds retry policy of its own: store errors pass through unmodified, except
// that implementations report a missing document as ErrNotFound.
//
// The mongostore package adapts *mongo.Database; internal/memstore provides
// an in-memory implementation for tests.
type Store interface {
	FindOne(ctx context.Context, collection string, filter bson.M) (bson.M, error)
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]bson.M, error)
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
	Distinct(ctx context.Context, collection, field string, filter bson.M) ([]any, error)

	InsertOne(ctx context.Context, collection string, doc bson.M) (any, error)
	InsertMany(ctx context.Context, collection string, docs []bson.M) ([]any, error)
	UpdateOne(ctx context.Context, collection string, filter, update bson.M) (*UpdateResult, error)
	UpdateMany(ctx context.Context, collection string, filter, update bson.M) (*UpdateResult, error)
	ReplaceOne(ctx context.Context, collection string, filter, doc bson.M) (*UpdateResult, error)
	DeleteOne(ctx context.Context, collection string, filter bson.M) (int64, error)
	DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error)

	Aggregate(ctx context.Context, collection string, pipeline []bson.D) ([]bson.M, error)

	CreateIndex(ctx context.Context, collection string, keys bson.D, unique bool) (string, error)
	DropIndex(ctx context.Context, collection, name string) error
	ListIndexes(ctx context.Context, collection string) ([]string, error)
}

// UpdateResult mirrors the driver's update counters.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// FindOptions narrows a list read. The zero value means no sort and no limit.
type FindOptions struct {
	Sort  bson.D
	Limit int64
}

// FindOption configures a Find call.
type FindOption func(*FindOptions)

// WithSort orders results by the given sort document.
func WithSort(sort bson.D) FindOption {
	return func(o *FindOptions) { o.Sort = sort }
}

// WithLimit caps the number of returned documents.
func WithLimit(n int64) FindOption {
	return func(o *FindOptions) { o.Limit = n }
}
