// Package mongostore adapts a MongoDB database to the tenantdb.Store
// interface. It adds nothing on top of the driver beyond mapping "no
// documents" to tenantdb.ErrNotFound; all isolation logic lives upstream.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/pagelens/tenantdb"
)

// Store implements tenantdb.Store on a *mongo.Database.
type Store struct {
	db *mongo.Database
}

// New wraps an already-connected database handle.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect dials uri and returns a Store bound to dbName, verifying the
// connection with a ping.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	return &Store{db: client.Database(dbName)}, nil
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) FindOne(ctx context.Context, collection string, filter bson.M) (bson.M, error) {
	var doc bson.M
	err := s.col(collection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, tenantdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter bson.M, fo tenantdb.FindOptions) ([]bson.M, error) {
	opts := options.Find()
	if fo.Sort != nil {
		opts.SetSort(fo.Sort)
	}
	if fo.Limit > 0 {
		opts.SetLimit(fo.Limit)
	}
	cursor, err := s.col(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	return s.col(collection).CountDocuments(ctx, filter)
}

func (s *Store) Distinct(ctx context.Context, collection, field string, filter bson.M) ([]any, error) {
	var values []any
	if err := s.col(collection).Distinct(ctx, field, filter).Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc bson.M) (any, error) {
	res, err := s.col(collection).InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (s *Store) InsertMany(ctx context.Context, collection string, docs []bson.M) ([]any, error) {
	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = doc
	}
	res, err := s.col(collection).InsertMany(ctx, payload)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter, update bson.M) (*tenantdb.UpdateResult, error) {
	res, err := s.col(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &tenantdb.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update bson.M) (*tenantdb.UpdateResult, error) {
	res, err := s.col(collection).UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	return &tenantdb.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (s *Store) ReplaceOne(ctx context.Context, collection string, filter, doc bson.M) (*tenantdb.UpdateResult, error) {
	res, err := s.col(collection).ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, err
	}
	return &tenantdb.UpdateResult{MatchedCount: res.MatchedCount, ModifiedCount: res.ModifiedCount}, nil
}

func (s *Store) DeleteOne(ctx context.Context, collection string, filter bson.M) (int64, error) {
	res, err := s.col(collection).DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	res, err := s.col(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) Aggregate(ctx context.Context, collection string, pipeline []bson.D) ([]bson.M, error) {
	cursor, err := s.col(collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *Store) CreateIndex(ctx context.Context, collection string, keys bson.D, unique bool) (string, error) {
	model := mongo.IndexModel{Keys: keys}
	if unique {
		model.Options = options.Index().SetUnique(true)
	}
	return s.col(collection).Indexes().CreateOne(ctx, model)
}

func (s *Store) DropIndex(ctx context.Context, collection, name string) error {
	return s.col(collection).Indexes().DropOne(ctx, name)
}

func (s *Store) ListIndexes(ctx context.Context, collection string) ([]string, error) {
	cursor, err := s.col(collection).Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var specs []bson.M
	if err := cursor.All(ctx, &specs); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		if name, ok := spec["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

var _ tenantdb.Store = (*Store)(nil)
