// Package memstore is an in-memory tenantdb.Store used by the test suite,
// so the isolation layer can be exercised end to end without a MongoDB
// server. It implements the subset of query, update, and pipeline semantics
// the layer itself emits plus what realistic callers use; it is not a
// general MongoDB emulation.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pagelens/tenantdb"
)

// Store holds collections as ordered document slices. All methods deep-copy
// documents at the boundary so callers can never alias internal state.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
	indexes     map[string][]string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string][]bson.M),
		indexes:     make(map[string][]string),
	}
}

// Seed inserts documents directly, bypassing any guard. Tests use it to
// plant data across tenants or legacy documents without tenant_id.
func (s *Store) Seed(collection string, docs ...bson.M) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range docs {
		d := clone(doc)
		if _, ok := d["_id"]; !ok {
			d["_id"] = uuid.NewString()
		}
		s.collections[collection] = append(s.collections[collection], d)
	}
}

// Dump returns a copy of every document in a collection, for assertions.
func (s *Store) Dump(collection string) []bson.M {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	out := make([]bson.M, len(docs))
	for i, doc := range docs {
		out[i] = clone(doc)
	}
	return out
}

func (s *Store) FindOne(_ context.Context, collection string, filter bson.M) (bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.collections[collection] {
		if match(doc, filter) {
			return clone(doc), nil
		}
	}
	return nil, tenantdb.ErrNotFound
}

func (s *Store) Find(_ context.Context, collection string, filter bson.M, fo tenantdb.FindOptions) ([]bson.M, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []bson.M
	for _, doc := range s.collections[collection] {
		if match(doc, filter) {
			out = append(out, clone(doc))
		}
	}
	if fo.Sort != nil {
		sortDocs(out, fo.Sort)
	}
	if fo.Limit > 0 && int64(len(out)) > fo.Limit {
		out = out[:fo.Limit]
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, collection string, filter bson.M) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, doc := range s.collections[collection] {
		if match(doc, filter) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Distinct(_ context.Context, collection, field string, filter bson.M) ([]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []any
	for _, doc := range s.collections[collection] {
		if !match(doc, filter) {
			continue
		}
		v, ok := doc[field]
		if !ok {
			continue
		}
		seen := false
		for _, existing := range out {
			if equals(existing, v) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) InsertOne(_ context.Context, collection string, doc bson.M) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := clone(doc)
	if _, ok := d["_id"]; !ok {
		d["_id"] = uuid.NewString()
	}
	s.collections[collection] = append(s.collections[collection], d)
	return d["_id"], nil
}

func (s *Store) InsertMany(ctx context.Context, collection string, docs []bson.M) ([]any, error) {
	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		id, err := s.InsertOne(ctx, collection, doc)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) UpdateOne(_ context.Context, collection string, filter, update bson.M) (*tenantdb.UpdateResult, error) {
	return s.update(collection, filter, update, 1)
}

func (s *Store) UpdateMany(_ context.Context, collection string, filter, update bson.M) (*tenantdb.UpdateResult, error) {
	return s.update(collection, filter, update, -1)
}

func (s *Store) update(collection string, filter, update bson.M, limit int) (*tenantdb.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &tenantdb.UpdateResult{}
	for _, doc := range s.collections[collection] {
		if limit >= 0 && res.MatchedCount >= int64(limit) {
			break
		}
		if !match(doc, filter) {
			continue
		}
		res.MatchedCount++
		changed, err := applyUpdate(doc, update)
		if err != nil {
			return nil, err
		}
		if changed {
			res.ModifiedCount++
		}
	}
	return res, nil
}

func (s *Store) ReplaceOne(_ context.Context, collection string, filter, doc bson.M) (*tenantdb.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := &tenantdb.UpdateResult{}
	docs := s.collections[collection]
	for i, existing := range docs {
		if !match(existing, filter) {
			continue
		}
		replacement := clone(doc)
		replacement["_id"] = existing["_id"]
		docs[i] = replacement
		res.MatchedCount = 1
		res.ModifiedCount = 1
		break
	}
	return res, nil
}

func (s *Store) DeleteOne(_ context.Context, collection string, filter bson.M) (int64, error) {
	return s.delete(collection, filter, 1)
}

func (s *Store) DeleteMany(_ context.Context, collection string, filter bson.M) (int64, error) {
	return s.delete(collection, filter, -1)
}

func (s *Store) delete(collection string, filter bson.M, limit int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []bson.M
	var deleted int64
	for _, doc := range s.collections[collection] {
		if (limit < 0 || deleted < int64(limit)) && match(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

func (s *Store) CreateIndex(_ context.Context, collection string, keys bson.D, unique bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := indexName(keys)
	for _, existing := range s.indexes[collection] {
		if existing == name {
			return name, nil
		}
	}
	s.indexes[collection] = append(s.indexes[collection], name)
	return name, nil
}

func (s *Store) DropIndex(_ context.Context, collection, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.indexes[collection] {
		if existing == name {
			s.indexes[collection] = append(s.indexes[collection][:i], s.indexes[collection][i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memstore: index %s not found on %s", name, collection)
}

func (s *Store) ListIndexes(_ context.Context, collection string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{"_id_"}
	return append(names, s.indexes[collection]...), nil
}

func indexName(keys bson.D) string {
	name := ""
	for _, key := range keys {
		if name != "" {
			name += "_"
		}
		name += fmt.Sprintf("%s_%v", key.Key, key.Value)
	}
	return name
}

var _ tenantdb.Store = (*Store)(nil)
