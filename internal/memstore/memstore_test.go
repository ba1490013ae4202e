package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/pagelens/tenantdb"
)

func TestMatchOperators(t *testing.T) {
	doc := bson.M{"tenant_id": "T1", "views": 10, "tags": []any{"a", "b"}}

	cases := []struct {
		name   string
		filter bson.M
		want   bool
	}{
		{"empty filter matches", bson.M{}, true},
		{"equality", bson.M{"tenant_id": "T1"}, true},
		{"equality miss", bson.M{"tenant_id": "T2"}, false},
		{"absent field", bson.M{"owner": "x"}, false},
		{"exists true", bson.M{"tenant_id": bson.M{"$exists": true}}, true},
		{"exists false", bson.M{"owner": bson.M{"$exists": false}}, true},
		{"ne on present field", bson.M{"tenant_id": bson.M{"$ne": "T2"}}, true},
		{"ne hit", bson.M{"tenant_id": bson.M{"$ne": "T1"}}, false},
		{"ne on absent field", bson.M{"owner": bson.M{"$ne": "x"}}, true},
		{"in", bson.M{"tenant_id": bson.M{"$in": []any{"T1", "T2"}}}, true},
		{"in miss", bson.M{"tenant_id": bson.M{"$in": []any{"T2"}}}, false},
		{"lt", bson.M{"views": bson.M{"$lt": 20}}, true},
		{"gte", bson.M{"views": bson.M{"$gte": 10}}, true},
		{"gt miss", bson.M{"views": bson.M{"$gt": 10}}, false},
		{"combined", bson.M{"tenant_id": bson.M{"$exists": true, "$ne": "T2"}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, match(doc, tc.filter))
		})
	}
}

func TestApplyUpdate(t *testing.T) {
	t.Run("set and unset", func(t *testing.T) {
		doc := bson.M{"name": "old", "tmp": 1}
		changed, err := applyUpdate(doc, bson.M{
			"$set":   bson.M{"name": "new"},
			"$unset": bson.M{"tmp": ""},
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "new", doc["name"])
		assert.NotContains(t, doc, "tmp")
	})

	t.Run("set with identical value is not a change", func(t *testing.T) {
		doc := bson.M{"name": "same"}
		changed, err := applyUpdate(doc, bson.M{"$set": bson.M{"name": "same"}})
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("inc push pull", func(t *testing.T) {
		doc := bson.M{"views": 1, "tags": []any{"a", "b"}}
		changed, err := applyUpdate(doc, bson.M{
			"$inc":  bson.M{"views": 2},
			"$push": bson.M{"tags": "c"},
			"$pull": bson.M{"tags": "a"},
		})
		require.NoError(t, err)
		assert.True(t, changed)
		assert.EqualValues(t, 3, doc["views"])
		assert.Equal(t, []any{"b", "c"}, doc["tags"])
	})

	t.Run("unknown operator errors", func(t *testing.T) {
		_, err := applyUpdate(bson.M{}, bson.M{"$rename": bson.M{"a": "b"}})
		assert.Error(t, err)
	})
}

func TestCrudRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	id, err := s.InsertOne(ctx, "projects", bson.M{"name": "alpha"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.FindOne(ctx, "projects", bson.M{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "alpha", doc["name"])

	_, err = s.FindOne(ctx, "projects", bson.M{"_id": "nope"})
	assert.ErrorIs(t, err, tenantdb.ErrNotFound)

	res, err := s.UpdateOne(ctx, "projects", bson.M{"_id": id}, bson.M{"$set": bson.M{"name": "beta"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.ModifiedCount)

	n, err := s.DeleteMany(ctx, "projects", bson.M{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDumpAndFindReturnCopies(t *testing.T) {
	s := New()
	s.Seed("projects", bson.M{"_id": "p1", "meta": bson.M{"k": "v"}})
	ctx := context.Background()

	doc, err := s.FindOne(ctx, "projects", bson.M{"_id": "p1"})
	require.NoError(t, err)
	doc["meta"].(bson.M)["k"] = "mutated"

	again, err := s.FindOne(ctx, "projects", bson.M{"_id": "p1"})
	require.NoError(t, err)
	assert.Equal(t, "v", again["meta"].(bson.M)["k"])
}

func TestFindSortAndLimit(t *testing.T) {
	s := New()
	s.Seed("pages",
		bson.M{"_id": "a", "views": 3},
		bson.M{"_id": "b", "views": 1},
		bson.M{"_id": "c", "views": 2},
	)

	docs, err := s.Find(context.Background(), "pages", bson.M{}, tenantdb.FindOptions{
		Sort:  bson.D{{Key: "views", Value: 1}},
		Limit: 2,
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0]["_id"])
	assert.Equal(t, "c", docs[1]["_id"])
}

func TestAggregateStages(t *testing.T) {
	s := New()
	s.Seed("results",
		bson.M{"rule": "alt-text", "severity": "error"},
		bson.M{"rule": "alt-text", "severity": "error"},
		bson.M{"rule": "contrast", "severity": "warn"},
	)
	ctx := context.Background()

	t.Run("match then group", func(t *testing.T) {
		out, err := s.Aggregate(ctx, "results", []bson.D{
			{{Key: "$match", Value: bson.D{{Key: "severity", Value: "error"}}}},
			{{Key: "$group", Value: bson.D{
				{Key: "_id", Value: "$rule"},
				{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			}}},
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "alt-text", out[0]["_id"])
		assert.EqualValues(t, 2, out[0]["count"])
	})

	t.Run("count", func(t *testing.T) {
		out, err := s.Aggregate(ctx, "results", []bson.D{
			{{Key: "$count", Value: "total"}},
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.EqualValues(t, 3, out[0]["total"])
	})

	t.Run("sort and limit", func(t *testing.T) {
		out, err := s.Aggregate(ctx, "results", []bson.D{
			{{Key: "$sort", Value: bson.D{{Key: "rule", Value: 1}}}},
			{{Key: "$limit", Value: 1}},
		})
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "alt-text", out[0]["rule"])
	})

	t.Run("unsupported stage errors", func(t *testing.T) {
		_, err := s.Aggregate(ctx, "results", []bson.D{
			{{Key: "$lookup", Value: bson.D{}}},
		})
		assert.Error(t, err)
	})
}

func TestIndexBookkeeping(t *testing.T) {
	s := New()
	ctx := context.Background()

	name, err := s.CreateIndex(ctx, "projects", bson.D{{Key: "tenant_id", Value: 1}}, true)
	require.NoError(t, err)
	assert.Equal(t, "tenant_id_1", name)

	names, err := s.ListIndexes(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, []string{"_id_", "tenant_id_1"}, names)

	require.NoError(t, s.DropIndex(ctx, "projects", name))
	assert.Error(t, s.DropIndex(ctx, "projects", name))
}
