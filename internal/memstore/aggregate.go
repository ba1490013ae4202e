package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Aggregate executes a pipeline. Supported stages: $match, $group (with
// $sum accumulators), $sort, $limit, $count.
func (s *Store) Aggregate(_ context.Context, collection string, pipeline []bson.D) ([]bson.M, error) {
	s.mu.RLock()
	docs := make([]bson.M, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		docs = append(docs, clone(doc))
	}
	s.mu.RUnlock()

	for _, stage := range pipeline {
		if len(stage) != 1 {
			return nil, errUnsupported("pipeline stage", stage)
		}
		op := stage[0]
		var err error
		switch op.Key {
		case "$match":
			docs, err = stageMatch(docs, op.Value)
		case "$group":
			docs, err = stageGroup(docs, op.Value)
		case "$sort":
			docs, err = stageSort(docs, op.Value)
		case "$limit":
			docs, err = stageLimit(docs, op.Value)
		case "$count":
			name, ok := op.Value.(string)
			if !ok {
				return nil, errUnsupported("$count argument", op.Value)
			}
			docs = []bson.M{{name: int64(len(docs))}}
		default:
			err = errUnsupported("pipeline stage", op.Key)
		}
		if err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func stageMatch(docs []bson.M, arg any) ([]bson.M, error) {
	filter, ok := asM(arg)
	if !ok {
		return nil, errUnsupported("$match argument", arg)
	}
	var out []bson.M
	for _, doc := range docs {
		if match(doc, filter) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func stageGroup(docs []bson.M, arg any) ([]bson.M, error) {
	spec, ok := asM(arg)
	if !ok {
		return nil, errUnsupported("$group argument", arg)
	}
	type bucket struct {
		key any
		doc bson.M
	}
	var buckets []*bucket
	find := func(key any) *bucket {
		for _, b := range buckets {
			if equals(b.key, key) {
				return b
			}
		}
		b := &bucket{key: key, doc: bson.M{"_id": key}}
		buckets = append(buckets, b)
		return b
	}
	for _, doc := range docs {
		var key any
		if ref, ok := spec["_id"].(string); ok {
			key, _ = fieldRef(doc, ref)
		} else {
			key = spec["_id"]
		}
		b := find(key)
		for field, expr := range spec {
			if field == "_id" {
				continue
			}
			acc, ok := asM(expr)
			if !ok {
				return nil, errUnsupported("$group accumulator", expr)
			}
			sumArg, ok := acc["$sum"]
			if !ok {
				return nil, errUnsupported("$group accumulator", expr)
			}
			current, _ := toFloat(b.doc[field])
			switch v := sumArg.(type) {
			case string:
				f, _ := toFloat(mustRef(doc, v))
				b.doc[field] = current + f
			default:
				f, ok := toFloat(v)
				if !ok {
					return nil, errUnsupported("$sum argument", v)
				}
				b.doc[field] = current + f
			}
		}
	}
	out := make([]bson.M, len(buckets))
	for i, b := range buckets {
		out[i] = b.doc
	}
	return out, nil
}

func mustRef(doc bson.M, ref string) any {
	v, _ := fieldRef(doc, ref)
	return v
}

func stageSort(docs []bson.M, arg any) ([]bson.M, error) {
	spec, ok := arg.(bson.D)
	if !ok {
		m, okM := asM(arg)
		if !okM {
			return nil, errUnsupported("$sort argument", arg)
		}
		for k, v := range m {
			spec = append(spec, bson.E{Key: k, Value: v})
		}
	}
	sortDocs(docs, spec)
	return docs, nil
}

func stageLimit(docs []bson.M, arg any) ([]bson.M, error) {
	n, ok := toFloat(arg)
	if !ok {
		return nil, errUnsupported("$limit argument", arg)
	}
	if int(n) < len(docs) {
		docs = docs[:int(n)]
	}
	return docs, nil
}
