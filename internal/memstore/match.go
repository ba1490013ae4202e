package memstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// match evaluates a filter document against a stored document. Supported
// per-field operators: $exists, $ne, $in, $lt, $lte, $gt, $gte; anything
// else is an equality match.
func match(doc, filter bson.M) bool {
	for field, cond := range filter {
		if ops, ok := asM(cond); ok && isOperatorDoc(ops) {
			if !matchOps(doc, field, ops) {
				return false
			}
			continue
		}
		value, present := doc[field]
		if !present || !equals(value, cond) {
			return false
		}
	}
	return true
}

func matchOps(doc bson.M, field string, ops bson.M) bool {
	value, present := doc[field]
	for op, want := range ops {
		switch op {
		case "$exists":
			if wantExists, _ := want.(bool); wantExists != present {
				return false
			}
		case "$ne":
			if present && equals(value, want) {
				return false
			}
		case "$in":
			if !present || !contains(want, value) {
				return false
			}
		case "$lt", "$lte", "$gt", "$gte":
			cmp, ok := compare(value, want)
			if !present || !ok {
				return false
			}
			switch op {
			case "$lt":
				ok = cmp < 0
			case "$lte":
				ok = cmp <= 0
			case "$gt":
				ok = cmp > 0
			case "$gte":
				ok = cmp >= 0
			}
			if !ok {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		return strings.HasPrefix(k, "$")
	}
	return false
}

func contains(list, value any) bool {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if equals(rv.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

func equals(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(a, b)
}

// compare orders two values when both are numbers, both strings, or both
// times; ok is false otherwise.
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// asM normalizes the document shapes bson values arrive in.
func asM(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func clone(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return clone(val)
	case map[string]any:
		return clone(bson.M(val))
	case bson.D:
		out := make(bson.D, len(val))
		for i, e := range val {
			out[i] = bson.E{Key: e.Key, Value: cloneValue(e.Value)}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	}
	return v
}

func sortDocs(docs []bson.M, by bson.D) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, key := range by {
			cmp, ok := compare(docs[i][key.Key], docs[j][key.Key])
			if !ok || cmp == 0 {
				continue
			}
			if dir, _ := toFloat(key.Value); dir < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// fieldRef resolves a "$field" reference used by $group expressions.
func fieldRef(doc bson.M, ref string) (any, bool) {
	if !strings.HasPrefix(ref, "$") {
		return nil, false
	}
	v, ok := doc[strings.TrimPrefix(ref, "$")]
	return v, ok
}

func errUnsupported(what string, v any) error {
	return fmt.Errorf("memstore: unsupported %s: %v", what, v)
}
