package tenantdb

import (
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Field names stamped onto every tenant-scoped document.
const (
	TenantField  = "tenant_id"
	CreatedField = "created_at"
	UpdatedField = "updated_at"
)

// tenantFilter merges {tenant_id: tenant} into a copy of the caller's
// filter. A caller filter that already pins tenant_id to anything other than
// the active tenant is a programming error and fails loudly rather than
// being silently overridden.
func tenantFilter(collection, op, tenant string, filter bson.M) (bson.M, error) {
	out := make(bson.M, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	if existing, ok := out[TenantField]; ok {
		s, isString := existing.(string)
		if !isString || s != tenant {
			return nil, &ViolationError{
				Collection: collection,
				Op:         op,
				Tenant:     tenant,
				Found:      asString(existing),
				kind:       ErrConflictingTenantFilter,
			}
		}
	}
	out[TenantField] = tenant
	return out, nil
}

// stampInsert returns a copy of doc carrying tenant identity and audit
// timestamps. tenant_id is assigned exactly once: a document that already
// carries the active tenant is left alone, a document carrying another
// tenant is rejected. In system mode the caller must supply tenant_id
// explicitly; there is no tenant to default to.
func stampInsert(collection, tenant string, system bool, doc bson.M, now time.Time) (bson.M, error) {
	out := make(bson.M, len(doc)+3)
	for k, v := range doc {
		out[k] = v
	}
	existing, has := out[TenantField]
	switch {
	case system:
		if s, ok := existing.(string); !has || !ok || s == "" {
			return nil, &ViolationError{
				Collection: collection,
				Op:         "insert",
				kind:       ErrNoTenantContext,
			}
		}
	case has:
		if s, ok := existing.(string); !ok || s != tenant {
			return nil, &ViolationError{
				Collection: collection,
				Op:         "insert",
				Tenant:     tenant,
				Found:      asString(existing),
				kind:       ErrConflictingTenantFilter,
			}
		}
	default:
		out[TenantField] = tenant
	}
	if _, ok := out[CreatedField]; !ok {
		out[CreatedField] = now
	}
	out[UpdatedField] = now
	return out, nil
}

// stampUpdate folds {$set: {updated_at: now}} alongside the caller's update
// operators, so partial updates ($inc, $push, $pull) still advance
// updated_at without the engine touching the caller's own fields. Every
// top-level operator takes a document argument; they are normalized to
// bson.M copies, so callers may supply bson.D (the usual driver idiom) and
// the engine never mutates caller state. Any operator touching tenant_id is
// rejected outside system mode, $set/$setOnInsert of the active tenant's
// own id excepted.
func stampUpdate(collection, tenant string, system bool, update bson.M, now time.Time) (bson.M, error) {
	out := make(bson.M, len(update)+1)
	for op, arg := range update {
		fields, ok := asM(arg)
		if !ok {
			return nil, fmt.Errorf("tenantdb: %s update: operator %s has non-document argument %T",
				collection, op, arg)
		}
		out[op] = fields
	}
	if !system {
		for op, arg := range out {
			fields := arg.(bson.M)
			tampered := false
			switch op {
			case "$set", "$setOnInsert":
				if v, has := fields[TenantField]; has {
					s, isString := v.(string)
					tampered = !isString || s != tenant
				}
			case "$rename":
				// both renaming tenant_id away and renaming onto it
				if _, has := fields[TenantField]; has {
					tampered = true
				}
				for _, target := range fields {
					if s, ok := target.(string); ok && s == TenantField {
						tampered = true
					}
				}
			default:
				if _, has := fields[TenantField]; has {
					tampered = true
				}
			}
			if tampered {
				return nil, &ViolationError{
					Collection: collection,
					Op:         "update",
					Tenant:     tenant,
					Found:      asString(fields[TenantField]),
					kind:       ErrConflictingTenantFilter,
				}
			}
		}
	}
	set, ok := out["$set"].(bson.M)
	if !ok {
		set = bson.M{}
	}
	set[UpdatedField] = now
	out["$set"] = set
	return out, nil
}

// asM normalizes the document shapes an operator argument arrives in,
// always returning a fresh map.
func asM(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		out := make(bson.M, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case map[string]any:
		out := make(bson.M, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, true
	case bson.D:
		out := make(bson.M, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

// stampReplace prepares a full-document replacement: same tenant rules as an
// insert, with created_at preserved only when the replacement carries it.
func stampReplace(collection, tenant string, system bool, doc bson.M, now time.Time) (bson.M, error) {
	out, err := stampInsert(collection, tenant, system, doc, now)
	if err != nil {
		var verr *ViolationError
		if errors.As(err, &verr) {
			verr.Op = "replace"
		}
		return nil, err
	}
	return out, nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
