package memstore

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// applyUpdate mutates doc in place. Supported operators: $set, $unset,
// $inc, $push, $pull. Returns whether the document actually changed.
func applyUpdate(doc, update bson.M) (bool, error) {
	changed := false
	for op, arg := range update {
		fields, ok := asM(arg)
		if !ok {
			return changed, errUnsupported("update argument", arg)
		}
		switch op {
		case "$set":
			for field, value := range fields {
				old, present := doc[field]
				if !present || !equals(old, value) {
					doc[field] = cloneValue(value)
					changed = true
				}
			}
		case "$unset":
			for field := range fields {
				if _, present := doc[field]; present {
					delete(doc, field)
					changed = true
				}
			}
		case "$inc":
			for field, value := range fields {
				delta, ok := toFloat(value)
				if !ok {
					return changed, errUnsupported("$inc value", value)
				}
				current, _ := toFloat(doc[field])
				doc[field] = current + delta
				changed = true
			}
		case "$push":
			for field, value := range fields {
				list, _ := doc[field].([]any)
				doc[field] = append(list, cloneValue(value))
				changed = true
			}
		case "$pull":
			for field, value := range fields {
				list, ok := doc[field].([]any)
				if !ok {
					continue
				}
				kept := list[:0]
				for _, item := range list {
					if !equals(item, value) {
						kept = append(kept, item)
					}
				}
				if len(kept) != len(list) {
					doc[field] = append([]any(nil), kept...)
					changed = true
				}
			}
		default:
			return changed, errUnsupported("update operator", op)
		}
	}
	return changed, nil
}
