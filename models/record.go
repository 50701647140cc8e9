package models

// Record is the dynamic field set of a single entity row. The engine is
// generic over entity types (works, authors, annotations, review cards,
// blobs, ...), so rows are carried as loosely typed field maps and only the
// id field named by the owning [EntityType] is interpreted.
type Record map[string]any

// ID returns the record's identifier under the given id field name.
// The second return value is false when the field is missing or not a string.
func (r Record) ID(idField string) (string, bool) {
	v, ok := r[idField]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Clone returns a shallow copy of the record. Nested values are shared;
// callers that mutate nested structures must copy them first.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
