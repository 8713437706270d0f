// Package refengine implements the reference-resolution and
// tree-reconstruction engine: FK classification, lookup policy, reference
// enrichment, tree flatten/nest, topological sort, and the per-record FK
// resolver used on import.
package refengine

// Record is a schemaless key/value map, mirroring the JSON-shaped value the
// source and target REST endpoints exchange. Records are treated as opaque
// except for the reserved fields below.
type Record map[string]any

const (
	FieldID         = "id"
	FieldOriginalID = "_original_id"
	FieldReferences = "_references"
	FieldChildren   = "children"
	FieldParentID   = "parent_id"
	FieldParentUUID = "parent_uuid"
)

// ReferenceMetadata is one entry under a record's `_references[field]`.
type ReferenceMetadata struct {
	ResourceType string `json:"resource_type"`
	OriginalID   string `json:"original_id"`
	LookupField  string `json:"lookup_field"`
	LookupValue  any    `json:"lookup_value,omitempty"`
}

// OriginalID returns the record's `_original_id`, falling back to `id` when
// the enrichment step hasn't run yet.
func (r Record) OriginalID() string {
	if v, ok := r[FieldOriginalID]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := r[FieldID]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// ParentID returns the value of whichever self-FK field the record carries
// (`parent_id` takes precedence over `parent_uuid`), and the field name used.
func (r Record) ParentID() (string, string, bool) {
	if v, ok := r[FieldParentID]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, FieldParentID, true
		}
	}
	if v, ok := r[FieldParentUUID]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, FieldParentUUID, true
		}
	}
	return "", "", false
}

// HasSelfFK reports whether the record carries a non-empty self-FK field.
func (r Record) HasSelfFK() bool {
	_, _, ok := r.ParentID()
	return ok
}

// References returns the record's `_references` sidecar, decoded into
// ReferenceMetadata values, or nil if absent/malformed.
func (r Record) References() map[string]ReferenceMetadata {
	raw, ok := r[FieldReferences]
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		if typed, ok := raw.(map[string]ReferenceMetadata); ok {
			return typed
		}
		return nil
	}
	out := make(map[string]ReferenceMetadata, len(m))
	for field, v := range m {
		switch meta := v.(type) {
		case ReferenceMetadata:
			out[field] = meta
		case map[string]any:
			rm := ReferenceMetadata{}
			if s, ok := meta["resource_type"].(string); ok {
				rm.ResourceType = s
			}
			if s, ok := meta["original_id"].(string); ok {
				rm.OriginalID = s
			}
			if s, ok := meta["lookup_field"].(string); ok {
				rm.LookupField = s
			}
			rm.LookupValue = meta["lookup_value"]
			out[field] = rm
		}
	}
	return out
}

// SetReference writes a single `_references[field]` entry, creating the
// sidecar map if needed.
func (r Record) SetReference(field string, meta ReferenceMetadata) {
	raw, ok := r[FieldReferences]
	var sidecar map[string]any
	if ok {
		if m, ok := raw.(map[string]any); ok {
			sidecar = m
		}
	}
	if sidecar == nil {
		sidecar = make(map[string]any)
	}
	sidecar[field] = map[string]any{
		"resource_type": meta.ResourceType,
		"original_id":   meta.OriginalID,
		"lookup_field":  meta.LookupField,
		"lookup_value":  meta.LookupValue,
	}
	r[FieldReferences] = sidecar
}

// Clone returns a shallow copy of the record (sufficient for the engine's
// purposes, since field values other than nested maps/slices are treated
// opaquely and never mutated in place).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// StripReserved returns a copy of the record with the reserved sidecar
// fields removed, ready to be POSTed to a target endpoint. Per SPEC_FULL
// §12 this also strips the literal `id` field, since a target assigns its
// own identifiers on insertion.
func (r Record) StripReserved() Record {
	out := r.Clone()
	delete(out, FieldOriginalID)
	delete(out, FieldReferences)
	delete(out, FieldChildren)
	delete(out, FieldID)
	return out
}

// CloneRecords deep-copies a slice of records at the top level.
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
