package refengine

// Flatten implements C4's `flatten(forest)` operation: depth-first
// pre-order traversal, setting `parent_id` on each child to the parent's
// `_original_id`, and removing `children` on emission.
func Flatten(forest []Record) []Record {
	var out []Record
	var visit func(node Record, parentID string, hasParent bool)
	visit = func(node Record, parentID string, hasParent bool) {
		flat := node.Clone()
		childrenRaw, hasChildren := flat[FieldChildren]
		delete(flat, FieldChildren)
		if hasParent {
			flat[FieldParentID] = parentID
		}
		out = append(out, flat)

		if !hasChildren {
			return
		}
		children, ok := childrenRaw.([]Record)
		if !ok {
			if anySlice, ok := childrenRaw.([]any); ok {
				for _, c := range anySlice {
					if cr, ok := c.(Record); ok {
						children = append(children, cr)
					} else if cm, ok := c.(map[string]any); ok {
						children = append(children, Record(cm))
					}
				}
			}
		}
		selfID := flat.OriginalID()
		for _, child := range children {
			visit(child, selfID, true)
		}
	}

	for _, root := range forest {
		visit(root, "", false)
	}
	return out
}

// NestResult is returned by Nest; Ambiguous is set when the input contains
// a cycle, per spec §4.4's precondition.
type NestResult struct {
	Forest    []Record
	Ambiguous bool
}

// Nest implements C4's `nest(flat_list)` operation: groups by `parent_id`,
// giving each record a `children` list. Roots are records whose
// `parent_id` is null/absent or references an id not present in the list.
// Sibling order follows input order. If the input contains a cycle, Nest
// returns the flat list unchanged with Ambiguous=true rather than looping
// forever or producing a malformed tree.
func Nest(flat []Record) NestResult {
	if HasCycle(flat) {
		return NestResult{Forest: flat, Ambiguous: true}
	}

	byID := make(map[string]Record, len(flat))
	nodes := make(map[string]Record, len(flat))
	for _, r := range flat {
		copy := r.Clone()
		copy[FieldChildren] = []Record{}
		id := copy.OriginalID()
		byID[id] = copy
		nodes[id] = copy
	}

	var roots []Record
	for _, r := range flat {
		id := r.OriginalID()
		node := nodes[id]
		parentID, _, hasParent := r.ParentID()
		if !hasParent || parentID == "" {
			roots = append(roots, node)
			continue
		}
		parent, ok := byID[parentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		children, _ := parent[FieldChildren].([]Record)
		parent[FieldChildren] = append(children, node)
	}

	return NestResult{Forest: roots}
}
