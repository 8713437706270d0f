package refengine

// CycleReport lists the node ids found to be part of a cycle by HasCycle
// or TopoSort.
type CycleReport struct {
	NodeIDs []string
}

// HasCycle reports whether the flat record list contains a parent-pointer
// cycle, without producing a full ordering. Used as Nest's precondition
// check (spec §4.4).
func HasCycle(flat []Record) bool {
	_, report := TopoSort(flat, true)
	return len(report.NodeIDs) > 0
}

// TopoSort implements C5. Kahn's algorithm over nodes keyed by
// `_original_id`, with an edge from parent to child when
// `child.parent_id == parent._original_id`. Records whose parent_id is
// null or refers to an id absent from the batch are roots (depth 0). Ties
// among zero-in-degree nodes break by original input order.
//
// When nodes remain with non-zero in-degree after the acyclic prefix is
// exhausted, those nodes are appended in input order.
// detectCycles controls only whether their ids are surfaced in the
// returned CycleReport; the ordering pass itself always runs, since
// self-FK resolution depends on parents preceding children regardless of
// whether the caller asked to be told about cycles.
func TopoSort(records []Record, detectCycles bool) ([]Record, CycleReport) {
	n := len(records)
	indexByID := make(map[string]int, n)
	order := make([]int, n) // original input index, by node index
	for i, r := range records {
		id := r.OriginalID()
		indexByID[id] = i
		order[i] = i
	}

	inDegree := make([]int, n)
	children := make([][]int, n)

	for i, r := range records {
		parentID, _, hasParent := r.ParentID()
		if !hasParent || parentID == "" {
			continue
		}
		parentIdx, ok := indexByID[parentID]
		if !ok {
			continue // dangling parent ref: treated as a root
		}
		inDegree[i]++
		children[parentIdx] = append(children[parentIdx], i)
	}

	// Queue holds zero-in-degree node indices, maintained in input order.
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := make([]bool, n)
	result := make([]Record, 0, n)

	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited[idx] {
			continue
		}
		visited[idx] = true
		result = append(result, records[idx])

		var newlyReady []int
		for _, childIdx := range children[idx] {
			inDegree[childIdx]--
			if inDegree[childIdx] == 0 {
				newlyReady = append(newlyReady, childIdx)
			}
		}
		// Insert newly-ready nodes keeping overall queue ordering stable
		// by original input index.
		queue = append(queue, newlyReady...)
		sortByInputOrder(queue)
	}

	if len(result) == n {
		return result, CycleReport{}
	}

	var cycleIDs []string
	for i := 0; i < n; i++ {
		if !visited[i] {
			result = append(result, records[i])
			cycleIDs = append(cycleIDs, records[i].OriginalID())
		}
	}

	if !detectCycles {
		return result, CycleReport{}
	}
	return result, CycleReport{NodeIDs: cycleIDs}
}

// sortByInputOrder performs an insertion sort of node indices, which are
// already input-ordered integers, so sorting them ascending is equivalent
// to restoring original input order.
func sortByInputOrder(idx []int) {
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j-1] > idx[j]; j-- {
			idx[j-1], idx[j] = idx[j], idx[j-1]
		}
	}
}
