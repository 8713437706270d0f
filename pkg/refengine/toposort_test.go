package refengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopoSort_OrdersParentsBeforeChildren(t *testing.T) {
	records := []Record{
		{"id": "c", "_original_id": "c", "parent_id": "a"},
		{"id": "a", "_original_id": "a"},
		{"id": "b", "_original_id": "b", "parent_id": "a"},
	}

	sorted, report := TopoSort(records, true)
	require.Empty(t, report.NodeIDs)
	require.Len(t, sorted, 3)
	assert.Equal(t, "a", sorted[0]["id"], "the root with no parent must sort first")

	positions := map[string]int{}
	for i, r := range sorted {
		positions[r["id"].(string)] = i
	}
	assert.Less(t, positions["a"], positions["c"])
	assert.Less(t, positions["a"], positions["b"])
}

func TestTopoSort_TiesBreakByInputOrder(t *testing.T) {
	records := []Record{
		{"id": "z", "_original_id": "z"},
		{"id": "y", "_original_id": "y"},
		{"id": "x", "_original_id": "x"},
	}
	sorted, report := TopoSort(records, true)
	require.Empty(t, report.NodeIDs)
	ids := []string{sorted[0]["id"].(string), sorted[1]["id"].(string), sorted[2]["id"].(string)}
	assert.Equal(t, []string{"z", "y", "x"}, ids)
}

func TestTopoSort_DanglingParentIsTreatedAsRoot(t *testing.T) {
	records := []Record{
		{"id": "a", "_original_id": "a", "parent_id": "ghost"},
	}
	sorted, report := TopoSort(records, true)
	require.Empty(t, report.NodeIDs)
	require.Len(t, sorted, 1)
	assert.Equal(t, "a", sorted[0]["id"])
}

func TestTopoSort_DetectsCycleAndReportsParticipants(t *testing.T) {
	records := []Record{
		{"id": "1", "_original_id": "1", "parent_id": "2"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	_, report := TopoSort(records, true)
	assert.ElementsMatch(t, []string{"1", "2"}, report.NodeIDs)
}

func TestTopoSort_OrderingRunsRegardlessOfDetectCycles(t *testing.T) {
	records := []Record{
		{"id": "c", "_original_id": "c", "parent_id": "a"},
		{"id": "a", "_original_id": "a"},
	}
	sorted, report := TopoSort(records, false)
	assert.Empty(t, report.NodeIDs, "detectCycles=false suppresses the report but still orders parents first")
	assert.Equal(t, "a", sorted[0]["id"])
	assert.Equal(t, "c", sorted[1]["id"])
}

func TestTopoSort_DetectCyclesFalseSuppressesReportButStillAppendsCyclicNodes(t *testing.T) {
	records := []Record{
		{"id": "1", "_original_id": "1", "parent_id": "2"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	sorted, report := TopoSort(records, false)
	assert.Empty(t, report.NodeIDs)
	assert.Len(t, sorted, 2)
}

func TestHasCycle(t *testing.T) {
	acyclic := []Record{
		{"id": "1", "_original_id": "1"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	assert.False(t, HasCycle(acyclic))

	cyclic := []Record{
		{"id": "1", "_original_id": "1", "parent_id": "2"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	assert.True(t, HasCycle(cyclic))
}
