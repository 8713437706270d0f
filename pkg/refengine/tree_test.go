package refengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_SetsParentIDFromOriginalID(t *testing.T) {
	forest := []Record{
		{
			"id":           "1",
			"_original_id": "1",
			"children": []Record{
				{"id": "2", "_original_id": "2"},
			},
		},
	}

	flat := Flatten(forest)
	require.Len(t, flat, 2)
	assert.Equal(t, "1", flat[0]["id"])
	_, hasParent := flat[0][FieldParentID]
	assert.False(t, hasParent, "roots carry no parent_id")

	assert.Equal(t, "2", flat[1]["id"])
	assert.Equal(t, "1", flat[1][FieldParentID])
	_, hasChildren := flat[1][FieldChildren]
	assert.False(t, hasChildren)
}

func TestFlatten_PreOrderAcrossSiblingsAndMultipleRoots(t *testing.T) {
	forest := []Record{
		{"id": "root1", "_original_id": "root1", "children": []Record{
			{"id": "a", "_original_id": "a"},
			{"id": "b", "_original_id": "b"},
		}},
		{"id": "root2", "_original_id": "root2"},
	}

	flat := Flatten(forest)
	ids := make([]string, len(flat))
	for i, r := range flat {
		ids[i] = r["id"].(string)
	}
	assert.Equal(t, []string{"root1", "a", "b", "root2"}, ids)
}

func TestNest_GroupsChildrenUnderParent(t *testing.T) {
	flat := []Record{
		{"id": "1", "_original_id": "1"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
		{"id": "3", "_original_id": "3", "parent_id": "1"},
	}

	result := Nest(flat)
	require.False(t, result.Ambiguous)
	require.Len(t, result.Forest, 1)

	root := result.Forest[0]
	children, ok := root[FieldChildren].([]Record)
	require.True(t, ok)
	require.Len(t, children, 2)
	assert.Equal(t, "2", children[0]["id"])
	assert.Equal(t, "3", children[1]["id"])
}

func TestNest_DanglingParentBecomesRoot(t *testing.T) {
	flat := []Record{
		{"id": "1", "_original_id": "1", "parent_id": "missing"},
	}
	result := Nest(flat)
	assert.False(t, result.Ambiguous)
	require.Len(t, result.Forest, 1)
	assert.Equal(t, "1", result.Forest[0]["id"])
}

func TestNest_CycleReturnsAmbiguousUnchanged(t *testing.T) {
	flat := []Record{
		{"id": "1", "_original_id": "1", "parent_id": "2"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	result := Nest(flat)
	assert.True(t, result.Ambiguous)
	assert.Equal(t, flat, result.Forest)
}

func TestFlattenThenNest_RoundTripsSameShape(t *testing.T) {
	forest := []Record{
		{"id": "1", "_original_id": "1", "children": []Record{
			{"id": "2", "_original_id": "2"},
		}},
	}
	flat := Flatten(forest)
	result := Nest(flat)
	require.False(t, result.Ambiguous)
	require.Len(t, result.Forest, 1)
	children := result.Forest[0][FieldChildren].([]Record)
	require.Len(t, children, 1)
	assert.Equal(t, "2", children[0]["id"])
}
