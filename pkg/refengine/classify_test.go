package refengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ScalarFields(t *testing.T) {
	assert.Equal(t, Scalar, Classify("id", "abc").Kind)
	assert.Equal(t, Scalar, Classify("_original_id", "abc").Kind)
	assert.Equal(t, Scalar, Classify("name", "Alice").Kind)
	assert.Equal(t, Scalar, Classify("age", 30).Kind)
}

func TestClassify_NonStringValueIsNeverFK(t *testing.T) {
	c := Classify("company_id", 42)
	assert.Equal(t, Scalar, c.Kind)
}

func TestClassify_SelfFK(t *testing.T) {
	assert.Equal(t, SelfFK, Classify("parent_id", "p-1").Kind)
	assert.Equal(t, SelfFK, Classify("parent_uuid", "p-1").Kind)
}

func TestClassify_ExternalFK_InfersPluralResourceType(t *testing.T) {
	c := Classify("company_id", "c-1")
	assert.Equal(t, ExternalFK, c.Kind)
	assert.Equal(t, "companys", c.ResourceType)
}

func TestClassify_ExternalFK_DoesNotDoublePluralize(t *testing.T) {
	c := Classify("status_uuid", "s-1")
	assert.Equal(t, ExternalFK, c.Kind)
	assert.Equal(t, "status", c.ResourceType)
}

func TestClassify_ExternalFK_AlreadyPluralPrefixIsUnchanged(t *testing.T) {
	c := Classify("categories_id", "cat-1")
	assert.Equal(t, "categories", c.ResourceType)
}

func TestClassifyRecord_SkipsReservedFields(t *testing.T) {
	r := Record{
		"id":          "1",
		"name":        "Alice",
		"company_id":  "c-1",
		"parent_id":   "p-1",
		"_references": map[string]any{},
		"children":    []Record{},
	}
	out := ClassifyRecord(r)
	_, hasRefs := out[FieldReferences]
	_, hasChildren := out[FieldChildren]
	assert.False(t, hasRefs)
	assert.False(t, hasChildren)
	assert.Equal(t, ExternalFK, out["company_id"].Kind)
	assert.Equal(t, SelfFK, out["parent_id"].Kind)
	_, hasName := out["name"]
	assert.False(t, hasName, "scalar fields are not included in the classification map")
}
