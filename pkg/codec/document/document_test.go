package document

import (
	"testing"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_Encode_FlatModePreservesReferences(t *testing.T) {
	c := New(ModeFlat)
	records := []refengine.Record{{"id": "1", "_references": map[string]any{"company_id": map[string]any{"resource_type": "companies"}}}}

	data, err := c.Encode(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), "_references")
	assert.Contains(t, string(data), "companies")
}

func TestCodec_Encode_NestedModeProducesForestShape(t *testing.T) {
	c := New(ModeNested)
	records := []refengine.Record{
		{"id": "1", "_original_id": "1"},
		{"id": "2", "_original_id": "2", "parent_id": "1"},
	}
	data, err := c.Encode(records)
	require.NoError(t, err)
	assert.Contains(t, string(data), "children")
}

func TestCodec_Decode_FlatArray(t *testing.T) {
	c := New(ModeFlat)
	records, err := c.Decode([]byte(`[{"id":"1","name":"Alice"},{"id":"2","name":"Bob"}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0]["name"])
}

func TestCodec_Decode_NestedArrayIsFlattened(t *testing.T) {
	c := New(ModeFlat)
	records, err := c.Decode([]byte(`[{"id":"1","_original_id":"1","children":[{"id":"2","_original_id":"2"}]}]`))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[1]["parent_id"])
}

func TestCodec_Decode_MalformedJSON(t *testing.T) {
	c := New(ModeFlat)
	_, err := c.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestCodec_MediaTypeAndExtension(t *testing.T) {
	c := New(ModeFlat)
	assert.Equal(t, "application/json", c.MediaType())
	assert.Equal(t, "json", c.Extension())
}
