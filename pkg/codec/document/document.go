// Package document implements C8, the structured-document codec: a plain
// JSON-shaped record list, optionally nested into a nest()-produced forest.
package document

import (
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// Mode selects flat vs nested emission.
type Mode string

const (
	ModeFlat   Mode = "flat"
	ModeNested Mode = "nested"
)

// Codec implements codec.Codec for the document format.
type Codec struct {
	Mode Mode
}

func New(mode Mode) *Codec {
	return &Codec{Mode: mode}
}

func (c *Codec) MediaType() string { return "application/json" }
func (c *Codec) Extension() string { return "json" }

// Encode marshals the record list as-is in flat mode, or as the result of
// refengine.Nest in nested mode. Enrichment metadata (`_references`) is
// preserved in both modes per spec §4.8.
func (c *Codec) Encode(records []refengine.Record) ([]byte, error) {
	if c.Mode == ModeNested {
		result := refengine.Nest(records)
		return json.Marshal(result.Forest)
	}
	return json.Marshal(records)
}

// Decode accepts either a flat array or an array of nested records (any
// top-level record carrying a `children` field), normalizing to flat via
// refengine.Flatten when nesting is detected.
func (c *Codec) Decode(data []byte) ([]refengine.Record, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("document: malformed JSON body: %w", err)
	}

	records := make([]refengine.Record, len(raw))
	nested := false
	for i, m := range raw {
		records[i] = refengine.Record(m)
		if _, ok := m[refengine.FieldChildren]; ok {
			nested = true
		}
	}

	if nested {
		return refengine.Flatten(records), nil
	}
	return records, nil
}
