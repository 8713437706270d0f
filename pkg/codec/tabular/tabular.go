// Package tabular implements C7, the flat columnar codec: a CSV-shaped
// record list with nested values JSON-encoded per cell.
package tabular

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// Codec implements codec.Codec for the tabular format. There is no
// third-party CSV library among the teacher's or the pack's dependencies;
// encoding/csv already handles the quoting spec §9's open question calls
// for (delimiter, quote character, newline), so this is a stdlib-only file
// by necessity rather than by omission — see DESIGN.md.
type Codec struct{}

func New() *Codec { return &Codec{} }

func (c *Codec) MediaType() string { return "text/csv" }
func (c *Codec) Extension() string { return "csv" }

// Encode writes a header row (the union of field names across all records,
// in order of first appearance; fields first seen in the same record are in
// alphabetical order) followed by one row per record. `children` is never
// emitted. Non-scalar cell values are JSON-encoded.
func (c *Codec) Encode(records []refengine.Record) ([]byte, error) {
	var columns []string
	seen := make(map[string]bool)
	for _, r := range records {
		fields := make([]string, 0, len(r))
		for field := range r {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if field == refengine.FieldChildren {
				continue
			}
			if !seen[field] {
				seen[field] = true
				columns = append(columns, field)
			}
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("tabular: writing header: %w", err)
	}

	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = encodeCell(r[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("tabular: writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("tabular: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeCell(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprintf("%v", s)
		}
		return string(b)
	}
}

// Decode parses a CSV body into records. Every cell is first tried as JSON;
// on failure the raw string is kept. Empty cells become null.
func (c *Codec) Decode(data []byte) ([]refengine.Record, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("tabular: malformed CSV body: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]refengine.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := refengine.Record{}
		for i, col := range header {
			if i >= len(row) {
				rec[col] = nil
				continue
			}
			rec[col] = decodeCell(row[i])
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeCell(cell string) any {
	if cell == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(cell), &v); err == nil {
		return v
	}
	return cell
}
