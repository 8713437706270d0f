// Package diagram implements C6, the textual diagram codec, in three
// dialects (flowchart, graph, mindmap) sharing Mermaid's node/edge syntax —
// the format this codec's `.mmd` extension is named for.
package diagram

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// Dialect selects one of the three inner syntaxes.
type Dialect string

const (
	DialectFlowchart Dialect = "flowchart"
	DialectGraph     Dialect = "graph"
	DialectMindmap   Dialect = "mindmap"
)

// descriptiveFields are the well-known descriptive fields appended to a
// node's label beyond its primary lookup field, generalized from the
// original mermaid exporter's `status`-only behavior.
var descriptiveFields = []string{"status", "state"}

// Codec implements codec.Codec for the diagram format.
type Codec struct {
	Dialect      Dialect
	ResourceType string
	LookupConfig refengine.LookupConfig
	ExportDate   string // pre-formatted; the codec performs no time I/O itself

	// IncludeLinks emits `click <nodeId> "<record_url>"` lines for
	// flowchart/graph nodes, linking each node back to its source record.
	// Defaults on; has no effect on mindmap (no click syntax there).
	IncludeLinks bool
	// RecordURLBase, when IncludeLinks is set, is joined with the record's
	// `_original_id` to form each click target: "<RecordURLBase>/<id>".
	RecordURLBase string
}

func New(dialect Dialect, resourceType string, lookupConfig refengine.LookupConfig, exportDate string) *Codec {
	return &Codec{Dialect: dialect, ResourceType: resourceType, LookupConfig: lookupConfig, ExportDate: exportDate, IncludeLinks: true}
}

func (c *Codec) MediaType() string { return "text/vnd.mermaid" }
func (c *Codec) Extension() string { return "mmd" }

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

func safeID(originalID string) string {
	id := nonAlnum.ReplaceAllString(originalID, "")
	if id == "" {
		id = "n"
	}
	return id
}

func (c *Codec) label(r refengine.Record) string {
	fields := refengine.LookupFieldsFor(c.ResourceType, c.LookupConfig)
	_, value, ok := refengine.SelectLookupValue(r, fields)
	if !ok {
		value = r["name"]
	}
	label := fmt.Sprintf("%v<br/>_original_id: %s", value, r.OriginalID())
	for _, f := range descriptiveFields {
		if v, ok := r[f]; ok && v != nil {
			label += fmt.Sprintf("<br/>%s: %v", f, v)
		}
	}
	return label
}

// Encode implements C6's emission contract. The diagram codec always emits
// hierarchically (spec §4.9), so it nests the incoming flat-or-nested
// record list itself before rendering.
func (c *Codec) Encode(records []refengine.Record) ([]byte, error) {
	result := refengine.Nest(records)
	forest := result.Forest

	var buf bytes.Buffer
	buf.WriteString("%%{init: {'theme':'base'}}%%\n")

	switch c.Dialect {
	case DialectMindmap:
		buf.WriteString("mindmap\n")
	case DialectGraph:
		buf.WriteString("graph TD\n")
	default:
		buf.WriteString("flowchart TD\n")
	}

	buf.WriteString(fmt.Sprintf("%%%% exported: %s\n", c.ExportDate))
	buf.WriteString(fmt.Sprintf("%%%% resource_type: %s\n", c.ResourceType))

	if result.Ambiguous {
		buf.WriteString("%% warning: cycle detected, rendering as flat roots\n")
	}

	if c.Dialect == DialectMindmap {
		c.writeMindmap(&buf, forest, 0)
		return buf.Bytes(), nil
	}

	c.writeNodes(&buf, forest)
	c.writeEdges(&buf, forest, "")

	return buf.Bytes(), nil
}

func (c *Codec) writeNodes(buf *bytes.Buffer, nodes []refengine.Record) {
	for _, n := range nodes {
		id := safeID(n.OriginalID())
		fmt.Fprintf(buf, "%s[\"%s\"]\n", id, c.label(n))
		if c.IncludeLinks && c.RecordURLBase != "" {
			fmt.Fprintf(buf, "click %s \"%s/%s\"\n", id, strings.TrimRight(c.RecordURLBase, "/"), n.OriginalID())
		}
		if children, ok := n[refengine.FieldChildren].([]refengine.Record); ok {
			c.writeNodes(buf, children)
		}
	}
}

func (c *Codec) writeEdges(buf *bytes.Buffer, nodes []refengine.Record, parentSafeID string) {
	for _, n := range nodes {
		nodeSafeID := safeID(n.OriginalID())
		if parentSafeID != "" {
			fmt.Fprintf(buf, "%s --> %s\n", parentSafeID, nodeSafeID)
		}
		if children, ok := n[refengine.FieldChildren].([]refengine.Record); ok {
			c.writeEdges(buf, children, nodeSafeID)
		}
	}
}

func (c *Codec) writeMindmap(buf *bytes.Buffer, nodes []refengine.Record, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		fmt.Fprintf(buf, "%s%s(%s)\n", indent, safeID(n.OriginalID()), c.label(n))
		if children, ok := n[refengine.FieldChildren].([]refengine.Record); ok {
			c.writeMindmap(buf, children, depth+1)
		}
	}
}

var (
	metaPattern = regexp.MustCompile(`^%%\s*(\w[\w_]*)\s*:\s*(.*)$`)
	edgePattern = regexp.MustCompile(`^(\S+)\s*-->\s*(\S+)`)
	// nodePattern matches `<safeId><open><label><close>` for any of the
	// three dialect shapes: ["..."], (...), {...}.
	nodePattern = regexp.MustCompile(`^(\w+)\s*([\[({])(.*)[\])}]\s*$`)
)

type parsedNode struct {
	label      string
	originalID string
}

// Decode implements C6's parsing contract: it is lenient about whitespace
// and dialect-specific node shapes, tolerates optional metadata comments,
// and derives parent relationships either from explicit edge lines
// (flowchart/graph) or indentation (mindmap).
func (c *Codec) Decode(data []byte) ([]refengine.Record, error) {
	lines := strings.Split(string(data), "\n")

	nodes := make(map[string]*parsedNode)
	nodeOrder := []string{}
	parentOf := make(map[string]string)

	// mindmap: track the last node id seen at each indentation depth.
	lastAtDepth := map[int]string{}
	mindmapCounter := 0

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "%%{") {
			continue
		}
		if m := metaPattern.FindStringSubmatch(trimmed); m != nil {
			continue // metadata comments are parsed-if-present but carry no record data
		}
		switch trimmed {
		case "flowchart TD", "graph TD", "mindmap", "flowchart TB", "graph TB":
			continue
		}
		if strings.HasPrefix(trimmed, "click ") {
			continue // click handlers carry no record data; see SPEC_FULL §12
		}

		if m := edgePattern.FindStringSubmatch(trimmed); m != nil {
			parentOf[m[2]] = m[1]
			continue
		}

		if m := nodePattern.FindStringSubmatch(trimmed); m != nil {
			safeID := m[1]
			label := strings.Trim(m[3], `"`)
			pn := parseLabel(label)
			if pn.originalID == "" {
				pn.originalID = safeID
			}
			if c.Dialect == DialectMindmap {
				// Per SPEC_FULL §12, the mindmap dialect never recovers
				// `_original_id` from content: it always assigns fresh
				// sequential ids, unlike flowchart/graph.
				pn.originalID = fmt.Sprintf("node-%d", mindmapCounter)
				mindmapCounter++
			}
			if _, exists := nodes[safeID]; !exists {
				nodeOrder = append(nodeOrder, safeID)
			}
			nodes[safeID] = pn

			// Mindmap indentation: leading spaces / 2 = depth.
			indent := len(line) - len(strings.TrimLeft(line, " "))
			depth := indent / 2
			if depth > 0 {
				if parentID, ok := lastAtDepth[depth-1]; ok {
					parentOf[safeID] = parentID
				}
			}
			lastAtDepth[depth] = safeID
			continue
		}
	}

	records := make([]refengine.Record, 0, len(nodeOrder))
	for _, safeID := range nodeOrder {
		pn := nodes[safeID]
		rec := refengine.Record{
			refengine.FieldOriginalID: pn.originalID,
			"name":                    pn.label,
		}
		if parentSafeID, ok := parentOf[safeID]; ok {
			if parentNode, ok := nodes[parentSafeID]; ok {
				rec[refengine.FieldParentID] = parentNode.originalID
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// parseLabel splits a rendered label on `<br/>`. A segment of the form
// `_original_id: <value>` supplies the node's original id; absent that
// segment, the safeId itself is used (assigned by the caller).
func parseLabel(label string) *parsedNode {
	segments := strings.Split(label, "<br/>")
	pn := &parsedNode{label: strings.TrimSpace(segments[0])}
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if strings.HasPrefix(seg, "_original_id:") {
			pn.originalID = strings.TrimSpace(strings.TrimPrefix(seg, "_original_id:"))
		}
	}
	return pn
}
