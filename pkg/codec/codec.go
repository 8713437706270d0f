// Package codec defines the shared capability set implemented by the three
// record-set codecs (document, tabular, diagram): encode a record list to
// bytes, decode bytes back to a record list, and report the media type and
// file extension used when composing an export's Content-Disposition
// filename. A variant tag selects which codec backs a request; the diagram
// codec additionally takes a dialect tag for its three inner syntaxes.
package codec

import (
	"fmt"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// Format identifies which codec a request selected.
type Format string

const (
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatMermaid Format = "mermaid"
)

// Codec is the common capability set from spec §9's "Polymorphism over
// codec dialects" design note.
type Codec interface {
	Encode(records []refengine.Record) ([]byte, error)
	Decode(data []byte) ([]refengine.Record, error)
	MediaType() string
	Extension() string
}

// DecodeError is returned by a codec's Decode when the body is malformed,
// carrying line/column information where available (spec §7's DecodeError
// kind).
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d, column %d)", e.Message, e.Line, e.Column)
	}
	return e.Message
}
