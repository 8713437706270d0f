package refengine

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind is the error taxonomy from spec §7 — kinds, not exceptions. Each
// kind carries its own HTTP status class and fatality rule, applied by the
// migration orchestrators rather than by this package itself.
type Kind string

const (
	KindUpstreamUnavailable Kind = "upstream_unavailable" // 502, fatal
	KindUpstreamRejected    Kind = "upstream_rejected"    // per-call, see caller
	KindDecodeError         Kind = "decode_error"         // 400, fatal
	KindAmbiguousReference  Kind = "ambiguous_reference"  // fatal iff policy=fail
	KindMissingReference    Kind = "missing_reference"    // fatal iff policy=fail
	KindCycleDetected       Kind = "cycle_detected"        // warning
	KindUnauthorized        Kind = "unauthorized"          // 401/403, immediate
)

// Error is the engine's chained error type, grounded on lotus's
// MappingError builder (.AddField().AddStep()-style chaining, with a
// ToHTTPError conversion at the HTTP boundary). It lets a failure deep in
// the resolver accumulate which record/field it occurred on before
// surfacing to the HTTP handler.
type Error struct {
	Kind        Kind
	Message     string
	RecordIndex *int
	Field       string
	Candidates  []Record
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) AddRecordIndex(i int) *Error {
	e.RecordIndex = &i
	return e
}

func (e *Error) AddField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) AddCandidates(candidates []Record) *Error {
	e.Candidates = candidates
	return e
}

func (e *Error) Error() string {
	var path string
	if e.RecordIndex != nil {
		path += fmt.Sprintf("record[%d] ", *e.RecordIndex)
	}
	if e.Field != "" {
		path += fmt.Sprintf("field '%s' ", e.Field)
	}
	if path == "" {
		return e.Message
	}
	return path + ": " + e.Message
}

// statusFor maps a Kind to its HTTP status class per spec §7.
func (e *Error) statusFor() int {
	switch e.Kind {
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindDecodeError:
		return http.StatusBadRequest
	case KindAmbiguousReference, KindMissingReference:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts the engine error to an ectoerror HTTP error, carrying
// the record index/field/kind as metadata for the response body.
func (e *Error) ToHTTPError() *httperror.HTTPError {
	he := httperror.NewHTTPError(e.statusFor(), e.Error()).AddMetaValue("kind", string(e.Kind))
	if e.RecordIndex != nil {
		he = he.AddMetaValue("record_index", *e.RecordIndex)
	}
	if e.Field != "" {
		he = he.AddMetaValue("field", e.Field)
	}
	if len(e.Candidates) > 0 {
		he = he.AddMetaValue("candidates", e.Candidates)
	}
	return he
}

// IsEngineError reports whether err is an *Error, and returns it.
func IsEngineError(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}
