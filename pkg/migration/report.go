// Package migration implements C9 (Export Orchestrator) and C10 (Import
// Orchestrator): the two operations the HTTP surface exposes, composing
// refengine, codec, and sourceapi into the end-to-end `GET /export` and
// `POST /import` behavior of spec §4.9-4.10.
package migration

import (
	"time"

	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

// ReportError is one fatal or per-record error surfaced in an Import
// Report, per spec §3.
type ReportError struct {
	RecordIndex *int   `json:"record_index,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Message     string `json:"message"`
}

// Report is the Import Report aggregation from spec §3: totals, resolution
// outcome counts, the complete session id map, per-record traces, errors,
// warnings, and wall-clock duration.
type Report struct {
	Total        int `json:"total"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
	AutoResolved int `json:"auto_resolved"`
	Ambiguous    int `json:"ambiguous"`
	Missing      int `json:"missing"`

	SessionIDMap map[string]string        `json:"session_id_map"`
	Traces       []refengine.RecordTrace   `json:"resolution_traces"`
	Errors       []ReportError             `json:"errors,omitempty"`
	Warnings     []string                  `json:"warnings,omitempty"`
	CycleReport  *refengine.CycleReport    `json:"cycle_report,omitempty"`

	DurationMs int64 `json:"duration_ms"`
}

// newReport seeds an empty report for total records n.
func newReport(n int) *Report {
	return &Report{
		Total:        n,
		SessionIDMap: make(map[string]string),
	}
}

// tallyTrace folds one record's field-resolution trace into the report's
// outcome counters, per spec §8 invariant 5 (exactly one outcome per FK
// field per record).
func (rep *Report) tallyTrace(trace refengine.RecordTrace) {
	for _, f := range trace.Fields {
		switch f.Outcome {
		case refengine.OutcomeResolved:
			rep.AutoResolved++
		case refengine.OutcomeAmbiguous:
			rep.Ambiguous++
		case refengine.OutcomeMissing:
			rep.Missing++
		}
	}
	rep.Traces = append(rep.Traces, trace)
}

func (rep *Report) addError(index *int, kind, message string) {
	rep.Errors = append(rep.Errors, ReportError{RecordIndex: index, Kind: kind, Message: message})
}

func (rep *Report) addWarning(message string) {
	rep.Warnings = append(rep.Warnings, message)
}

func (rep *Report) finish(start time.Time) *Report {
	rep.DurationMs = time.Since(start).Milliseconds()
	return rep
}
