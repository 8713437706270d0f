package refengine

import (
	"context"
	"sort"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/refproxy/pkg/fanout"
)

// Policy selects how the resolver terminates on an ambiguous or missing
// reference outcome, per spec §4.10.
type Policy string

const (
	PolicySkip Policy = "skip"
	PolicyFail Policy = "fail"
)

// Outcome is the terminal state of a single field's per-record resolution,
// per spec §8 invariant 5: exactly one outcome is recorded per FK field per
// record.
type Outcome string

const (
	OutcomeResolved  Outcome = "resolved"
	OutcomeMissing   Outcome = "missing"
	OutcomeAmbiguous Outcome = "ambiguous"
	OutcomeWarning   Outcome = "no_metadata"
)

// FieldResolution is one field's entry in a record's resolution trace.
type FieldResolution struct {
	Field      string
	Outcome    Outcome
	ResolvedID string
	Candidates []Record
}

// RecordTrace is the full per-record resolution trace referenced by the
// Import Report.
type RecordTrace struct {
	OriginalID string
	Fields     []FieldResolution
}

// SessionIDMap is the request-scoped source-id → target-id map, authoritative
// for self-FK resolution (spec §3's Session Id Map). It is written exactly
// once per key, by the single sequential task processing one import, so
// the lock here only guards against accidental concurrent reads from a
// fanned-out lookup and is never contended in the write path.
type SessionIDMap struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewSessionIDMap() *SessionIDMap {
	return &SessionIDMap{m: make(map[string]string)}
}

func (s *SessionIDMap) Get(sourceID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[sourceID]
	return v, ok
}

// Set writes sourceID → targetID. Per spec invariant 1, a key is written
// exactly once; callers must only call Set after a successful POST.
func (s *SessionIDMap) Set(sourceID, targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sourceID] = targetID
}

func (s *SessionIDMap) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.m))
	for k, v := range s.m {
		out[k] = v
	}
	return out
}

// LookupQuery issues `GET <base>/<resource_type>?<field>=<value>` against
// the import target and returns the matching records.
type LookupQuery func(ctx context.Context, resourceType, field string, value any) ([]Record, error)

// Resolver implements C10's per-record FK resolver state machine.
type Resolver struct {
	lookup        LookupQuery
	sessionMap    *SessionIDMap
	onAmbiguous   Policy
	onMissing     Policy
	logger        ectologger.Logger
	maxCandidates int
	concurrency   int
}

// NewResolver builds a Resolver whose field lookups fan out at most
// concurrency at a time within a single record (spec §5's bounded fan-out
// cap; clamped to fanout.DefaultConcurrency when <= 0). Cross-field
// concurrency is safe here: only self-FK fields touch the session map
// (read-only, via SessionIDMap's lock), and every other field's lookup is
// independent of its siblings until the results are applied to the record.
func NewResolver(lookup LookupQuery, sessionMap *SessionIDMap, onAmbiguous, onMissing Policy, logger ectologger.Logger, concurrency int) *Resolver {
	return &Resolver{
		lookup:        lookup,
		sessionMap:    sessionMap,
		onAmbiguous:   onAmbiguous,
		onMissing:     onMissing,
		logger:        logger,
		maxCandidates: 5,
		concurrency:   concurrency,
	}
}

// fieldJob is one field awaiting resolution, handed to fanout.Run.
type fieldJob struct {
	field string
	value any
	c     Classification
}

// fieldResult carries a resolved field's outcome plus what, if anything,
// should be written back onto the record — applied sequentially after the
// fan-out completes, since Go maps aren't safe for concurrent writes.
type fieldResult struct {
	fr        FieldResolution
	newValue  any
	shouldSet bool
}

// ResolveRecord runs the per-record protocol (spec §4.10 step 3). Every
// non-scalar field's lookup is independent of its siblings, so they fan out
// up to res.concurrency at a time (spec §5); results are applied back onto
// a clone of r, in stable field order, after the fan-out completes. It
// returns the resolved clone (FK values rewritten in place where resolution
// succeeded), the record's trace in stable field order, and a non-nil
// *Error only when a fail-policy field terminates the whole import.
func (res *Resolver) ResolveRecord(ctx context.Context, r Record, index int) (Record, RecordTrace, error) {
	resolved := r.Clone()
	trace := RecordTrace{OriginalID: r.OriginalID()}

	refs := r.References()

	fields := make([]string, 0, len(r))
	for field := range r {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var jobs []fieldJob
	for _, field := range fields {
		if field == FieldReferences || field == FieldChildren {
			continue
		}
		value := r[field]
		c := Classify(field, value)
		if c.Kind == Scalar || value == nil {
			continue
		}
		jobs = append(jobs, fieldJob{field: field, value: value, c: c})
	}

	results, errs := fanout.Run(ctx, jobs, res.concurrency, func(ctx context.Context, job fieldJob) (fieldResult, error) {
		return res.resolveField(ctx, job.field, job.value, job.c, refs)
	})

	for i, fres := range results {
		trace.Fields = append(trace.Fields, fres.fr)
		if err := errs[i]; err != nil {
			return resolved, trace, err.(*Error).AddRecordIndex(index)
		}
		if fres.shouldSet {
			resolved[fres.fr.Field] = fres.newValue
		}
	}

	return resolved, trace, nil
}

func (res *Resolver) resolveField(ctx context.Context, field string, value any, c Classification, refs map[string]ReferenceMetadata) (fieldResult, error) {
	sourceID, _ := value.(string)

	// S0: self-FK resolved from the session map bypasses lookup entirely.
	if c.Kind == SelfFK {
		if targetID, ok := res.sessionMap.Get(sourceID); ok {
			fr := FieldResolution{Field: field, Outcome: OutcomeResolved, ResolvedID: targetID}
			return fieldResult{fr: fr, newValue: targetID, shouldSet: true}, nil
		}
	}

	meta, hasMeta := refs[field]

	// S2: no enrichment metadata and (for self-FKs) no session mapping —
	// carry the value through verbatim and warn.
	if !hasMeta {
		res.logger.WithContext(ctx).WithField("field", field).Warnf("no reference metadata for field %q, carrying value through verbatim", field)
		fr := FieldResolution{Field: field, Outcome: OutcomeWarning, ResolvedID: sourceID}
		return fieldResult{fr: fr}, nil
	}

	// S1: lookup query.
	candidates, err := res.lookup(ctx, meta.ResourceType, meta.LookupField, meta.LookupValue)
	if err != nil {
		candidates = nil
	}

	switch len(candidates) {
	case 1:
		id, _ := candidates[0][FieldID].(string)
		fr := FieldResolution{Field: field, Outcome: OutcomeResolved, ResolvedID: id}
		return fieldResult{fr: fr, newValue: id, shouldSet: true}, nil

	case 0:
		fr := FieldResolution{Field: field, Outcome: OutcomeMissing}
		if res.onMissing == PolicyFail {
			return fieldResult{fr: fr}, Newf(KindMissingReference, "no match for field %q (resource_type=%s, %s=%v)", field, meta.ResourceType, meta.LookupField, meta.LookupValue).AddField(field)
		}
		return fieldResult{fr: fr, newValue: nil, shouldSet: true}, nil

	default:
		capped := candidates
		if len(capped) > res.maxCandidates {
			capped = capped[:res.maxCandidates]
		}
		fr := FieldResolution{Field: field, Outcome: OutcomeAmbiguous, Candidates: capped}
		if res.onAmbiguous == PolicyFail {
			return fieldResult{fr: fr}, Newf(KindAmbiguousReference, "%d matches for field %q (resource_type=%s, %s=%v)", len(candidates), field, meta.ResourceType, meta.LookupField, meta.LookupValue).AddField(field).AddCandidates(capped)
		}
		return fieldResult{fr: fr, newValue: nil, shouldSet: true}, nil
	}
}
