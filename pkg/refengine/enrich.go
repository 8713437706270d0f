package refengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/Ramsey-B/refproxy/pkg/fanout"
	"github.com/Gobusters/ectologger"
)

// ErrNotFound is returned by a FetchByID implementation when the referent
// record does not exist; the enricher treats this as a silent skip.
var ErrNotFound = fmt.Errorf("referent not found")

// FetchByID fetches a single record of the given resource type by id. It
// returns ErrNotFound (or any error wrapping it) when the referent does
// not exist; any other error is treated the same way by the enricher,
// which never surfaces referent-fetch failures as fatal (spec §4.3).
type FetchByID func(ctx context.Context, resourceType, id string) (Record, error)

// fetchKey is the enricher's per-request cache key.
type fetchKey struct {
	resourceType string
	id           string
}

// Enricher implements C3. It caches FetchByID results within a single
// export request, keyed by (resource_type, id), and is safe to reuse
// across concurrently-enriched records within one request since the cache
// is guarded by a mutex.
type Enricher struct {
	fetch       FetchByID
	userConfig  LookupConfig
	logger      ectologger.Logger
	concurrency int

	mu    sync.Mutex
	cache map[fetchKey]cacheEntry
}

type cacheEntry struct {
	record Record
	err    error
}

// NewEnricher creates an Enricher. concurrency <= 0 uses fanout.DefaultConcurrency.
func NewEnricher(fetch FetchByID, userConfig LookupConfig, logger ectologger.Logger, concurrency int) *Enricher {
	return &Enricher{
		fetch:       fetch,
		userConfig:  userConfig,
		logger:      logger,
		concurrency: concurrency,
		cache:       make(map[fetchKey]cacheEntry),
	}
}

// fkField pairs a field name with its classification, for the fan-out below.
type fkField struct {
	name string
	kind FieldKind
	typ  string // resource type for external FKs
}

// Enrich implements C3's `enrich(records, fetch_by_id)` operation in place,
// mutating each record's `_original_id` and `_references`. Referent fetches
// for the FK fields of a single record are fanned out (bounded concurrency,
// spec §5); fetch failures are silently skipped per spec §4.3.
func (e *Enricher) Enrich(ctx context.Context, records []Record) {
	ctx, span := obs.StartSpan(ctx, "refengine.Enricher.Enrich")
	defer span.End()

	for _, r := range records {
		if r.OriginalID() == "" {
			if id, ok := r[FieldID].(string); ok {
				r[FieldOriginalID] = id
			}
		} else {
			r[FieldOriginalID] = r.OriginalID()
		}

		var fkFields []fkField
		for field, value := range r {
			if field == FieldReferences || field == FieldChildren {
				continue
			}
			c := Classify(field, value)
			switch c.Kind {
			case ExternalFK:
				if value == nil {
					continue
				}
				fkFields = append(fkFields, fkField{name: field, kind: ExternalFK, typ: c.ResourceType})
			case SelfFK:
				if value == nil {
					continue
				}
				fkFields = append(fkFields, fkField{name: field, kind: SelfFK})
			}
		}

		if len(fkFields) == 0 {
			continue
		}

		currentType := ""
		if len(fkFields) > 0 {
			// self-FK resource type is "current", read from the hint
			// the orchestrator stamps with WithResourceTypeHint before
			// enriching (see migration.Exporter); without a hint, self
			// references carry an empty resource_type.
			currentType = currentResourceType(r)
		}

		fanout.Run(ctx, fkFields, e.concurrency, func(ctx context.Context, f fkField) (struct{}, error) {
			switch f.kind {
			case SelfFK:
				id, _ := r[f.name].(string)
				r.SetReference(f.name, ReferenceMetadata{
					ResourceType: currentType,
					OriginalID:   id,
					LookupField:  FieldOriginalID,
					LookupValue:  id,
				})
				return struct{}{}, nil
			case ExternalFK:
				id, _ := r[f.name].(string)
				referent, err := e.fetchCached(ctx, f.typ, id)
				if err != nil {
					e.logger.WithContext(ctx).WithField("field", f.name).Debugf("enrichment fetch skipped: %v", err)
					return struct{}{}, nil
				}
				fields := LookupFieldsFor(f.typ, e.userConfig)
				lookupField, lookupValue, ok := SelectLookupValue(referent, fields)
				if !ok {
					return struct{}{}, nil
				}
				r.SetReference(f.name, ReferenceMetadata{
					ResourceType: f.typ,
					OriginalID:   id,
					LookupField:  lookupField,
					LookupValue:  lookupValue,
				})
			}
			return struct{}{}, nil
		})
	}
}

// fetchCached fetches a referent, serving from the per-request cache when
// available.
func (e *Enricher) fetchCached(ctx context.Context, resourceType, id string) (Record, error) {
	key := fetchKey{resourceType: resourceType, id: id}

	e.mu.Lock()
	if entry, ok := e.cache[key]; ok {
		e.mu.Unlock()
		return entry.record, entry.err
	}
	e.mu.Unlock()

	record, err := e.fetch(ctx, resourceType, id)

	e.mu.Lock()
	e.cache[key] = cacheEntry{record: record, err: err}
	e.mu.Unlock()

	return record, err
}

// currentResourceType is a best-effort hint used only to populate a
// self-FK's ReferenceMetadata.ResourceType; the enricher itself is never
// told its own resource type (spec's C3 signature takes only records and a
// fetcher), so callers that know the resource type stamp it via
// WithResourceTypeHint before enriching, and this reads that hint back.
func currentResourceType(r Record) string {
	if v, ok := r[hintField]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// hintField is an internal, non-reserved marker used to carry the
// resource-type hint through Enrich; it is never part of the public Record
// shape returned to callers and is removed by ClearResourceTypeHint before
// encoding. Orchestrators set it via WithResourceTypeHint.
const hintField = "__resource_type_hint"

// WithResourceTypeHint stamps every record with the resource type the
// caller fetched them from, so self-FK enrichment can report the correct
// `resource_type` in `_references`. The hint is removed again by
// ClearResourceTypeHint once enrichment completes.
func WithResourceTypeHint(records []Record, resourceType string) {
	for _, r := range records {
		r[hintField] = resourceType
	}
}

// ClearResourceTypeHint removes the internal hint field set by
// WithResourceTypeHint.
func ClearResourceTypeHint(records []Record) {
	for _, r := range records {
		delete(r, hintField)
	}
}
