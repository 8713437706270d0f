package refengine

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestResolver_SelfFK_ResolvesFromSessionMap(t *testing.T) {
	sessionMap := NewSessionIDMap()
	sessionMap.Set("source-parent", "target-parent")

	var lookupCalled atomic.Bool
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		lookupCalled.Store(true)
		return nil, nil
	}

	res := NewResolver(lookup, sessionMap, PolicySkip, PolicySkip, testLogger(), 0)
	r := Record{"id": "1", "_original_id": "1", "parent_id": "source-parent"}

	resolved, trace, err := res.ResolveRecord(context.Background(), r, 0)
	require.NoError(t, err)
	assert.False(t, lookupCalled.Load(), "self-FK resolution must not call lookup when the session map already has the mapping")
	assert.Equal(t, "target-parent", resolved["parent_id"])
	require.Len(t, trace.Fields, 1)
	assert.Equal(t, OutcomeResolved, trace.Fields[0].Outcome)
}

func TestResolver_ExternalFK_SingleCandidateResolves(t *testing.T) {
	sessionMap := NewSessionIDMap()
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		return []Record{{"id": "target-1"}}, nil
	}
	res := NewResolver(lookup, sessionMap, PolicySkip, PolicySkip, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}
	r.SetReference("company_id", ReferenceMetadata{ResourceType: "companies", OriginalID: "source-co", LookupField: "name", LookupValue: "Acme"})

	resolved, trace, err := res.ResolveRecord(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Equal(t, "target-1", resolved["company_id"])
	assert.Equal(t, OutcomeResolved, trace.Fields[0].Outcome)
}

func TestResolver_MissingReference_SkipPolicyNullsField(t *testing.T) {
	sessionMap := NewSessionIDMap()
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		return nil, nil
	}
	res := NewResolver(lookup, sessionMap, PolicySkip, PolicySkip, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}
	r.SetReference("company_id", ReferenceMetadata{ResourceType: "companies", OriginalID: "source-co", LookupField: "name", LookupValue: "Acme"})

	resolved, trace, err := res.ResolveRecord(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Nil(t, resolved["company_id"])
	assert.Equal(t, OutcomeMissing, trace.Fields[0].Outcome)
}

func TestResolver_MissingReference_FailPolicyReturnsEngineError(t *testing.T) {
	sessionMap := NewSessionIDMap()
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		return nil, nil
	}
	res := NewResolver(lookup, sessionMap, PolicySkip, PolicyFail, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}
	r.SetReference("company_id", ReferenceMetadata{ResourceType: "companies", OriginalID: "source-co", LookupField: "name", LookupValue: "Acme"})

	_, _, err := res.ResolveRecord(context.Background(), r, 3)
	require.Error(t, err)
	engErr, ok := IsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, KindMissingReference, engErr.Kind)
	require.NotNil(t, engErr.RecordIndex)
	assert.Equal(t, 3, *engErr.RecordIndex)
}

func TestResolver_AmbiguousReference_SkipPolicyNullsFieldAndCapsCandidates(t *testing.T) {
	sessionMap := NewSessionIDMap()
	candidates := []Record{{"id": "t1"}, {"id": "t2"}, {"id": "t3"}, {"id": "t4"}, {"id": "t5"}, {"id": "t6"}}
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		return candidates, nil
	}
	res := NewResolver(lookup, sessionMap, PolicySkip, PolicySkip, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}
	r.SetReference("company_id", ReferenceMetadata{ResourceType: "companies", OriginalID: "source-co", LookupField: "name", LookupValue: "Acme"})

	resolved, trace, err := res.ResolveRecord(context.Background(), r, 0)
	require.NoError(t, err)
	assert.Nil(t, resolved["company_id"])
	assert.Equal(t, OutcomeAmbiguous, trace.Fields[0].Outcome)
	assert.Len(t, trace.Fields[0].Candidates, 5, "candidates are capped at maxCandidates")
}

func TestResolver_AmbiguousReference_FailPolicyReturnsEngineError(t *testing.T) {
	sessionMap := NewSessionIDMap()
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		return []Record{{"id": "t1"}, {"id": "t2"}}, nil
	}
	res := NewResolver(lookup, sessionMap, PolicyFail, PolicySkip, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}
	r.SetReference("company_id", ReferenceMetadata{ResourceType: "companies", OriginalID: "source-co", LookupField: "name", LookupValue: "Acme"})

	_, _, err := res.ResolveRecord(context.Background(), r, 0)
	require.Error(t, err)
	engErr, ok := IsEngineError(err)
	require.True(t, ok)
	assert.Equal(t, KindAmbiguousReference, engErr.Kind)
}

func TestResolver_NoReferenceMetadata_CarriesValueThroughAsWarning(t *testing.T) {
	sessionMap := NewSessionIDMap()
	var lookupCalled atomic.Bool
	lookup := func(ctx context.Context, resourceType, field string, value any) ([]Record, error) {
		lookupCalled.Store(true)
		return nil, nil
	}
	res := NewResolver(lookup, sessionMap, PolicySkip, PolicySkip, testLogger(), 0)

	r := Record{"id": "1", "_original_id": "1", "company_id": "source-co"}

	resolved, trace, err := res.ResolveRecord(context.Background(), r, 0)
	require.NoError(t, err)
	assert.False(t, lookupCalled.Load(), "no metadata means no lookup should be attempted")
	assert.Equal(t, "source-co", resolved["company_id"])
	assert.Equal(t, OutcomeWarning, trace.Fields[0].Outcome)
}

func TestSessionIDMap_SetAndGet(t *testing.T) {
	m := NewSessionIDMap()
	_, ok := m.Get("missing")
	assert.False(t, ok)

	m.Set("src", "tgt")
	v, ok := m.Get("src")
	require.True(t, ok)
	assert.Equal(t, "tgt", v)

	snap := m.Snapshot()
	assert.Equal(t, map[string]string{"src": "tgt"}, snap)
}
