package refengine

import (
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_AddRecordIndexAndFieldAppearInMessage(t *testing.T) {
	err := New(KindMissingReference, "no match found").AddRecordIndex(2).AddField("company_id")
	assert.Equal(t, "record[2] field 'company_id' : no match found", err.Error())
}

func TestError_WithoutContextReturnsBareMessage(t *testing.T) {
	err := New(KindDecodeError, "malformed body")
	assert.Equal(t, "malformed body", err.Error())
}

func TestError_ToHTTPError_MapsKindToStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindUpstreamUnavailable, http.StatusBadGateway},
		{KindDecodeError, http.StatusBadRequest},
		{KindAmbiguousReference, http.StatusBadRequest},
		{KindMissingReference, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindUpstreamRejected, http.StatusBadGateway},
	}
	for _, c := range cases {
		he := New(c.kind, "x").ToHTTPError()
		assert.Equal(t, c.status, httperror.GetStatusCode(he), "kind %s", c.kind)
	}
}

func TestError_ToHTTPError_CarriesMetadata(t *testing.T) {
	err := Newf(KindAmbiguousReference, "%d matches", 3).AddRecordIndex(1).AddField("company_id").AddCandidates([]Record{{"id": "t1"}})
	he := err.ToHTTPError()
	assert.Equal(t, string(KindAmbiguousReference), he.Meta["kind"])
	assert.Equal(t, 1, he.Meta["record_index"])
	assert.Equal(t, "company_id", he.Meta["field"])
	assert.NotNil(t, he.Meta["candidates"])
}

func TestIsEngineError(t *testing.T) {
	_, ok := IsEngineError(assertErr())
	assert.False(t, ok)

	e, ok := IsEngineError(New(KindCycleDetected, "cycle"))
	require.True(t, ok)
	assert.Equal(t, KindCycleDetected, e.Kind)
}

func assertErr() error {
	return &notAnEngineError{}
}

type notAnEngineError struct{}

func (e *notAnEngineError) Error() string { return "plain error" }
