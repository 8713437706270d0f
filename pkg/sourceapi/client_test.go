package sourceapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/refproxy/pkg/httpclient"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
)

func newTestClient(forwardedHeaders map[string]string) *Client {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return New(httpclient.NewClient(httpclient.DefaultConfig(), logger), forwardedHeaders)
}

func TestClient_List_ReturnsRecordsAndForwardsHeaders(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1"},{"id":"2"}]`))
	}))
	defer srv.Close()

	c := newTestClient(map[string]string{"Authorization": "Bearer abc"})
	records, err := c.List(context.Background(), srv.URL+"/users")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestClient_List_NonSuccessStatusIsRejectedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(nil)
	_, err := c.List(context.Background(), srv.URL+"/users")
	require.Error(t, err)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusInternalServerError, rejected.StatusCode)
}

func TestClient_Get_404IsErrNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(nil)
	_, err := c.Get(context.Background(), srv.URL+"/users", "missing")
	assert.ErrorIs(t, err, refengine.ErrNotFound)
}

func TestClient_Get_ReturnsDecodedRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"42","name":"Alice"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	record, err := c.Get(context.Background(), srv.URL+"/users", "42")
	require.NoError(t, err)
	assert.Equal(t, "Alice", record["name"])
}

func TestClient_Filter_EncodesFieldValueAsQueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme", r.URL.Query().Get("name"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","name":"acme"}]`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	records, err := c.Filter(context.Background(), srv.URL+"/companies", "name", "acme")
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestClient_Create_PostsRecordAndReturnsCreated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"new-1","name":"Bob"}`))
	}))
	defer srv.Close()

	c := newTestClient(nil)
	created, err := c.Create(context.Background(), srv.URL+"/users", refengine.Record{"name": "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "new-1", created["id"])
}

func TestOutboundLimiter_NilLimiterIsANoop(t *testing.T) {
	var l *OutboundLimiter
	require.NoError(t, l.wait(context.Background()))
	l.observe(context.Background(), map[string]string{"X-RateLimit-Remaining": "0"})
}
