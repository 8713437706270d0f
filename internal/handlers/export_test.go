package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/refproxy/pkg/httpclient"
	"github.com/Ramsey-B/refproxy/pkg/migration"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestExportHandler_Handle_StreamsUpstreamRecordsAsAttachment(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{"id": "1", "name": "Alice"}})
	}))
	defer upstream.Close()

	httpFactory := func(c echo.Context) *sourceapi.Client {
		return sourceapi.New(httpclient.NewClient(httpclient.DefaultConfig(), testLogger()), nil)
	}
	newExporter := func(client *sourceapi.Client) *migration.Exporter {
		return migration.NewExporter(client, testLogger(), nil)
	}
	h := NewExportHandler(httpFactory, newExporter, testLogger(), "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?url="+upstream.URL+"/users&enrich=false", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Handle(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "users_export.json")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	require.Len(t, decoded, 1)
}

func TestExportHandler_Handle_MissingURLIsBadRequest(t *testing.T) {
	httpFactory := func(c echo.Context) *sourceapi.Client { return nil }
	newExporter := func(client *sourceapi.Client) *migration.Exporter { return nil }
	h := NewExportHandler(httpFactory, newExporter, testLogger(), "")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/export", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Handle(c)
	require.Error(t, err)
}
