package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/refproxy/pkg/codec"
	"github.com/Ramsey-B/refproxy/pkg/codec/diagram"
	"github.com/Ramsey-B/refproxy/pkg/migration"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"
)

// ExportRequest binds `GET /export`'s query string, per spec §6.
type ExportRequest struct {
	URL          string `query:"url" validate:"required,url"`
	Type         string `query:"type"`
	Enrich       *bool  `query:"enrich"`
	Tree         *bool  `query:"tree"`
	DiagramType  string `query:"diagram_type"`
	LookupConfig string `query:"lookup_config"`
}

// ExportHandler serves `GET /export`.
type ExportHandler struct {
	httpFactory   func(c echo.Context) *sourceapi.Client
	logger        ectologger.Logger
	newExporter   func(*sourceapi.Client) *migration.Exporter
	recordURLBase string
}

func NewExportHandler(httpFactory func(c echo.Context) *sourceapi.Client, newExporter func(*sourceapi.Client) *migration.Exporter, logger ectologger.Logger, recordURLBase string) *ExportHandler {
	return &ExportHandler{httpFactory: httpFactory, newExporter: newExporter, logger: logger, recordURLBase: recordURLBase}
}

func (h *ExportHandler) Handle(c echo.Context) error {
	req, err := BindRequest[ExportRequest](c)
	if err != nil {
		return err
	}

	format := codec.Format(req.Type)
	if format == "" {
		format = codec.FormatJSON
	}

	enrich := true
	if req.Enrich != nil {
		enrich = *req.Enrich
	}
	tree := false
	if req.Tree != nil {
		tree = *req.Tree
	}
	dialect := diagram.Dialect(req.DiagramType)
	if dialect == "" {
		dialect = diagram.DialectFlowchart
	}

	lookupConfig, err := parseLookupConfig(req.LookupConfig)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid lookup_config: %v", err)
	}

	client := h.httpFactory(c)
	exporter := h.newExporter(client)

	result, err := exporter.Export(c.Request().Context(), migration.ExportOptions{
		TargetURL:      req.URL,
		Format:         format,
		Enrich:         enrich,
		Tree:           tree,
		DiagramDialect: dialect,
		LookupConfig:   lookupConfig,
		RecordURLBase:  h.recordURLBase,
	})
	if err != nil {
		if engErr, ok := refengine.IsEngineError(err); ok {
			return engErr.ToHTTPError()
		}
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "export failed: %v", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+result.Filename+`"`)
	return c.Blob(http.StatusOK, result.ContentType, result.Body)
}

func parseLookupConfig(raw string) (refengine.LookupConfig, error) {
	if raw == "" {
		return nil, nil
	}
	var cfg refengine.LookupConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
