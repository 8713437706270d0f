package handlers

import (
	"io"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/refproxy/pkg/codec"
	"github.com/Ramsey-B/refproxy/pkg/migration"
	"github.com/Ramsey-B/refproxy/pkg/refengine"
	"github.com/Ramsey-B/refproxy/pkg/sourceapi"
)

// ImportRequest binds `POST /import`'s query string, per spec §6. The body
// itself is a multipart `file` part, read separately in Handle.
type ImportRequest struct {
	URL          string `query:"url" validate:"required,url"`
	Type         string `query:"type"`
	OnAmbiguous  string `query:"on_ambiguous"`
	OnMissing    string `query:"on_missing"`
	DetectCycles *bool  `query:"detect_cycles"`
	LookupConfig string `query:"lookup_config"`
}

// ImportHandler serves `POST /import`.
type ImportHandler struct {
	httpFactory func(c echo.Context) *sourceapi.Client
	newImporter func(*sourceapi.Client) *migration.Importer
	logger      ectologger.Logger
}

func NewImportHandler(httpFactory func(c echo.Context) *sourceapi.Client, newImporter func(*sourceapi.Client) *migration.Importer, logger ectologger.Logger) *ImportHandler {
	return &ImportHandler{httpFactory: httpFactory, newImporter: newImporter, logger: logger}
}

func (h *ImportHandler) Handle(c echo.Context) error {
	req, err := BindRequest[ImportRequest](c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "missing multipart 'file' part: %v", err)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "could not open uploaded file: %v", err)
	}
	defer f.Close()
	body, err := io.ReadAll(f)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "could not read uploaded file: %v", err)
	}

	format := codec.Format(req.Type)
	if format == "" {
		format = codec.FormatJSON
	}

	onAmbiguous := refengine.PolicySkip
	if req.OnAmbiguous == string(refengine.PolicyFail) {
		onAmbiguous = refengine.PolicyFail
	}
	onMissing := refengine.PolicySkip
	if req.OnMissing == string(refengine.PolicyFail) {
		onMissing = refengine.PolicyFail
	}
	detectCycles := true
	if req.DetectCycles != nil {
		detectCycles = *req.DetectCycles
	}

	lookupConfig, err := parseLookupConfig(req.LookupConfig)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid lookup_config: %v", err)
	}

	client := h.httpFactory(c)
	importer := h.newImporter(client)

	report, err := importer.Import(c.Request().Context(), migration.ImportOptions{
		TargetURL:    req.URL,
		Format:       format,
		Body:         body,
		OnAmbiguous:  onAmbiguous,
		OnMissing:    onMissing,
		DetectCycles: detectCycles,
		LookupConfig: lookupConfig,
	})
	if err != nil {
		if engErr, ok := refengine.IsEngineError(err); ok {
			he := engErr.ToHTTPError()
			return c.JSON(httperror.GetStatusCode(he), echo.Map{"error": engErr.Error(), "report": report})
		}
		return httperror.NewHTTPErrorf(http.StatusBadGateway, "import failed: %v", err)
	}

	return c.JSON(importStatusCode(report), report)
}

// importStatusCode tiers the response status by outcome, uniformly across
// all three codecs: a clean import is 201, a partial one is 207 (Multi-
// Status), and an import that created nothing is 400.
func importStatusCode(report *migration.Report) int {
	switch {
	case report.Failed == 0:
		return http.StatusCreated
	case report.Successful > 0:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}
