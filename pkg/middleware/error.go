package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body shape for every non-2xx response the core
// returns, matching the error taxonomy's request-level-abort contract
// (spec §7: "Request-level errors abort immediately with an error body").
type ErrorResponse struct {
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta,omitempty"`
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("request failed")

		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"
		var meta map[string]any

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if httperror.IsHTTPError(err) {
			httpErr := httperror.ToHTTPError(err)
			code = httperror.GetStatusCode(err)
			message = httpErr.Error()
			meta = httpErr.Meta
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: obs.GetRequestID(ctx),
			TraceID:   obs.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}
