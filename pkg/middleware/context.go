package middleware

import (
	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context stamps every request with a request id (generated if the caller
// didn't supply one) plus method/route/remote-ip, all readable later via
// internal/obs accessors without threading them through handler signatures.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := req.Context()
			ctx = obs.SetRequestID(ctx, requestID)
			ctx = obs.SetMethod(ctx, req.Method)
			ctx = obs.SetRoute(ctx, c.Path())
			ctx = obs.SetRemoteIP(ctx, c.RealIP())

			c.SetRequest(req.WithContext(ctx))
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			return next(c)
		}
	}
}
