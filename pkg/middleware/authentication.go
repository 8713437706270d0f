package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/refproxy/internal/obs"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/labstack/echo/v4"
)

// UserClaims is the subset of a bearer token's claims the core cares about.
// The core itself never makes authorization decisions (spec §1's access
// control is out of scope) — verification here only answers "is this
// caller who they claim to be", stamping the subject onto the context so
// outbound calls and logs can carry it.
type UserClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

// Authentication verifies an OIDC bearer token per SPEC_FULL §11's
// AUTH_ENABLED wiring. A missing or invalid token is the concrete form of
// spec §7's Unauthorized taxonomy entry: surfaced immediately as 401.
func Authentication(logger ectologger.Logger, issuer, clientID string) (echo.MiddlewareFunc, error) {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ctx, span := obs.StartSpan(ctx, "middleware.Authentication")
			defer span.End()

			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				logger.WithContext(ctx).Warn("request is missing a bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			raw := strings.TrimPrefix(auth, "Bearer ")
			verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			idToken, err := verifier.Verify(verifyCtx, raw)
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("bearer token failed verification")
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			var claims UserClaims
			if err := idToken.Claims(&claims); err != nil {
				logger.WithContext(ctx).WithError(err).Warn("failed to parse token claims")
				return echo.NewHTTPError(http.StatusUnauthorized, "cannot parse claims")
			}

			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_sub", claims.Sub)

			return next(c)
		}
	}, nil
}

// ForwardAuthorization copies the incoming request's Authorization header
// onto an outbound request, implementing spec §6's "a credential carried on
// the incoming request is forwarded verbatim on every outbound call."
func ForwardAuthorization(c echo.Context, outbound *http.Request) {
	if auth := c.Request().Header.Get("Authorization"); auth != "" {
		outbound.Header.Set("Authorization", auth)
	}
}
