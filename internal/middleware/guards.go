package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/travel_social/internal/apperr"
	"github.com/Skotchmaster/travel_social/internal/authctx"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := authctx.FromContext(c.Request().Context()); !ok {
			return apperr.ErrUnauthorized
		}
		return next(c)
	}
}

// RequireAuthority lets the request through when the principal holds any of
// the given authorities.
func RequireAuthority(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			auth, ok := authctx.FromContext(ctx)
			if !ok {
				return apperr.ErrUnauthorized
			}
			for _, r := range required {
				if auth.Authorities.Has(r) {
					return next(c)
				}
			}
			logging.FromContext(ctx).Warn("access_denied", "status", 403, "required", required, "username", auth.Principal.Username)
			return apperr.ErrForbidden
		}
	}
}
