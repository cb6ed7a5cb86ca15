package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/laurel/pkg/context"
	"github.com/labstack/echo/v4"
)

// RequireUser rejects requests that carry no caller identity. Identity is
// taken from the X-User-ID header by the Context middleware; a real JWT
// gateway is expected to sit in front of this service and populate it.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if context.GetUserID(c.Request().Context()) == "" {
				return httperror.NewHTTPError(http.StatusUnauthorized, "missing user identity")
			}
			return next(c)
		}
	}
}

// RequireRole guards a route group behind a set of caller roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			callerRole := context.GetUserRole(c.Request().Context())
			for _, role := range roles {
				if callerRole == role {
					return next(c)
				}
			}
			return httperror.NewHTTPErrorf(http.StatusForbidden, "requires one of roles %v", roles)
		}
	}
}
