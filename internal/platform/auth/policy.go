package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireOwner restricts a route group to the owner role.
func RequireOwner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !actor.IsOwner() {
				return echo.NewHTTPError(http.StatusForbidden, "owner role required")
			}
			return next(c)
		}
	}
}

// RequireOwnerOrReadOnly lets any authenticated actor read, but only
// the owner mutate. Applied to the room endpoints.
func RequireOwnerOrReadOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			if !actor.IsOwner() {
				return echo.NewHTTPError(http.StatusForbidden, "owner role required")
			}
			return next(c)
		}
	}
}
