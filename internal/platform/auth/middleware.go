package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Role values carried in session tokens. The owner has unrestricted
// access; professionals are scoped to their own records.
const (
	RoleOwner        = "OWNER"
	RoleProfessional = "PROFESSIONAL"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a Actor) IsOwner() bool { return a.Role == RoleOwner }

// CanActOnProfessionalResource reports whether the actor may act on a
// record owned by the given professional: the owner may act on any
// record, everyone else only on their own.
func (a Actor) CanActOnProfessionalResource(professionalID uuid.UUID) bool {
	return a.IsOwner() || a.ID == professionalID
}

type contextKey string

const actorKey contextKey = "actor"

// Middleware authenticates requests by the Bearer token and places the
// resulting Actor on the request context. Routes registered without it
// (login, invitation accept, health) stay public.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := issuer.Parse(parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}

			actor := Actor{ID: userID, Email: claims.Email, Role: claims.Role}
			ctx := context.WithValue(c.Request().Context(), actorKey, actor)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// ActorFromContext retrieves the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// WithActor returns a context carrying the given actor. Used by tests
// and internal flows that act on behalf of a known user.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}
