package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/login", h.login)
}

// RegisterRoutes mounts the authenticated endpoints. User
// administration is owner-only.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.me)
	g.PATCH("/me", h.updateMe)
	g.POST("/me/password", h.changePassword)

	users := g.Group("/users", auth.RequireOwner())
	users.GET("", h.list)
	users.GET("/:id", h.get)
	users.POST("", h.create)
	users.PATCH("/:id", h.update)
	users.DELETE("/:id", h.delete)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	session, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (h *Handler) me(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	u, err := h.svc.Me(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) updateMe(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in UpdateProfileInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.UpdateMe(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.ChangePassword(c.Request().Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(users, total, p.Limit, p.Offset))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in CreateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.CreateUser(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in UpdateUserInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.UpdateUser(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
