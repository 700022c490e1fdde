package invitation

import (
	"net/http"

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

// RegisterPublicRoutes mounts the accept endpoint, which is reached
// from the emailed link before the professional has an account.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/invitations/accept", h.accept)
}

// RegisterRoutes mounts the owner-only management endpoints.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	invs := g.Group("/invitations", auth.RequireOwner())
	invs.GET("", h.list)
	invs.POST("", h.create)
}

type createRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *Handler) create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	inv, err := h.svc.Create(c.Request().Context(), actor, req.Email, req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) list(c echo.Context) error {
	p := pagination.FromContext(c)
	invs, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if invs == nil {
		invs = []*Invitation{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invs, total, p.Limit, p.Offset))
}

func (h *Handler) accept(c echo.Context) error {
	var in AcceptInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := h.svc.Accept(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, u)
}
