package audit

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

// RegisterRoutes mounts the audit endpoints. The log is owner-only; the
// group passed in must already authenticate requests.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-log", h.list, auth.RequireOwner())
}

func (h *Handler) list(c echo.Context) error {
	var f Filter
	if v := c.QueryParam("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid actor_id")
		}
		f.ActorID = &id
	}
	f.Action = Action(c.QueryParam("action"))
	f.TargetType = c.QueryParam("target_type")

	p := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Entry{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, p.Limit, p.Offset))
}
