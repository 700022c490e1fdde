package room

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lazos/clinic/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the room endpoints. Any staff member may read;
// only the owner may change the room inventory.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	rooms := g.Group("/rooms", auth.RequireOwnerOrReadOnly())
	rooms.GET("", h.list)
	rooms.GET("/:id", h.get)
	rooms.POST("", h.create)
	rooms.PATCH("/:id", h.update)
	rooms.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	rooms, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []*Room{}
	}
	return c.JSON(http.StatusOK, rooms)
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}
	rm, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rm, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rm)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rm, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rm)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid room id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
