package scheduling

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lazos/clinic/internal/platform/auth"
	"github.com/lazos/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
	loc *time.Location
}

func NewHandler(svc *Service, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	appts := g.Group("/appointments")
	appts.GET("", h.list)
	appts.GET("/:id", h.get)
	appts.POST("", h.create)
	appts.PATCH("/:id", h.update)
	appts.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	f, err := h.filterFromQuery(c)
	if err != nil {
		return err
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	p := pagination.FromContext(c)
	appts, total, err := h.svc.List(c.Request().Context(), actor, f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(appts, total, p.Limit, p.Offset))
}

// filterFromQuery parses listing filters. The date parameter selects a
// single clinic-local day and expands to a start_at window.
func (h *Handler) filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	parseID := func(name string) (*uuid.UUID, error) {
		v := c.QueryParam(name)
		if v == "" {
			return nil, nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
		}
		return &id, nil
	}

	var err error
	if f.PatientID, err = parseID("patient_id"); err != nil {
		return f, err
	}
	if f.ProfessionalID, err = parseID("professional_id"); err != nil {
		return f, err
	}
	if f.RoomID, err = parseID("room_id"); err != nil {
		return f, err
	}
	if v := c.QueryParam("room_number"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid room_number")
		}
		f.RoomNumber = &n
	}
	f.Status = c.QueryParam("status")

	if v := c.QueryParam("date"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		from := day.UTC()
		to := day.AddDate(0, 0, 1).UTC()
		f.From = &from
		f.To = &to
		return f, nil
	}

	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid from, expected RFC 3339")
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "invalid to, expected RFC 3339")
		}
		f.To = &t
	}
	return f, nil
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	a, err := h.svc.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) create(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in Input
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	a, err := h.svc.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
