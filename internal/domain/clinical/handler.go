package clinical

import (
	"net/http"
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
	notes := g.Group("/notes")
	notes.GET("", h.listNotes)
	notes.GET("/:id", h.getNote)
	notes.POST("", h.createNote)
	notes.DELETE("/:id", h.deleteNote)
	// the edit verbs exist only to refuse explicitly
	notes.PUT("/:id", h.noteImmutable)
	notes.PATCH("/:id", h.noteImmutable)

	reports := g.Group("/reports")
	reports.GET("", h.listReports)
	reports.GET("/:id", h.getReport)
	reports.POST("", h.createReport)
	reports.PATCH("/:id", h.updateReport)
	reports.DELETE("/:id", h.deleteReport)
}

func queryID(c echo.Context, name string) (*uuid.UUID, error) {
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

func (h *Handler) listNotes(c echo.Context) error {
	var f NoteFilter
	var err error
	if f.PatientID, err = queryID(c, "patient_id"); err != nil {
		return err
	}
	if f.AuthorID, err = queryID(c, "professional_id"); err != nil {
		return err
	}
	if v := c.QueryParam("date"); v != "" {
		day, err := time.ParseInLocation("2006-01-02", v, h.loc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		from := day.UTC()
		to := day.AddDate(0, 0, 1).UTC()
		f.From = &from
		f.To = &to
	}

	p := pagination.FromContext(c)
	notes, total, err := h.svc.ListNotes(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if notes == nil {
		notes = []*Note{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(notes, total, p.Limit, p.Offset))
}

func (h *Handler) deleteNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteNote(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) getNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid note id")
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) createNote(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in NoteInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	n, err := h.svc.CreateNote(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) noteImmutable(c echo.Context) error {
	return ErrNoteImmutable()
}

func (h *Handler) listReports(c echo.Context) error {
	var f ReportFilter
	var err error
	if f.PatientID, err = queryID(c, "patient_id"); err != nil {
		return err
	}
	if f.AuthorID, err = queryID(c, "professional_id"); err != nil {
		return err
	}
	p := pagination.FromContext(c)
	reports, total, err := h.svc.ListReports(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if reports == nil {
		reports = []*Report{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, p.Limit, p.Offset))
}

func (h *Handler) getReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	rp, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rp)
}

func (h *Handler) createReport(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in ReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rp, err := h.svc.CreateReport(c.Request().Context(), actor, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rp)
}

func (h *Handler) updateReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	var in ReportUpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	rp, err := h.svc.UpdateReport(c.Request().Context(), actor, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rp)
}

func (h *Handler) deleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.DeleteReport(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
