package document

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

func (h *Handler) RegisterRoutes(g *echo.Group) {
	docs := g.Group("/documents")
	docs.GET("", h.list)
	docs.GET("/:id", h.get)
	docs.GET("/:id/download", h.download)
	docs.POST("", h.upload)
	docs.DELETE("/:id", h.delete)
}

func (h *Handler) list(c echo.Context) error {
	f := Filter{Name: c.QueryParam("search")}
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		f.PatientID = &id
	}
	p := pagination.FromContext(c)
	docs, total, err := h.svc.List(c.Request().Context(), f, p.Limit, p.Offset)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []*Document{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(docs, total, p.Limit, p.Offset))
}

func (h *Handler) get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	d, rc, err := h.svc.Open(c.Request().Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+d.FileName+`"`)
	contentType := d.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *Handler) upload(c echo.Context) error {
	actor, _ := auth.ActorFromContext(c.Request().Context())

	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	d, err := h.svc.Upload(c.Request().Context(), actor, UploadInput{
		PatientID:   patientID,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        src,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	actor, _ := auth.ActorFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
