package pam

import (
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pam/pam/internal/domain/patient"
	"github.com/pam/pam/internal/platform/hl7v2"
	"github.com/pam/pam/pkg/pagination"
)

const hl7ContentType = "x-application/hl7-v2+er7"

// Handler exposes the query engine and the event intake over HTTP.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/xref", h.CrossReference)
	api.GET("/query", h.Query)
	api.GET("/patients", h.SearchPatients)
	api.GET("/patients/:id", h.GetPatient)
	api.GET("/audit", h.ListAudit)
	api.POST("/events", h.PostEvent)
}

// CrossReference handles a PIX-style query: one composite identifier in,
// the patient's identifier set across all authorities out.
func (h *Handler) CrossReference(c echo.Context) error {
	composite := c.QueryParam("identifier")
	if composite == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identifier query parameter is required")
	}
	ids, err := h.engine.CrossReference(c.Request().Context(), composite)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"identifier": ids,
		"total":      len(ids),
	})
}

// Query handles a mixed PIX/PDQ query string, items separated by ~.
func (h *Handler) Query(c echo.Context) error {
	raw := c.QueryParam("q")
	if raw == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q query parameter is required")
	}
	pg := pagination.FromContext(c)
	patients, err := h.engine.Query(c.Request().Context(), raw, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out := make([]map[string]interface{}, 0, len(patients))
	for _, p := range patients {
		out = append(out, p.ToFHIR())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, len(out), pg.Limit, pg.Offset))
}

// SearchPatients handles a PDQ-style demographic search over query
// parameters.
func (h *Handler) SearchPatients(c echo.Context) error {
	crit := patient.SearchCriteria{
		Family:    c.QueryParam("family"),
		Given:     c.QueryParam("given"),
		BirthDate: c.QueryParam("birthdate"),
		Gender:    c.QueryParam("gender"),
	}
	// identifier=system|value narrows by an active identifier binding.
	if ident := c.QueryParam("identifier"); ident != "" {
		if i := strings.Index(ident, "|"); i >= 0 {
			crit.IdentSystem, crit.IdentValue = ident[:i], ident[i+1:]
		} else {
			crit.IdentValue = ident
		}
	}
	pg := pagination.FromContext(c)
	patients, total, err := h.engine.DemographicSearch(c.Request().Context(), crit, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]map[string]interface{}, 0, len(patients))
	for _, p := range patients {
		out = append(out, p.ToFHIR())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(out, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.engine.store.Patients.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == patient.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) ListAudit(c echo.Context) error {
	pg := pagination.FromContext(c)
	events, total, err := h.engine.store.Audit.List(c.Request().Context(), c.QueryParam("kind"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

// PostEvent accepts a raw HL7v2 administrative message in the request body
// and answers with the ACK, mirroring the MLLP intake for callers that
// prefer HTTP.
func (h *Handler) PostEvent(c echo.Context) error {
	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(raw) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty message body")
	}

	ack, res := h.engine.DispatchRaw(c.Request().Context(), raw)
	status := http.StatusOK
	if !res.OK {
		status = http.StatusUnprocessableEntity
	}
	return c.Blob(status, hl7ContentType, hl7v2.Serialize(ack))
}
