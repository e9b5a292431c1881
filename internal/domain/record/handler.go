package record

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/platform/auth"
)

// Handler exposes the patient-record endpoints.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the record endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/tabs", h.ListTabs)
	g.GET("/tabs/:tab/sections", h.TabSections)
	g.GET("/records/:dni", h.GetRecord)
	g.PUT("/records/:dni/tabs/:tab", h.SaveTab)
	g.GET("/records/:dni/tabs/:tab", h.GetTab)
	g.GET("/records/:dni/lock", h.GetLock)
	g.GET("/records/:dni/export", h.Export)
	g.POST("/records/import", h.Import)
}

type lockResponse struct {
	access.LockState
	Banner string `json:"banner,omitempty"`
}

type recordResponse struct {
	DNI    string        `json:"dni"`
	New    bool          `json:"new"`
	Record PatientRecord `json:"record"`
	Lock   lockResponse  `json:"lock"`
}

// GetRecord loads the whole record for a DNI. An unknown DNI is the
// new-patient flow, not an error: the client gets an empty record.
func (h *Handler) GetRecord(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	if dni == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "DNI vacío")
	}

	rec, lock, err := h.svc.Load(c.Request().Context(), dni)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusOK, recordResponse{DNI: dni, New: true, Record: PatientRecord{}})
		}
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, recordResponse{
		DNI:    dni,
		Record: rec,
		Lock:   lockResponse{LockState: lock, Banner: lock.Banner()},
	})
}

// SaveTab stores one tab's submitted form. The body is the FormData wire
// shape; sibling tabs are untouched.
func (h *Handler) SaveTab(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	tab := TabID(c.Param("tab"))

	var form FormData
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	doc, err := h.svc.SaveTab(c.Request().Context(), dni, tab, form)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"dni": dni, "tab": tab, "document": doc})
}

// GetTab rebuilds the flat form values for one tab.
func (h *Handler) GetTab(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	tab := TabID(c.Param("tab"))

	form, err := h.svc.PopulateTab(c.Request().Context(), dni, tab)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(http.StatusOK, FormData{Fields: map[string]any{}})
		}
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, form)
}

// GetLock returns the derived lock state plus the user-facing banner.
func (h *Handler) GetLock(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	lock, err := h.svc.Lock(c.Request().Context(), dni)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, lockResponse{LockState: lock, Banner: lock.Banner()})
}

type tabInfo struct {
	ID    TabID  `json:"id"`
	Title string `json:"title"`
}

// ListTabs returns the four procedure tabs in presentation order.
func (h *Handler) ListTabs(c echo.Context) error {
	out := make([]tabInfo, 0, len(AllTabs()))
	for _, id := range AllTabs() {
		s, _ := SchemaFor(id)
		out = append(out, tabInfo{ID: id, Title: s.Title})
	}
	return c.JSON(http.StatusOK, out)
}

type sectionState struct {
	Section  access.Section `json:"section"`
	Editable bool           `json:"editable"`
}

// TabSections is the editability read model: which sections of a tab the
// current user may edit, with the record lock (when a dni is supplied)
// overriding the role policy.
func (h *Handler) TabSections(c echo.Context) error {
	tab := TabID(c.Param("tab"))
	if !ValidTab(tab) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("pestaña desconocida: %s", tab))
	}
	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	var lock access.LockState
	if dni := strings.TrimSpace(c.QueryParam("dni")); dni != "" {
		var err error
		if lock, err = h.svc.Lock(c.Request().Context(), dni); err != nil {
			return h.mapError(c, err)
		}
	}

	sections := []access.Section{access.SectionAdministrativo, access.SectionEnfermero,
		access.SectionAnestesista, access.SectionMedico}
	out := make([]sectionState, 0, len(sections))
	for _, sec := range sections {
		out = append(out, sectionState{
			Section:  sec,
			Editable: access.EffectiveEditable(lock, user.Role, sec),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"tab":      tab,
		"locked":   lock.Locked,
		"banner":   lock.Banner(),
		"sections": out,
	})
}

// Export streams the record as a downloadable .clinic file.
func (h *Handler) Export(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	data, err := h.svc.Export(c.Request().Context(), dni)
	if err != nil {
		return h.mapError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s%s"`, dni, ClinicFileExt))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

// Import reads a .clinic payload from the request body (raw JSON or the
// "archivo" multipart part) and stores it under its scanned DNI.
func (h *Handler) Import(c echo.Context) error {
	var data []byte
	if file, err := c.FormFile("archivo"); err == nil {
		src, err := file.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		defer src.Close()
		if data, err = io.ReadAll(src); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	} else {
		var err error
		if data, err = io.ReadAll(c.Request().Body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	dni, err := h.svc.Import(c.Request().Context(), data)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"dni": dni})
}

func isNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// mapError translates domain errors into HTTP responses and logs the rest.
func (h *Handler) mapError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, ErrLocked):
		return echo.NewHTTPError(http.StatusConflict, "el registro está bloqueado")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "registro inexistente")
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("record request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
}
