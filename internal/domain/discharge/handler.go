package discharge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/record"
	"github.com/clinica/intake/internal/platform/auth"
	"github.com/clinica/intake/internal/platform/pdf"
)

// WarningHeader carries non-fatal workflow degradations to the client
// alongside the delivered document.
const WarningHeader = "X-Discharge-Warning"

// Handler exposes the discharge endpoint.
type Handler struct {
	workflow *Workflow
	log      zerolog.Logger
}

func NewHandler(workflow *Workflow, log zerolog.Logger) *Handler {
	return &Handler{workflow: workflow, log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/records/:dni/tabs/:tab/discharge", h.Discharge)
}

// Discharge runs the workflow for one tab and streams the resulting PDF.
// The body is the tab's final FormData snapshot.
func (h *Handler) Discharge(c echo.Context) error {
	dni := strings.TrimSpace(c.Param("dni"))
	tab := record.TabID(c.Param("tab"))

	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}

	var form record.FormData
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	signer := pdf.Signer{
		Role:      user.Role,
		Nombre:    user.Nombre,
		Apellido:  user.Apellido,
		Matricula: user.Matricula,
		FirmaPNG:  user.Firma,
	}

	res, err := h.workflow.Run(c.Request().Context(), dni, tab, form, signer)
	if err != nil {
		return h.mapError(c, err)
	}

	if len(res.Warnings) > 0 {
		c.Response().Header().Set(WarningHeader, strings.Join(res.Warnings, "; "))
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	return c.Blob(http.StatusOK, "application/pdf", res.PDF)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	var verr *record.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, record.ErrLocked):
		return echo.NewHTTPError(http.StatusConflict, "el registro está bloqueado")
	case errors.Is(err, record.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "registro inexistente")
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("discharge failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "no se pudo generar el alta")
	}
}
