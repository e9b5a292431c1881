package staff

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/platform/auth"
	"github.com/clinica/intake/pkg/pagination"
)

// Handler exposes the staff directory endpoints. Listing and mutation are
// mounted behind RequireRole(Administrador); the self-profile endpoints are
// open to any session.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/me", h.Me)
	g.PUT("/me/signature", h.SetOwnSignature)

	admin := g.Group("/staff", auth.RequireRole(access.RoleAdministrador))
	admin.GET("", h.List)
	admin.POST("", h.Create)
	admin.GET("/:id", h.Get)
	admin.PUT("/:id", h.Update)
	admin.PUT("/:id/password", h.ChangePassword)
	admin.PUT("/:id/signature", h.SetSignature)
	admin.DELETE("/:id", h.Delete)
}

// Me returns the session user's own profile.
func (h *Handler) Me(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type signatureRequest struct {
	Firma string `json:"firma"`
}

// SetOwnSignature lets any staff member upload their handwritten signature.
func (h *Handler) SetOwnSignature(c echo.Context) error {
	user := auth.UserFromContext(c.Request().Context())
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	id, err := uuid.Parse(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "no session")
	}
	var req signatureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetSignature(c.Request().Context(), id, req.Firma); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	profiles, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(profiles, total, p))
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id inválido")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id inválido")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.Update(c.Request().Context(), id, in)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

type passwordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) ChangePassword(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id inválido")
	}
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.ChangePassword(c.Request().Context(), id, req.Password); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetSignature(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id inválido")
	}
	var req signatureRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetSignature(c.Request().Context(), id, req.Firma); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id inválido")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "perfil inexistente")
	case errors.Is(err, ErrDuplicateUser):
		return echo.NewHTTPError(http.StatusConflict, "el usuario ya existe")
	case errors.Is(err, ErrInvalidProfile):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Str("path", c.Path()).Msg("staff request failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "error interno")
	}
}
