package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler exposes the session endpoints.
type Handler struct {
	verifier CredentialVerifier
	secret   string
	ttl      time.Duration
	log      zerolog.Logger
}

func NewHandler(verifier CredentialVerifier, secret string, ttl time.Duration, log zerolog.Logger) *Handler {
	return &Handler{verifier: verifier, secret: secret, ttl: ttl, log: log}
}

// RegisterRoutes mounts the session endpoints outside the authenticated
// group; login must be reachable without a token.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "usuario y contraseña son obligatorios")
	}

	user, err := h.verifier.VerifyCredentials(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, ErrBadCredentials.Error())
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("login failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "no se pudo iniciar sesión")
	}

	token, err := IssueToken(user, h.secret, h.ttl, time.Now())
	if err != nil {
		h.log.Error().Err(err).Msg("token issue failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "no se pudo iniciar sesión")
	}

	h.log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("session opened")
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// Logout exists for symmetry with the client's session lifecycle; tokens
// are stateless, so the server only acknowledges.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
