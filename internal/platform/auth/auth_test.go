package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinica/intake/internal/domain/access"
)

func testUser() *User {
	return &User{ID: "u-1", Username: "agomez", Nombre: "Ana", Apellido: "Gómez", Role: access.RoleMedico}
}

func TestTokenRoundTrip(t *testing.T) {
	u := testUser()
	tok, err := IssueToken(u, "secret", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := ParseToken(tok, "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != "u-1" || claims.Role != string(access.RoleMedico) {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, _ := IssueToken(testUser(), "secret", time.Hour, time.Now())
	if _, err := ParseToken(tok, "other"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseToken_Expired(t *testing.T) {
	tok, _ := IssueToken(testUser(), "secret", time.Minute, time.Now().Add(-time.Hour))
	if _, err := ParseToken(tok, "secret"); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseToken_UnknownRole(t *testing.T) {
	u := testUser()
	u.Role = access.Role("Becario")
	tok, _ := IssueToken(u, "secret", time.Hour, time.Now())
	if _, err := ParseToken(tok, "secret"); err == nil {
		t.Fatal("expected unknown-role error")
	}
}

type staticResolver struct{ user *User }

func (r staticResolver) ResolveProfile(_ context.Context, id string) (*User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, ErrNoProfile
}

func runMiddleware(t *testing.T, resolver ProfileResolver, authz string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := Middleware("secret", resolver)(func(c echo.Context) error {
		if UserFromContext(c.Request().Context()) == nil {
			t.Error("expected user in context")
		}
		return c.NoContent(http.StatusOK)
	})
	return rec, handler(c)
}

func TestMiddleware_ValidSession(t *testing.T) {
	u := testUser()
	tok, _ := IssueToken(u, "secret", time.Hour, time.Now())
	if _, err := runMiddleware(t, staticResolver{user: u}, "Bearer "+tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMiddleware_MissingToken(t *testing.T) {
	_, err := runMiddleware(t, staticResolver{}, "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestMiddleware_ProfileGoneForcesSignOut(t *testing.T) {
	u := testUser()
	tok, _ := IssueToken(u, "secret", time.Hour, time.Now())
	_, err := runMiddleware(t, staticResolver{}, "Bearer "+tok)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected forced sign-out 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	call := func(u *User, mw echo.MiddlewareFunc) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if u != nil {
			req = req.WithContext(WithUser(req.Context(), u))
		}
		c := e.NewContext(req, httptest.NewRecorder())
		return mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	}

	medicoOnly := RequireRole(access.RoleMedico)
	if err := call(testUser(), medicoOnly); err != nil {
		t.Errorf("Médico should pass: %v", err)
	}
	admin := testUser()
	admin.Role = access.RoleAdministrador
	if err := call(admin, medicoOnly); err != nil {
		t.Errorf("Administrador should always pass: %v", err)
	}
	nurse := testUser()
	nurse.Role = access.RoleEnfermero
	if err := call(nurse, medicoOnly); err == nil {
		t.Error("Enfermero should be rejected")
	}
	if err := call(nil, medicoOnly); err == nil {
		t.Error("no session should be rejected")
	}
}
