// Package auth is the session provider: credential login, HS256 session
// tokens, and middleware that binds the current user to the request.
package auth

import (
	"context"
	"errors"

	"github.com/clinica/intake/internal/domain/access"
)

var (
	// ErrBadCredentials is surfaced as the login-form message.
	ErrBadCredentials = errors.New("usuario o contraseña incorrectos")

	// ErrNoProfile means a token authenticated but its profile is gone: a
	// critical inconsistency that forces an immediate sign-out instead of a
	// half-initialized session.
	ErrNoProfile = errors.New("authenticated identity has no profile")
)

// User is the session identity carried through the request context.
type User struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Nombre    string      `json:"nombre"`
	Apellido  string      `json:"apellido"`
	Role      access.Role `json:"especialidad"`
	Matricula string      `json:"matricula,omitempty"`
	Firma     string      `json:"-"` // base64 PNG, never serialized outward
}

// CredentialVerifier checks a username/password pair against the user
// directory. Implemented by the staff service.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (*User, error)
}

// ProfileResolver loads the profile for an authenticated identity on every
// request, so deleted or corrupted profiles invalidate live sessions.
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, id string) (*User, error)
}

type ctxKey struct{}

// WithUser returns a context carrying the session user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the session user, or nil outside a session.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(ctxKey{}).(*User)
	return u
}
