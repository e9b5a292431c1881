package staff

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinica/intake/internal/domain/access"
	"github.com/clinica/intake/internal/platform/auth"
)

// MinPasswordLen is enforced on create and on password change.
const MinPasswordLen = 8

// Service manages staff profiles and doubles as the session provider's
// credential verifier and profile resolver.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// CreateInput carries everything needed to open a new profile.
type CreateInput struct {
	Username     string      `json:"username"`
	Password     string      `json:"password"`
	Nombre       string      `json:"nombre"`
	Apellido     string      `json:"apellido"`
	Especialidad access.Role `json:"especialidad"`
	Matricula    string      `json:"matricula"`
}

func (in *CreateInput) validate() error {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	in.Nombre = strings.TrimSpace(in.Nombre)
	in.Apellido = strings.TrimSpace(in.Apellido)
	switch {
	case in.Username == "":
		return fmt.Errorf("%w: username vacío", ErrInvalidProfile)
	case len(in.Password) < MinPasswordLen:
		return fmt.Errorf("%w: la contraseña debe tener al menos %d caracteres", ErrInvalidProfile, MinPasswordLen)
	case in.Nombre == "" || in.Apellido == "":
		return fmt.Errorf("%w: nombre y apellido son obligatorios", ErrInvalidProfile)
	case !access.ValidRole(in.Especialidad):
		return fmt.Errorf("%w: especialidad desconocida %q", ErrInvalidProfile, in.Especialidad)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	p := &Profile{
		ID:           uuid.New(),
		Username:     in.Username,
		Nombre:       in.Nombre,
		Apellido:     in.Apellido,
		Especialidad: in.Especialidad,
		Matricula:    in.Matricula,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info().Str("username", p.Username).Str("especialidad", string(p.Especialidad)).Msg("profile created")
	return p, nil
}

// UpdateInput is a partial update; nil pointers leave the field untouched.
type UpdateInput struct {
	Nombre       *string      `json:"nombre"`
	Apellido     *string      `json:"apellido"`
	Especialidad *access.Role `json:"especialidad"`
	Matricula    *string      `json:"matricula"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Profile, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Nombre != nil {
		p.Nombre = strings.TrimSpace(*in.Nombre)
	}
	if in.Apellido != nil {
		p.Apellido = strings.TrimSpace(*in.Apellido)
	}
	if in.Especialidad != nil {
		if !access.ValidRole(*in.Especialidad) {
			return nil, fmt.Errorf("%w: especialidad desconocida %q", ErrInvalidProfile, *in.Especialidad)
		}
		p.Especialidad = *in.Especialidad
	}
	if in.Matricula != nil {
		p.Matricula = strings.TrimSpace(*in.Matricula)
	}
	if p.Nombre == "" || p.Apellido == "" {
		return nil, fmt.Errorf("%w: nombre y apellido son obligatorios", ErrInvalidProfile)
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ChangePassword replaces the hash after validating the new password.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	if len(newPassword) < MinPasswordLen {
		return fmt.Errorf("%w: la contraseña debe tener al menos %d caracteres", ErrInvalidProfile, MinPasswordLen)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	p.PasswordHash = string(hash)
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.log.Info().Str("username", p.Username).Msg("password changed")
	return nil
}

// SetSignature stores the handwritten-signature PNG (base64) for the
// profile. An empty payload clears it.
func (s *Service) SetSignature(ctx context.Context, id uuid.UUID, firmaB64 string) error {
	if firmaB64 != "" {
		if _, err := base64.StdEncoding.DecodeString(firmaB64); err != nil {
			return fmt.Errorf("%w: la firma no es PNG base64 válido", ErrInvalidProfile)
		}
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Firma = firmaB64
	return s.repo.Update(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// VerifyCredentials implements auth.CredentialVerifier. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) VerifyCredentials(ctx context.Context, username, password string) (*auth.User, error) {
	p, err := s.repo.GetByUsername(ctx, strings.TrimSpace(strings.ToLower(username)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrBadCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, auth.ErrBadCredentials
	}
	return sessionUser(p), nil
}

// ResolveProfile implements auth.ProfileResolver.
func (s *Service) ResolveProfile(ctx context.Context, id string) (*auth.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, auth.ErrNoProfile
	}
	p, err := s.repo.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, auth.ErrNoProfile
		}
		return nil, err
	}
	return sessionUser(p), nil
}

func sessionUser(p *Profile) *auth.User {
	return &auth.User{
		ID:        p.ID.String(),
		Username:  p.Username,
		Nombre:    p.Nombre,
		Apellido:  p.Apellido,
		Role:      p.Especialidad,
		Matricula: p.Matricula,
		Firma:     p.Firma,
	}
}
