// Package staff is the user directory: one profile per login, carrying the
// specialty that drives form editability and the signature artwork stamped
// onto discharge documents.
package staff

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinica/intake/internal/domain/access"
)

// Profile is a staff member's directory entry. Firma holds a base64 PNG of
// the handwritten signature; Matricula is the professional license number
// printed under it.
type Profile struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Nombre       string      `json:"nombre"`
	Apellido     string      `json:"apellido"`
	Especialidad access.Role `json:"especialidad"`
	Matricula    string      `json:"matricula,omitempty"`
	Firma        string      `json:"firma,omitempty"`
	PasswordHash string      `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// roleFrom restores the typed specialty from its stored string.
func roleFrom(s string) access.Role { return access.Role(s) }
