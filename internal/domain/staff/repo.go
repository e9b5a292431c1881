package staff

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the profile store. Get/GetByUsername return ErrNotFound for
// unknown profiles; Create returns ErrDuplicateUser on username collision.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	Get(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByUsername(ctx context.Context, username string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, limit, offset int) ([]*Profile, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
