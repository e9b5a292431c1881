package staff

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memRepo struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]*Profile
}

func NewRepoMem() Repository {
	return &memRepo{profiles: map[uuid.UUID]*Profile{}}
}

func (r *memRepo) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.profiles {
		if existing.Username == p.Username {
			return ErrDuplicateUser
		}
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *memRepo) Get(_ context.Context, id uuid.UUID) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memRepo) GetByUsername(_ context.Context, username string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.profiles {
		if p.Username == username {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) Update(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

func (r *memRepo) List(_ context.Context, limit, offset int) ([]*Profile, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		cp := *p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Apellido != all[j].Apellido {
			return all[i].Apellido < all[j].Apellido
		}
		return all[i].Nombre < all[j].Nombre
	})
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(r.profiles, id)
	return nil
}
