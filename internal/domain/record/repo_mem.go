package record

import (
	"context"
	"sync"
)

// memRepo is the in-memory record store used by tests and the dev sandbox.
// It mirrors the Postgres semantics, discharge-stamp preservation included.
type memRepo struct {
	mu    sync.RWMutex
	store map[string]PatientRecord
}

func NewRepoMem() Repository {
	return &memRepo{store: make(map[string]PatientRecord)}
}

func (r *memRepo) Get(_ context.Context, dni string) (PatientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.store[dni]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *memRepo) Upsert(_ context.Context, dni string, rec PatientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	incoming := rec.Clone()
	if existing, ok := r.store[dni]; ok {
		if stamp := existing.DischargeMillis(); stamp != nil {
			incoming[KeyDischargeTimestamp] = *stamp
		}
	}
	r.store[dni] = incoming
	return nil
}

func (r *memRepo) SetDischargeIfAbsent(_ context.Context, dni string, millis int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.store[dni]
	if !ok {
		return 0, ErrNotFound
	}
	if stamp := rec.DischargeMillis(); stamp != nil {
		return *stamp, nil
	}
	rec[KeyDischargeTimestamp] = millis
	r.store[dni] = rec
	return millis, nil
}
