package access

import (
	"fmt"
	"time"
)

// GracePeriod is how long after the discharge stamp a record stays editable.
const GracePeriod = 24 * time.Hour

// LockState is derived from the persisted discharge timestamp; it is never
// stored and must be recomputed on every load.
type LockState struct {
	Locked       bool       `json:"locked"`
	DischargedAt *time.Time `json:"discharged_at,omitempty"`
	LockedAt     *time.Time `json:"locked_at,omitempty"`
}

// ComputeLockState derives the lock state from the discharge timestamp in
// epoch milliseconds (nil when the record was never discharged).
// The progression is one-way: unlocked → grace period → locked; nothing
// here or elsewhere clears a lock.
func ComputeLockState(dischargeMillis *int64, now time.Time) LockState {
	if dischargeMillis == nil {
		return LockState{}
	}
	discharged := time.UnixMilli(*dischargeMillis)
	lockAt := discharged.Add(GracePeriod)
	st := LockState{
		DischargedAt: &discharged,
		LockedAt:     &lockAt,
	}
	st.Locked = now.Sub(discharged) > GracePeriod
	return st
}

// Banner renders the user-facing lock notice shown over a locked record.
func (s LockState) Banner() string {
	if !s.Locked || s.DischargedAt == nil {
		return ""
	}
	return fmt.Sprintf("Registro bloqueado: el alta fue firmada el %s y el período de edición de 24 horas finalizó.",
		s.DischargedAt.Format("02/01/2006 15:04"))
}

// EffectiveEditable combines the lock and the role policy: a locked record
// is read-only for everyone, Administrador included.
func EffectiveEditable(st LockState, role Role, section Section) bool {
	if st.Locked {
		return false
	}
	return IsEditable(role, section)
}
