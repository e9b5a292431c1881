package record

import "context"

// Repository is the patient record store: one document per DNI, upsert
// semantics, last writer wins at whole-record granularity.
type Repository interface {
	// Get returns the stored record, or ErrNotFound for a new patient.
	Get(ctx context.Context, dni string) (PatientRecord, error)

	// Upsert writes the whole record. An already-present discharge stamp is
	// preserved no matter what the incoming record carries.
	Upsert(ctx context.Context, dni string, rec PatientRecord) error

	// SetDischargeIfAbsent stamps the discharge time once. The stamp already
	// in place wins; the effective stamp is returned either way.
	// ErrNotFound when the DNI has no record.
	SetDischargeIfAbsent(ctx context.Context, dni string, millis int64) (int64, error)
}
