package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

// NewRepoPG returns the Postgres-backed record store. The whole record
// lives in a single JSONB column keyed by DNI.
func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Get(ctx context.Context, dni string) (PatientRecord, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT doc FROM patient_record WHERE dni = $1`, dni).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrPersistence, dni, err)
	}

	var rec PatientRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, dni, err)
	}
	return rec, nil
}

func (r *repoPG) Upsert(ctx context.Context, dni string, rec PatientRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPersistence, dni, err)
	}

	// The CASE keeps an existing discharge stamp authoritative: once set it
	// survives every later save, whatever the incoming document says.
	_, err = r.pool.Exec(ctx, `
		INSERT INTO patient_record (dni, doc) VALUES ($1, $2)
		ON CONFLICT (dni) DO UPDATE SET
			doc = CASE
				WHEN patient_record.doc ? 'dischargeTimestamp'
				THEN EXCLUDED.doc || jsonb_build_object('dischargeTimestamp', patient_record.doc->'dischargeTimestamp')
				ELSE EXCLUDED.doc
			END,
			updated_at = NOW()`,
		dni, raw)
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", ErrPersistence, dni, err)
	}
	return nil
}

func (r *repoPG) SetDischargeIfAbsent(ctx context.Context, dni string, millis int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patient_record
		SET doc = jsonb_set(doc, '{dischargeTimestamp}', to_jsonb($2::bigint), true),
		    updated_at = NOW()
		WHERE dni = $1 AND NOT doc ? 'dischargeTimestamp'`,
		dni, millis)
	if err != nil {
		return 0, fmt.Errorf("%w: stamp %s: %v", ErrPersistence, dni, err)
	}
	if tag.RowsAffected() == 1 {
		return millis, nil
	}

	// Either the record is missing or the stamp was already set: read back.
	var effective int64
	err = r.pool.QueryRow(ctx,
		`SELECT (doc->>'dischargeTimestamp')::bigint FROM patient_record WHERE dni = $1`, dni).
		Scan(&effective)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read stamp %s: %v", ErrPersistence, dni, err)
	}
	return effective, nil
}
