package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgRepo struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &pgRepo{pool: pool}
}

const profileColumns = `id, username, nombre, apellido, especialidad, matricula, firma, password_hash, created_at, updated_at`

func (r *pgRepo) Create(ctx context.Context, p *Profile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_profile (id, username, nombre, apellido, especialidad, matricula, firma, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Username, p.Nombre, p.Apellido, string(p.Especialidad), p.Matricula, p.Firma, p.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUser
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (r *pgRepo) Get(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM staff_profile WHERE id = $1`, id))
}

func (r *pgRepo) GetByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM staff_profile WHERE username = $1`, username))
}

func (r *pgRepo) scanOne(row pgx.Row) (*Profile, error) {
	var p Profile
	var role string
	err := row.Scan(&p.ID, &p.Username, &p.Nombre, &p.Apellido, &role,
		&p.Matricula, &p.Firma, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.Especialidad = roleFrom(role)
	return &p, nil
}

func (r *pgRepo) Update(ctx context.Context, p *Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff_profile
		SET nombre = $2, apellido = $3, especialidad = $4, matricula = $5,
		    firma = $6, password_hash = $7, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Nombre, p.Apellido, string(p.Especialidad), p.Matricula, p.Firma, p.PasswordHash)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepo) List(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM staff_profile`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+profileColumns+`
		FROM staff_profile
		ORDER BY apellido, nombre
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		var p Profile
		var role string
		if err := rows.Scan(&p.ID, &p.Username, &p.Nombre, &p.Apellido, &role,
			&p.Matricula, &p.Firma, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan profile: %w", err)
		}
		p.Especialidad = roleFrom(role)
		out = append(out, &p)
	}
	return out, total, rows.Err()
}

func (r *pgRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM staff_profile WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
