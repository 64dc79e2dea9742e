package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"family-locator/internal/domain/families"
)

type FamiliesRepo struct {
	db *sql.DB
}

func NewFamiliesRepo(db *sql.DB) *FamiliesRepo {
	return &FamiliesRepo{db: db}
}

func (r *FamiliesRepo) CreateFamily(ctx context.Context, f families.Family) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO families (id, name, created_by, created_at)
		VALUES ($1,$2,$3,$4)
	`, f.ID, f.Name, f.CreatedBy, f.CreatedAt)
	return err
}

func (r *FamiliesRepo) GetFamily(ctx context.Context, id string) (families.Family, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return families.Family{}, families.ErrNotFound
	}

	var f families.Family
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at
		FROM families
		WHERE id = $1
	`, id).Scan(&f.ID, &f.Name, &f.CreatedBy, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return families.Family{}, families.ErrNotFound
		}
		return families.Family{}, err
	}
	return f, nil
}

func (r *FamiliesRepo) UpsertUser(ctx context.Context, u families.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, family_id, role, name, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET
			family_id = EXCLUDED.family_id,
			role = EXCLUDED.role,
			name = EXCLUDED.name
	`,
		u.ID,
		toNullString(u.FamilyID),
		string(u.Role),
		u.Name,
		u.CreatedAt,
	)
	return err
}

func (r *FamiliesRepo) GetUser(ctx context.Context, id string) (families.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return families.User{}, families.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, family_id, role, name, created_at
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return families.User{}, families.ErrNotFound
		}
		return families.User{}, err
	}
	return u, nil
}

func (r *FamiliesRepo) ListMembers(ctx context.Context, familyID string) ([]families.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, family_id, role, name, created_at
		FROM users
		WHERE family_id = $1
		ORDER BY (role = 'parent') DESC, created_at ASC, id ASC
	`, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]families.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (families.User, error) {
	var u families.User
	var familyID sql.NullString
	var role string
	if err := s.Scan(&u.ID, &familyID, &role, &u.Name, &u.CreatedAt); err != nil {
		return families.User{}, err
	}
	u.Role = families.Role(role)
	u.FamilyID = fromNullString(familyID)
	return u, nil
}

func toNullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
