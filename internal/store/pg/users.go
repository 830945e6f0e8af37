package pg

import (
	"context"
	"database/sql"

	"jamaat.org/internal/auth"
)

const userColumns = `id, first_name, last_name, username, email, password_hash, role, assigned_mosque, created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u *auth.User) error {
	now := s.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = auth.RoleUser
	}
	_, err := s.db.ExecContext(ctx, `
		insert into users(`+userColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, u.ID, u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash, string(u.Role),
		nullIfEmpty(u.AssignedMosque), u.CreatedAt, u.UpdatedAt)
	return translate(err, auth.ErrNotFound, auth.ErrConflict)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*auth.User, error) {
	return s.queryUser(ctx, `select `+userColumns+` from users where id = $1`, id)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.queryUser(ctx, `select `+userColumns+` from users where email = $1`, email)
}

func (s *Store) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*auth.User, error) {
	return s.queryUser(ctx, `select `+userColumns+` from users where email = $1 or username = $2 limit 1`, email, username)
}

// SetRole changes a user's role and tenant.
func (s *Store) SetRole(ctx context.Context, userID string, role auth.Role, mosqueID string) error {
	res, err := s.db.ExecContext(ctx, `
		update users set role = $2, assigned_mosque = $3, updated_at = $4
		where id = $1
	`, userID, string(role), nullIfEmpty(mosqueID), s.now().UTC())
	if err != nil {
		return translate(err, auth.ErrNotFound, auth.ErrConflict)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) queryUser(ctx context.Context, query string, args ...any) (*auth.User, error) {
	var (
		u      auth.User
		role   string
		mosque sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash,
		&role, &mosque, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err, auth.ErrNotFound, auth.ErrConflict)
	}
	u.Role = auth.Role(role)
	u.AssignedMosque = mosque.String
	return &u, nil
}
