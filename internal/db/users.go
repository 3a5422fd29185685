package db

import (
	"context"

	"github.com/JuanMolinaNavarro/Metricas-WhatsApp/internal/models"
)

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, firstName, lastName, role string) (models.User, error) {
	var u models.User
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, username, first_name, last_name, role, is_active
	`, username, passwordHash, firstName, lastName, role).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive)
	return u, err
}

type UserUpdate struct {
	Username     *string
	PasswordHash *string
	FirstName    *string
	LastName     *string
	Role         *string
}

func (s *Store) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (models.User, error) {
	var u models.User
	err := s.Pool.QueryRow(ctx, `
		UPDATE users SET
			username = COALESCE($2, username),
			password_hash = COALESCE($3, password_hash),
			first_name = COALESCE($4, first_name),
			last_name = COALESCE($5, last_name),
			role = COALESCE($6, role),
			updated_at = now()
		WHERE id = $1
		RETURNING id, username, first_name, last_name, role, is_active
	`, id, upd.Username, upd.PasswordHash, upd.FirstName, upd.LastName, upd.Role).
		Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive)
	return u, err
}

func (s *Store) DeactivateUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.Pool.QueryRow(ctx, `
		UPDATE users SET is_active = false, updated_at = now()
		WHERE id = $1
		RETURNING id, username, first_name, last_name, role, is_active
	`, id).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive)
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, username, first_name, last_name, role, is_active
		FROM users
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetActiveUserCredentials returns the active user and its password hash for
// login verification.
func (s *Store) GetActiveUserCredentials(ctx context.Context, username string) (models.User, string, error) {
	var (
		u    models.User
		hash string
	)
	err := s.Pool.QueryRow(ctx, `
		SELECT id, username, first_name, last_name, role, is_active, password_hash
		FROM users
		WHERE username = $1 AND is_active = true
	`, username).Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Role, &u.IsActive, &hash)
	if err != nil {
		return models.User{}, "", err
	}
	return u, hash, nil
}

// UpsertSuperAdmin keeps the configured super-admin account present and
// active on every boot.
func (s *Store) UpsertSuperAdmin(ctx context.Context, username, passwordHash, firstName, lastName string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO users (username, password_hash, first_name, last_name, role, is_active)
		VALUES ($1, $2, $3, $4, 'sa', true)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			role = 'sa',
			is_active = true,
			updated_at = now()
	`, username, passwordHash, firstName, lastName)
	return err
}
