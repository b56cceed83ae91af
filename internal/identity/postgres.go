package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tasknest/auth-service/internal/database"
)

// PostgresStore persists users in Postgres. Username uniqueness is enforced
// by the tbl_user unique constraint, not by a pre-check.
type PostgresStore struct {
	DB *database.Database
}

func NewPostgresStore(db *database.Database) *PostgresStore {
	return &PostgresStore{
		DB: db,
	}
}

// EnsureSchema creates the user table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS tbl_user (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`

	if _, err := s.DB.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure user schema: %w", err)
	}

	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (User, error) {
	var user User

	query := `
		SELECT id, username, password_hash, role, created_at
		FROM tbl_user
		WHERE username = $1
	`

	err := s.DB.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to find user by username: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	var user User

	query := `
		SELECT id, username, password_hash, role, created_at
		FROM tbl_user
		WHERE id = $1
	`

	err := s.DB.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("failed to find user by id: %w", err)
	}

	return user, nil
}

func (s *PostgresStore) Create(ctx context.Context, user User) error {
	query := `
		INSERT INTO tbl_user (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.DB.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}
