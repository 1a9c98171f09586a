package iaminfra

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/robypag/scentsmith/pkg/errx"
	"github.com/robypag/scentsmith/pkg/iam"
)

// PostgresUserStore implements iam.UserStore over sqlx.
type PostgresUserStore struct {
	db *sqlx.DB
}

// NewPostgresUserStore creates the store.
func NewPostgresUserStore(db *sqlx.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// EnsureSchema creates the users table if it does not exist.
func (s *PostgresUserStore) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email      TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errx.Wrap(err, "ensuring users schema", errx.TypeInternal)
	}
	return nil
}

// ByEmail implements iam.UserStore.
func (s *PostgresUserStore) ByEmail(ctx context.Context, email string) (*iam.User, error) {
	var user iam.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, email, name, created_at FROM users WHERE email = $1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, iam.Errors().New(iam.ErrUserNotFound).WithDetail("email", email)
	}
	if err != nil {
		return nil, errx.Wrap(err, "loading user by email", errx.TypeInternal)
	}
	return &user, nil
}

// ByID implements iam.UserStore.
func (s *PostgresUserStore) ByID(ctx context.Context, id string) (*iam.User, error) {
	var user iam.User
	err := s.db.GetContext(ctx, &user,
		`SELECT id, email, name, created_at FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, iam.Errors().New(iam.ErrUserNotFound).WithDetail("id", id)
	}
	if err != nil {
		return nil, errx.Wrap(err, "loading user by id", errx.TypeInternal)
	}
	return &user, nil
}
