// Package iam resolves callers to internal user identities. Every
// downstream subsystem keys on the internal id, never on the email a
// client authenticated with.
package iam

import (
	"context"
	"net/http"
	"time"

	"github.com/robypag/scentsmith/pkg/errx"
)

// User is an account known to the platform.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// UserStore is the persistence port for accounts.
type UserStore interface {
	// ByEmail returns the user for an email or a typed not-found error.
	ByEmail(ctx context.Context, email string) (*User, error)

	// ByID returns the user for an internal id or a typed not-found
	// error.
	ByID(ctx context.Context, id string) (*User, error)
}

var (
	iamErrors = errx.NewRegistry("IAM")

	ErrUnauthorized = iamErrors.Register(
		"UNAUTHORIZED",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Authentication required",
	)

	ErrInvalidToken = iamErrors.Register(
		"INVALID_TOKEN",
		errx.TypeAuthorization,
		http.StatusUnauthorized,
		"Token is invalid or expired",
	)

	ErrUserNotFound = iamErrors.Register(
		"USER_NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"No account exists for this identity",
	)
)

// Errors exposes the package registry to infra implementations.
func Errors() *errx.Registry { return iamErrors }
