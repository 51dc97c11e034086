package user

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the store adapter contract for the users collection.
type Repository interface {
	// FindByUsername locates a user by its unique username.
	// Returns ErrUserNotFound when no row matches.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID locates a user by id. Returns ErrUserNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// Create validates and inserts a new user.
	Create(ctx context.Context, u *User) error
}
