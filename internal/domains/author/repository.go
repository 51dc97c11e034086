package author

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the store adapter contract for the authors collection.
// Implementations own field validation; business rules live above.
type Repository interface {
	// FindOneByName locates an author by its unique name.
	// Returns ErrAuthorNotFound when no row matches.
	FindOneByName(ctx context.Context, name string) (*Author, error)

	// FindByID locates an author by id. Returns ErrAuthorNotFound when missing.
	FindByID(ctx context.Context, id uuid.UUID) (*Author, error)

	// FindAll returns every author.
	FindAll(ctx context.Context) ([]*Author, error)

	// Create validates and inserts a new author.
	Create(ctx context.Context, a *Author) error

	// UpdateBorn locates an author by name, sets its birth year and returns
	// the updated row. Returns ErrAuthorNotFound when no row matches.
	UpdateBorn(ctx context.Context, name string, born int) (*Author, error)

	// Count returns the total number of authors.
	Count(ctx context.Context) (int, error)
}
