package book

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the store adapter contract for the books collection.
type Repository interface {
	// FindAll returns books matching the filter, each with its author
	// resolved. An author filter pointing at a nonexistent author is the
	// caller's concern; the repository just matches ids.
	FindAll(ctx context.Context, f Filter) ([]*WithAuthor, error)

	// Create validates and inserts a new book. The referenced author must
	// exist; the insert fails otherwise and nothing is written.
	Create(ctx context.Context, b *Book) error

	// Count returns the total number of books.
	Count(ctx context.Context) (int, error)

	// CountByAuthorIDs aggregates book counts grouped by author id in one
	// query. Authors with no books are absent from the map; callers treat
	// that as zero.
	CountByAuthorIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error)
}
