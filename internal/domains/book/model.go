package book

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"library-backend/internal/domains/author"
)

// Book is the domain entity backing the books collection. A book references
// its author by id; the author lives independently of any book. Books are
// immutable once created.
type Book struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Published *int      `json:"published,omitempty" db:"published"`
	AuthorID  uuid.UUID `json:"author_id" db:"author_id"`
	Genres    []string  `json:"genres" db:"genres"`
}

// WithAuthor is the read projection handed to the API layer: the book plus
// a read-only copy of its author, resolved by the store in one join.
type WithAuthor struct {
	Book
	Author *author.Author `json:"author"`
}

// Filter narrows FindAll. A nil AuthorID means no author filter; both
// filters combine with logical AND when set.
type Filter struct {
	AuthorID *uuid.UUID
	Genre    string
}

// Validate enforces the field rules the store layer owns.
func (b Book) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title,
			validation.Required.Error("title is required"),
			validation.Length(1, 500),
		),
		validation.Field(&b.AuthorID,
			validation.Required.Error("author reference is required"),
		),
		validation.Field(&b.Published,
			validation.Min(0).Error("published must be a positive year"),
		),
		validation.Field(&b.Genres,
			validation.Each(validation.Required.Error("genre tags must not be empty")),
		),
	)
}
