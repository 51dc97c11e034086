package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/author"
	"library-backend/internal/domains/book"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the pgx-backed book repository.
func NewPostgresRepository(pool *pgxpool.Pool) book.Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) FindAll(ctx context.Context, f book.Filter) ([]*book.WithAuthor, error) {
	query := `
		SELECT b.id, b.title, b.published, b.author_id, b.genres,
		       a.id, a.name, a.born
		FROM books b
		JOIN authors a ON a.id = b.author_id
	`
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)

	if f.AuthorID != nil {
		args = append(args, *f.AuthorID)
		conditions = append(conditions, fmt.Sprintf("b.author_id = $%d", len(args)))
	}
	if f.Genre != "" {
		args = append(args, f.Genre)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(b.genres)", len(args)))
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY b.title"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := make([]*book.WithAuthor, 0)
	for rows.Next() {
		var b book.WithAuthor
		var a author.Author
		err := rows.Scan(
			&b.ID, &b.Title, &b.Published, &b.AuthorID, &b.Genres,
			&a.ID, &a.Name, &a.Born,
		)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		b.Author = &a
		books = append(books, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return books, nil
}

func (r *postgresRepository) Create(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}

	query := `
		INSERT INTO books (id, title, published, author_id, genres)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query, b.ID, b.Title, b.Published, b.AuthorID, b.Genres)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	return nil
}

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CountByAuthorIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]int{}, nil
	}

	query := `
		SELECT author_id, COUNT(*)
		FROM books
		WHERE author_id = ANY($1)
		GROUP BY author_id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("count books by author: %w", err)
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return counts, nil
}
