package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/author"
	"library-backend/pkg/cache"
	"library-backend/pkg/logger"
)

// authorCacheTTL bounds how long a by-name lookup may be served from Redis.
// UpdateBorn invalidates the entry eagerly, the TTL is the backstop.
const authorCacheTTL = 5 * time.Minute

type postgresRepository struct {
	pool  *pgxpool.Pool
	cache cache.Cache
}

// NewPostgresRepository creates the pgx-backed author repository. cache may
// be nil (seed utility, tests); lookups then always hit Postgres.
func NewPostgresRepository(pool *pgxpool.Pool, cache cache.Cache) author.Repository {
	return &postgresRepository{
		pool:  pool,
		cache: cache,
	}
}

func cacheKeyByName(name string) string {
	return "author:name:" + name
}

func (r *postgresRepository) FindOneByName(ctx context.Context, name string) (*author.Author, error) {
	if r.cache != nil {
		var cached author.Author
		found, err := r.cache.Get(ctx, cacheKeyByName(name), &cached)
		if err != nil {
			logger.Error("author cache read failed", err)
		} else if found {
			return &cached, nil
		}
	}

	query := `SELECT id, name, born FROM authors WHERE name = $1`

	var a author.Author
	err := r.pool.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.Born)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("find author by name: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKeyByName(name), a, authorCacheTTL); err != nil {
			logger.Error("author cache write failed", err)
		}
	}

	return &a, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*author.Author, error) {
	query := `SELECT id, name, born FROM authors WHERE id = $1`

	var a author.Author
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Born)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("find author by id: %w", err)
	}

	return &a, nil
}

func (r *postgresRepository) FindAll(ctx context.Context) ([]*author.Author, error) {
	query := `SELECT id, name, born FROM authors ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list authors: %w", err)
	}
	defer rows.Close()

	authors := make([]*author.Author, 0)
	for rows.Next() {
		var a author.Author
		if err := rows.Scan(&a.ID, &a.Name, &a.Born); err != nil {
			return nil, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return authors, nil
}

func (r *postgresRepository) Create(ctx context.Context, a *author.Author) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `INSERT INTO authors (id, name, born) VALUES ($1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.Born)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return author.ErrNameTaken
		}
		return fmt.Errorf("create author: %w", err)
	}

	return nil
}

func (r *postgresRepository) UpdateBorn(ctx context.Context, name string, born int) (*author.Author, error) {
	updated := author.Author{Name: name, Born: &born}
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	query := `UPDATE authors SET born = $1 WHERE name = $2 RETURNING id, name, born`

	var a author.Author
	err := r.pool.QueryRow(ctx, query, born, name).Scan(&a.ID, &a.Name, &a.Born)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, author.ErrAuthorNotFound
		}
		return nil, fmt.Errorf("update author born: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, cacheKeyByName(name)); err != nil {
			logger.Error("author cache invalidation failed", err)
		}
	}

	return &a, nil
}

func (r *postgresRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM authors`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count authors: %w", err)
	}
	return count, nil
}
