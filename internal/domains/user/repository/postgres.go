package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/domains/user"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates the pgx-backed user repository.
func NewPostgresRepository(pool *pgxpool.Pool) user.Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT id, username, password_hash, favorite_genre FROM users WHERE username = $1`

	var u user.User
	err := r.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FavoriteGenre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}

	return &u, nil
}

func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	query := `SELECT id, username, password_hash, favorite_genre FROM users WHERE id = $1`

	var u user.User
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FavoriteGenre)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}

	return &u, nil
}

func (r *postgresRepository) Create(ctx context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	query := `INSERT INTO users (id, username, password_hash, favorite_genre) VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.FavoriteGenre)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}
