package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"library-backend/internal/config"
	"library-backend/pkg/logger"
)

// PostgresDB wraps the pgx connection pool and its lifecycle. The pool is
// the only store-level shared state in the process and is safe for
// concurrent use by every in-flight request.
type PostgresDB struct {
	Pool   *pgxpool.Pool
	config config.DatabaseConfig
}

// NewPostgresDB creates an unconnected wrapper; call Connect before use.
func NewPostgresDB(cfg config.DatabaseConfig) *PostgresDB {
	return &PostgresDB{config: cfg}
}

func (db *PostgresDB) connString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s",
		db.config.User,
		db.config.Password,
		db.config.Host,
		db.config.Port,
		db.config.Database,
	)
}

// Connect establishes the pool, retrying with exponential backoff so a
// briefly unavailable database does not kill startup.
func (db *PostgresDB) Connect(ctx context.Context) error {
	poolConfig, err := pgxpool.ParseConfig(db.connString())
	if err != nil {
		return fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(db.config.MaxConns)
	poolConfig.MinConns = int32(db.config.MinConns)
	poolConfig.ConnConfig.ConnectTimeout = db.config.ConnectTimeout

	var lastErr error
	for attempt := 1; attempt <= db.config.MaxRetries; attempt++ {
		connectCtx, cancel := context.WithTimeout(ctx, db.config.ConnectTimeout)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		cancel()

		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				db.Pool = pool
				logger.Info("database connected", map[string]interface{}{"attempt": attempt})
				return nil
			}
			pool.Close()
		}
		lastErr = err

		if attempt < db.config.MaxRetries {
			delay := db.config.RetryDelay * time.Duration(1<<uint(attempt-1))
			logger.Info("database connect failed, retrying", map[string]interface{}{
				"attempt": attempt,
				"delay":   delay.String(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("connection cancelled: %w", ctx.Err())
			}
		}
	}

	return fmt.Errorf("failed to connect after %d attempts: %w", db.config.MaxRetries, lastErr)
}

// HealthCheck verifies the pool is alive. Used by the health endpoint.
func (db *PostgresDB) HealthCheck(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(healthCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the pool.
func (db *PostgresDB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
