package container

import (
	"context"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"library-backend/internal/config"
	"library-backend/internal/domains/author"
	authorRepo "library-backend/internal/domains/author/repository"
	"library-backend/internal/domains/book"
	bookRepo "library-backend/internal/domains/book/repository"
	"library-backend/internal/domains/user"
	userRepo "library-backend/internal/domains/user/repository"
	"library-backend/internal/graph"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/pubsub"
	"library-backend/pkg/cache"
	"library-backend/pkg/jwt"
	"library-backend/pkg/logger"
)

// Container is the root of the dependency graph. Everything here is a
// process-wide singleton; per-request state (principal, loaders) is built
// by the graph.ContextBuilder instead and never lands in the container.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	Bus        *pubsub.Bus
	JWTManager *jwt.Manager

	AuthorRepo author.Repository
	BookRepo   book.Repository
	UserRepo   user.Repository

	Schema              graphql.Schema
	ContextBuilder      *graph.ContextBuilder
	GraphQLHandler      *graph.Handler
	SubscriptionHandler *graph.SubscriptionHandler

	redis *infraCache.RedisCache
}

// NewContainer initializes every dependency; an error here means the
// application must not start.
func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.Config = cfg

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c.DB = database.NewPostgresDB(cfg.Database)
	if err := c.DB.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// The cache is a read-through optimization; a dead Redis degrades to
	// direct store reads instead of blocking startup.
	redisCache := infraCache.NewRedisCache(cfg.Redis)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Error("redis unavailable, continuing without cache", err)
	} else {
		c.Cache = redisCache
		c.redis = redisCache
	}

	c.Bus = pubsub.NewBus()
	c.JWTManager = jwt.NewManager(cfg.JWT.Secret)

	c.AuthorRepo = authorRepo.NewPostgresRepository(c.DB.Pool, c.Cache)
	c.BookRepo = bookRepo.NewPostgresRepository(c.DB.Pool)
	c.UserRepo = userRepo.NewPostgresRepository(c.DB.Pool)

	resolver := graph.NewResolver(c.AuthorRepo, c.BookRepo, c.UserRepo, c.Bus, c.JWTManager)
	schema, err := graph.NewSchema(resolver)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	c.Schema = schema

	c.ContextBuilder = graph.NewContextBuilder(c.UserRepo, c.BookRepo, c.JWTManager)
	c.GraphQLHandler = graph.NewHandler(schema, c.ContextBuilder)
	c.SubscriptionHandler = graph.NewSubscriptionHandler(schema, c.ContextBuilder)

	return c, nil
}

// Cleanup releases external resources on shutdown.
func (c *Container) Cleanup() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			logger.Error("close redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
}
