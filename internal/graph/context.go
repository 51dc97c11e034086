package graph

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"library-backend/internal/domains/book"
	"library-backend/internal/domains/user"
	"library-backend/pkg/dataloader"
	"library-backend/pkg/jwt"
)

// Loaders bundles the per-request batch loaders. A fresh instance is built
// for every ExecutionContext; none of its caches outlive the request.
type Loaders struct {
	BookCountByAuthor *dataloader.Loader[uuid.UUID, int]
}

// NewLoaders builds loaders over the given book store.
func NewLoaders(books book.Repository) *Loaders {
	return &Loaders{
		BookCountByAuthor: dataloader.New(func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
			return books.CountByAuthorIDs(ctx, ids)
		}),
	}
}

// ExecutionContext is the per-operation bundle of authenticated principal
// and request-scoped loaders. One instance per inbound operation, or one
// per connection for subscriptions; never reused across requests.
//
// CurrentUser is nil for anonymous requests. Queries tolerate that;
// protected mutations check it before touching the store.
type ExecutionContext struct {
	CurrentUser *user.User
	Loaders     *Loaders
}

// ContextBuilder turns raw transport credential material into an
// ExecutionContext.
type ContextBuilder struct {
	users  user.Repository
	books  book.Repository
	tokens *jwt.Manager
}

// NewContextBuilder wires the builder's collaborators.
func NewContextBuilder(users user.Repository, books book.Repository, tokens *jwt.Manager) *ContextBuilder {
	return &ContextBuilder{users: users, books: books, tokens: tokens}
}

// Build verifies the bearer credential leniently: a missing, malformed,
// expired or otherwise invalid token yields an anonymous context instead of
// an error. Authorization failures surface later, at the operation that
// actually requires a principal. Every call allocates fresh loaders.
func (b *ContextBuilder) Build(ctx context.Context, authorization string) *ExecutionContext {
	ec := &ExecutionContext{Loaders: NewLoaders(b.books)}

	token, ok := bearerToken(authorization)
	if !ok {
		return ec
	}

	claims, err := b.tokens.Validate(token)
	if err != nil {
		return ec
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return ec
	}

	u, err := b.users.FindByID(ctx, id)
	if err != nil {
		return ec
	}

	ec.CurrentUser = u
	return ec
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

type contextKey struct{}

// WithExecutionContext attaches ec to ctx for the resolvers to pick up.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ec)
}

// FromContext returns the request's ExecutionContext, or nil when the
// operation was executed outside the transport layer.
func FromContext(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(contextKey{}).(*ExecutionContext)
	return ec
}
