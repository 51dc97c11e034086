package graph_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/domains/author"
	"library-backend/internal/domains/book"
	"library-backend/internal/domains/user"
	"library-backend/internal/graph"
	"library-backend/internal/pubsub"
	"library-backend/pkg/jwt"
)

// In-memory repositories mirroring the postgres adapters' contract: they
// validate on write, return the domain sentinels, and hand out copies so
// callers cannot mutate the store through returned pointers.

type fakeAuthorRepo struct {
	mu      sync.Mutex
	authors []*author.Author
}

func (r *fakeAuthorRepo) FindOneByName(_ context.Context, name string) (*author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.authors {
		if a.Name == name {
			cp := *a
			return &cp, nil
		}
	}
	return nil, author.ErrAuthorNotFound
}

func (r *fakeAuthorRepo) FindByID(_ context.Context, id uuid.UUID) (*author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.authors {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, author.ErrAuthorNotFound
}

func (r *fakeAuthorRepo) FindAll(_ context.Context) ([]*author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*author.Author, 0, len(r.authors))
	for _, a := range r.authors {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeAuthorRepo) Create(_ context.Context, a *author.Author) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.authors {
		if existing.Name == a.Name {
			return author.ErrNameTaken
		}
	}
	a.ID = uuid.New()
	cp := *a
	r.authors = append(r.authors, &cp)
	return nil
}

func (r *fakeAuthorRepo) UpdateBorn(_ context.Context, name string, born int) (*author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.authors {
		if a.Name == name {
			updated := *a
			updated.Born = &born
			if err := updated.Validate(); err != nil {
				return nil, err
			}
			a.Born = &born
			cp := *a
			return &cp, nil
		}
	}
	return nil, author.ErrAuthorNotFound
}

func (r *fakeAuthorRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.authors), nil
}

type fakeBookRepo struct {
	mu      sync.Mutex
	books   []*book.Book
	authors *fakeAuthorRepo

	countByAuthorCalls int32
}

func (r *fakeBookRepo) FindAll(ctx context.Context, f book.Filter) ([]*book.WithAuthor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*book.WithAuthor{}
	for _, b := range r.books {
		if f.AuthorID != nil && b.AuthorID != *f.AuthorID {
			continue
		}
		if f.Genre != "" && !containsGenre(b.Genres, f.Genre) {
			continue
		}
		a, err := r.authors.FindByID(ctx, b.AuthorID)
		if err != nil {
			return nil, err
		}
		out = append(out, &book.WithAuthor{Book: *b, Author: a})
	}
	return out, nil
}

func (r *fakeBookRepo) Create(ctx context.Context, b *book.Book) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, err := r.authors.FindByID(ctx, b.AuthorID); err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = uuid.New()
	cp := *b
	r.books = append(r.books, &cp)
	return nil
}

func (r *fakeBookRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.books), nil
}

func (r *fakeBookRepo) CountByAuthorIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	atomic.AddInt32(&r.countByAuthorCalls, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		for _, b := range r.books {
			if b.AuthorID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func containsGenre(genres []string, genre string) bool {
	for _, g := range genres {
		if g == genre {
			return true
		}
	}
	return false
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users []*user.User
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}
	u.ID = uuid.New()
	cp := *u
	r.users = append(r.users, &cp)
	return nil
}

// testEnv wires the resolution pipeline over in-memory stores, seeded with
// the demo dataset subset used throughout the suite.
type testEnv struct {
	authors *fakeAuthorRepo
	books   *fakeBookRepo
	users   *fakeUserRepo
	bus     *pubsub.Bus
	tokens  *jwt.Manager
	schema  graphql.Schema
	builder *graph.ContextBuilder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	authors := &fakeAuthorRepo{}
	books := &fakeBookRepo{authors: authors}
	users := &fakeUserRepo{}
	bus := pubsub.NewBus()
	tokens := jwt.NewManager("test-secret")

	schema, err := graph.NewSchema(graph.NewResolver(authors, books, users, bus, tokens))
	require.NoError(t, err)

	env := &testEnv{
		authors: authors,
		books:   books,
		users:   users,
		bus:     bus,
		tokens:  tokens,
		schema:  schema,
		builder: graph.NewContextBuilder(users, books, tokens),
	}

	env.seedAuthor(t, "Robert Martin", 1952)
	env.seedAuthor(t, "Martin Fowler", 1963)
	env.seedAuthorWithoutBirthYear(t, "Sandi Metz")

	env.seedBook(t, "Clean Code", 2008, "Robert Martin", "refactoring")
	env.seedBook(t, "Agile software development", 2002, "Robert Martin", "agile", "patterns", "design")
	env.seedBook(t, "Refactoring, edition 2", 2018, "Martin Fowler", "refactoring")

	env.seedUser(t, "mluukkai", "secret", "refactoring")

	return env
}

func (env *testEnv) seedAuthor(t *testing.T, name string, born int) {
	t.Helper()
	require.NoError(t, env.authors.Create(context.Background(), &author.Author{Name: name, Born: &born}))
}

func (env *testEnv) seedAuthorWithoutBirthYear(t *testing.T, name string) {
	t.Helper()
	require.NoError(t, env.authors.Create(context.Background(), &author.Author{Name: name}))
}

func (env *testEnv) seedBook(t *testing.T, title string, published int, authorName string, genres ...string) {
	t.Helper()
	a, err := env.authors.FindOneByName(context.Background(), authorName)
	require.NoError(t, err)
	require.NoError(t, env.books.Create(context.Background(), &book.Book{
		Title:     title,
		Published: &published,
		AuthorID:  a.ID,
		Genres:    genres,
	}))
}

func (env *testEnv) seedUser(t *testing.T, username, password, favoriteGenre string) *user.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &user.User{Username: username, PasswordHash: string(hash), FavoriteGenre: favoriteGenre}
	require.NoError(t, env.users.Create(context.Background(), u))
	return u
}

func (env *testEnv) principal(t *testing.T, username string) *user.User {
	t.Helper()
	u, err := env.users.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return u
}

// exec runs one operation under a fresh ExecutionContext, the way the HTTP
// handler does per request.
func (env *testEnv) exec(query string, principal *user.User) *graphql.Result {
	ec := &graph.ExecutionContext{
		CurrentUser: principal,
		Loaders:     graph.NewLoaders(env.books),
	}
	return graphql.Do(graphql.Params{
		Schema:        env.schema,
		RequestString: query,
		Context:       graph.WithExecutionContext(context.Background(), ec),
	})
}

func data(t *testing.T, res *graphql.Result) map[string]interface{} {
	t.Helper()
	require.Empty(t, res.Errors, "unexpected errors: %v", res.Errors)
	return res.Data.(map[string]interface{})
}

func errorCode(t *testing.T, res *graphql.Result) string {
	t.Helper()
	require.NotEmpty(t, res.Errors, "expected an error, got data: %v", res.Data)
	code, _ := res.Errors[0].Extensions["code"].(string)
	return code
}
