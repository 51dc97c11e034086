package graph

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/domains/author"
	"library-backend/internal/domains/book"
	"library-backend/internal/domains/user"
	"library-backend/internal/pubsub"
	"library-backend/pkg/jwt"
)

// TopicBookAdded is the event bus topic carrying newly created books.
const TopicBookAdded = "BOOK_ADDED"

// defaultPassword is assigned to accounts registered without a password,
// mirroring the open-registration behaviour of the original service.
const defaultPassword = "secret"

// Resolver holds the collaborators every field resolver needs. It is
// stateless; all per-request state lives in the ExecutionContext.
type Resolver struct {
	authors author.Repository
	books   book.Repository
	users   user.Repository
	bus     *pubsub.Bus
	tokens  *jwt.Manager
}

// NewResolver wires the resolution pipeline's collaborators.
func NewResolver(authors author.Repository, books book.Repository, users user.Repository, bus *pubsub.Bus, tokens *jwt.Manager) *Resolver {
	return &Resolver{
		authors: authors,
		books:   books,
		users:   users,
		bus:     bus,
		tokens:  tokens,
	}
}

// NewSchema builds the executable schema. Operation, argument and field
// names are the wire contract; renaming any of them breaks clients.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	authorType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Author",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*author.Author).Name, nil
				},
			},
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*author.Author).ID.String(), nil
				},
			},
			"born": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*author.Author).Born, nil
				},
			},
			// bookCount is derived, never stored, and always resolved
			// through the batch loader so N sibling authors cost one
			// aggregate query.
			"bookCount": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.Int),
				Resolve: r.resolveBookCount,
			},
		},
	})

	bookType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Book",
		Fields: graphql.Fields{
			"title": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*book.WithAuthor).Title, nil
				},
			},
			"published": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*book.WithAuthor).Published, nil
				},
			},
			"author": &graphql.Field{
				Type: graphql.NewNonNull(authorType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*book.WithAuthor).Author, nil
				},
			},
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*book.WithAuthor).ID.String(), nil
				},
			},
			"genres": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*book.WithAuthor).Genres, nil
				},
			},
		},
	})

	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"username": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*user.User).Username, nil
				},
			},
			"favoriteGenre": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*user.User).FavoriteGenre, nil
				},
			},
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*user.User).ID.String(), nil
				},
			},
		},
	})

	tokenType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Token",
		Fields: graphql.Fields{
			"value": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(string), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"bookCount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					count, err := r.books.Count(p.Context)
					if err != nil {
						return nil, errInternal(err)
					}
					return count, nil
				},
			},
			"authorCount": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Int),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					count, err := r.authors.Count(p.Context)
					if err != nil {
						return nil, errInternal(err)
					}
					return count, nil
				},
			},
			"allBooks": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(bookType))),
				Args: graphql.FieldConfigArgument{
					"author": &graphql.ArgumentConfig{Type: graphql.String},
					"genre":  &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveAllBooks,
			},
			"allAuthors": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(authorType))),
				Resolve: r.resolveAllAuthors,
			},
			"me": &graphql.Field{
				Type: userType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ec := FromContext(p.Context)
					if ec == nil || ec.CurrentUser == nil {
						return nil, nil
					}
					return ec.CurrentUser, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addBook": &graphql.Field{
				Type: bookType,
				Args: graphql.FieldConfigArgument{
					"title":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"published": &graphql.ArgumentConfig{Type: graphql.Int},
					"author":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"genres":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.String)))},
				},
				Resolve: r.resolveAddBook,
			},
			"editAuthor": &graphql.Field{
				Type: authorType,
				Args: graphql.FieldConfigArgument{
					"name":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"setBornTo": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.resolveEditAuthor,
			},
			"createUser": &graphql.Field{
				Type: userType,
				Args: graphql.FieldConfigArgument{
					"username":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"favoriteGenre": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password":      &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveCreateUser,
			},
			"login": &graphql.Field{
				Type: tokenType,
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveLogin,
			},
		},
	})

	subscriptionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"bookAdded": &graphql.Field{
				Type: graphql.NewNonNull(bookType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source, nil
				},
				Subscribe: r.subscribeBookAdded,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        queryType,
		Mutation:     mutationType,
		Subscription: subscriptionType,
	})
}

func (r *Resolver) resolveBookCount(p graphql.ResolveParams) (interface{}, error) {
	a := p.Source.(*author.Author)

	ec := FromContext(p.Context)
	if ec == nil {
		return nil, errInternal(errors.New("missing execution context"))
	}

	count, err := ec.Loaders.BookCountByAuthor.Load(p.Context, a.ID)()
	if err != nil {
		return nil, errInternal(err)
	}
	return count, nil
}

func (r *Resolver) resolveAllAuthors(p graphql.ResolveParams) (interface{}, error) {
	authors, err := r.authors.FindAll(p.Context)
	if err != nil {
		return nil, errInternal(err)
	}

	r.preloadBookCounts(p, authorIDs(authors))
	return authors, nil
}

func (r *Resolver) resolveAllBooks(p graphql.ResolveParams) (interface{}, error) {
	var filter book.Filter

	if name, ok := p.Args["author"].(string); ok && name != "" {
		a, err := r.authors.FindOneByName(p.Context, name)
		if errors.Is(err, author.ErrAuthorNotFound) {
			// An unknown author filter matches nothing. Deterministically
			// empty, never an error and never the unfiltered set.
			return []*book.WithAuthor{}, nil
		}
		if err != nil {
			return nil, errInternal(err)
		}
		filter.AuthorID = &a.ID
	}
	if genre, ok := p.Args["genre"].(string); ok {
		filter.Genre = genre
	}

	books, err := r.books.FindAll(p.Context, filter)
	if err != nil {
		return nil, errInternal(err)
	}

	ids := make([]uuid.UUID, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.AuthorID)
	}
	r.preloadBookCounts(p, ids)

	return books, nil
}

func (r *Resolver) resolveAddBook(p graphql.ResolveParams) (interface{}, error) {
	ec := FromContext(p.Context)
	if ec == nil || ec.CurrentUser == nil {
		return nil, errUnauthenticated()
	}

	name := p.Args["author"].(string)
	a, err := r.authors.FindOneByName(p.Context, name)
	if errors.Is(err, author.ErrAuthorNotFound) {
		return nil, errNotFound(fmt.Sprintf("author %s not found", name), "author", name)
	}
	if err != nil {
		return nil, errInternal(err)
	}

	b := &book.Book{
		Title:    p.Args["title"].(string),
		AuthorID: a.ID,
		Genres:   stringSlice(p.Args["genres"]),
	}
	if published, ok := p.Args["published"].(int); ok {
		b.Published = &published
	}

	if err := r.books.Create(p.Context, b); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return nil, fromValidationErrors(verrs)
		}
		return nil, errInternal(err)
	}

	populated := &book.WithAuthor{Book: *b, Author: a}

	// Fan out only after the write succeeded. Publish never blocks on
	// subscriber delivery.
	r.bus.Publish(TopicBookAdded, pubsub.Event{
		Kind:    TopicBookAdded,
		At:      time.Now(),
		Payload: populated,
	})

	return populated, nil
}

func (r *Resolver) resolveEditAuthor(p graphql.ResolveParams) (interface{}, error) {
	ec := FromContext(p.Context)
	if ec == nil || ec.CurrentUser == nil {
		return nil, errUnauthenticated()
	}

	name := p.Args["name"].(string)
	born := p.Args["setBornTo"].(int)

	updated, err := r.authors.UpdateBorn(p.Context, name, born)
	if err != nil {
		if errors.Is(err, author.ErrAuthorNotFound) {
			return nil, errNotFound(fmt.Sprintf("author %s not found", name), "name", name)
		}
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return nil, fromValidationErrors(verrs)
		}
		return nil, errInternal(err)
	}

	return updated, nil
}

func (r *Resolver) resolveCreateUser(p graphql.ResolveParams) (interface{}, error) {
	password, _ := p.Args["password"].(string)
	if password == "" {
		password = defaultPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, errInternal(err)
	}

	u := &user.User{
		Username:      p.Args["username"].(string),
		FavoriteGenre: p.Args["favoriteGenre"].(string),
		PasswordHash:  string(hash),
	}

	if err := r.users.Create(p.Context, u); err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			return nil, errBadUserInput("username already exists", "username")
		}
		var verrs validation.Errors
		if errors.As(err, &verrs) {
			return nil, fromValidationErrors(verrs)
		}
		return nil, errInternal(err)
	}

	return u, nil
}

func (r *Resolver) resolveLogin(p graphql.ResolveParams) (interface{}, error) {
	username := p.Args["username"].(string)
	password := p.Args["password"].(string)

	u, err := r.users.FindByUsername(p.Context, username)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, errWrongCredentials()
	}
	if err != nil {
		return nil, errInternal(err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, errWrongCredentials()
	}

	value, err := r.tokens.Generate(u.ID.String(), u.Username)
	if err != nil {
		return nil, errInternal(err)
	}

	return value, nil
}

// subscribeBookAdded registers a bus listener for the connection's lifetime
// and adapts it to the executor's source-event channel. Cancelling the
// operation context deregisters the listener deterministically.
func (r *Resolver) subscribeBookAdded(p graphql.ResolveParams) (interface{}, error) {
	sub := r.bus.Subscribe(TopicBookAdded)
	out := make(chan interface{})

	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-p.Context.Done():
				return
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- ev.Payload:
				case <-p.Context.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// preloadBookCounts announces every author id of a list result to the batch
// loader, so the first bookCount field flushes one aggregate query for all
// of them.
func (r *Resolver) preloadBookCounts(p graphql.ResolveParams, ids []uuid.UUID) {
	if ec := FromContext(p.Context); ec != nil {
		ec.Loaders.BookCountByAuthor.Preload(ids...)
	}
}

func authorIDs(authors []*author.Author) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(authors))
	for _, a := range authors {
		ids = append(ids, a.ID)
	}
	return ids
}

func stringSlice(arg interface{}) []string {
	values, ok := arg.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
