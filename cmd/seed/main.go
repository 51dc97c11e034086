// Command seed wipes and repopulates the library database with the demo
// dataset: five authors, seven books and one login-capable user.
package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"library-backend/internal/config"
	"library-backend/internal/domains/author"
	authorRepo "library-backend/internal/domains/author/repository"
	"library-backend/internal/domains/book"
	bookRepo "library-backend/internal/domains/book/repository"
	"library-backend/internal/domains/user"
	userRepo "library-backend/internal/domains/user/repository"
	"library-backend/internal/infrastructure/database"
	"library-backend/pkg/logger"
)

type seedAuthor struct {
	name string
	born *int
}

type seedBook struct {
	title     string
	published int
	author    string
	genres    []string
}

func intPtr(v int) *int { return &v }

var authors = []seedAuthor{
	{name: "Robert Martin", born: intPtr(1952)},
	{name: "Martin Fowler", born: intPtr(1963)},
	{name: "Fyodor Dostoevsky", born: intPtr(1821)},
	{name: "Joshua Kerievsky"}, // birthyear not known
	{name: "Sandi Metz"},      // birthyear not known
}

var books = []seedBook{
	{title: "Clean Code", published: 2008, author: "Robert Martin", genres: []string{"refactoring"}},
	{title: "Agile software development", published: 2002, author: "Robert Martin", genres: []string{"agile", "patterns", "design"}},
	{title: "Refactoring, edition 2", published: 2018, author: "Martin Fowler", genres: []string{"refactoring"}},
	{title: "Refactoring to patterns", published: 2008, author: "Joshua Kerievsky", genres: []string{"refactoring", "patterns"}},
	{title: "Practical Object-Oriented Design, An Agile Primer Using Ruby", published: 2012, author: "Sandi Metz", genres: []string{"refactoring", "design"}},
	{title: "Crime and punishment", published: 1866, author: "Fyodor Dostoevsky", genres: []string{"classic", "crime"}},
	{title: "The Demon", published: 1872, author: "Fyodor Dostoevsky", genres: []string{"classic", "revolution"}},
}

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", err)
	}
	logger.Init(cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db := database.NewPostgresDB(cfg.Database)
	if err := db.Connect(ctx); err != nil {
		logger.Fatal("connect database", err)
	}
	defer db.Close()

	if err := populate(ctx, db); err != nil {
		logger.Fatal("failed to populate database", err)
	}

	logger.Info("database populated successfully", nil)
}

func populate(ctx context.Context, db *database.PostgresDB) error {
	// Books reference authors, so they go first.
	if _, err := db.Pool.Exec(ctx, `DELETE FROM books`); err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, `DELETE FROM authors`); err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, `DELETE FROM users`); err != nil {
		return err
	}

	authorsRepo := authorRepo.NewPostgresRepository(db.Pool, nil)
	booksRepo := bookRepo.NewPostgresRepository(db.Pool)
	usersRepo := userRepo.NewPostgresRepository(db.Pool)

	for _, a := range authors {
		if err := authorsRepo.Create(ctx, &author.Author{Name: a.name, Born: a.born}); err != nil {
			return err
		}
	}

	for _, b := range books {
		owner, err := authorsRepo.FindOneByName(ctx, b.author)
		if err != nil {
			return err
		}
		published := b.published
		err = booksRepo.Create(ctx, &book.Book{
			Title:     b.title,
			Published: &published,
			AuthorID:  owner.ID,
			Genres:    b.genres,
		})
		if err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), 12)
	if err != nil {
		return err
	}
	return usersRepo.Create(ctx, &user.User{
		Username:      "mluukkai",
		FavoriteGenre: "refactoring",
		PasswordHash:  string(hash),
	})
}
