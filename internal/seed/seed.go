// Package seed fills the blog database with demo users and posts for
// development and manual testing.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"myblog/internal/auth"
	"myblog/internal/database"
	"myblog/internal/models"
	"myblog/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded account logs in with.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	NumUsers int
	NumPosts int
	// Clean drops and recreates the tables first.
	Clean bool
	// Password defaults to DefaultPassword.
	Password string
	// MaxDays spreads post creation times over the last MaxDays days.
	MaxDays int
	// RandSeed makes the generated content reproducible when non-zero.
	RandSeed int64
}

// Result lists what was created.
type Result struct {
	Users []models.User
	Posts []models.Post
}

// Seeder builds demo records and writes them through the repositories.
type Seeder struct {
	db     *gorm.DB
	users  repository.UserRepository
	posts  repository.PostRepository
	hasher *auth.PasswordHasher
	log    *slog.Logger
}

// New creates a Seeder bound to db.
func New(db *gorm.DB, users repository.UserRepository, posts repository.PostRepository, hasher *auth.PasswordHasher, log *slog.Logger) *Seeder {
	if log == nil {
		log = slog.Default()
	}
	return &Seeder{db: db, users: users, posts: posts, hasher: hasher, log: log}
}

// Seed creates opts.NumUsers accounts and opts.NumPosts posts spread over them.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if opts.NumPosts > 0 && opts.NumUsers <= 0 {
		return nil, fmt.Errorf("posts need at least one user")
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)

	s.log.InfoContext(ctx, "Starting database seeding",
		slog.Int("users", opts.NumUsers), slog.Int("posts", opts.NumPosts), slog.Bool("clean", opts.Clean))

	if opts.Clean {
		if err := database.Reset(s.db); err != nil {
			return nil, fmt.Errorf("failed to clear existing data: %w", err)
		}
	}

	users, err := s.createUsers(ctx, faker, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	s.log.InfoContext(ctx, "Users created", slog.Int("count", len(users)))

	posts, err := s.createPosts(ctx, faker, users, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	s.log.InfoContext(ctx, "Posts created", slog.Int("count", len(posts)))

	return &Result{Users: users, Posts: posts}, nil
}

func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, opts Options) ([]models.User, error) {
	// Seeded accounts share a single hash.
	hash, err := s.hasher.Hash(opts.Password)
	if err != nil {
		return nil, err
	}

	offset, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		username := Username(faker.FirstName(), int(offset)+i+1)
		user := models.User{
			Username:     username,
			Email:        fmt.Sprintf("%s@%s", username, faker.DomainName()),
			PasswordHash: hash,
			ImageFile:    models.DefaultImageFile,
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return nil, fmt.Errorf("user %s: %w", username, err)
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(ctx context.Context, faker *gofakeit.Faker, users []models.User, opts Options) ([]models.Post, error) {
	posts := make([]models.Post, 0, opts.NumPosts)
	now := time.Now()
	for i := 0; i < opts.NumPosts; i++ {
		author := users[faker.Number(0, len(users)-1)]
		post := models.Post{
			Title:     Title(faker.Sentence(faker.Number(3, 8))),
			Content:   faker.Paragraph(faker.Number(1, 3), faker.Number(2, 5), 12, "\n\n"),
			UserID:    author.ID,
			CreatedAt: now.Add(-time.Duration(faker.Number(0, opts.MaxDays*24*60)) * time.Minute),
		}
		if err := s.posts.Create(ctx, &post); err != nil {
			return nil, err
		}
		post.Author = author
		posts = append(posts, post)
	}
	return posts, nil
}

// Username derives a unique, valid username from a first name and a sequence number.
func Username(firstName string, n int) string {
	base := strings.ToLower(strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return r
		}
		return -1
	}, firstName))
	if base == "" {
		base = "user"
	}
	suffix := fmt.Sprintf("%04d", n)
	if limit := models.UsernameMaxLen - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	return base + suffix
}

// Title trims a generated sentence to the post title limit.
func Title(sentence string) string {
	sentence = strings.TrimSpace(strings.TrimSuffix(sentence, "."))
	if utf8.RuneCountInString(sentence) <= models.TitleMaxLen {
		return sentence
	}
	return strings.TrimSpace(string([]rune(sentence)[:models.TitleMaxLen]))
}
