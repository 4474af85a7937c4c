package command

import (
	"context"
	"fmt"

	"myblog/internal/auth"
	"myblog/internal/bootstrap"
	"myblog/internal/database"
	"myblog/internal/repository"
	"myblog/internal/seed"

	"github.com/urfave/cli/v2"
)

const listPageSize = 50

// InitDBCommand drops and recreates the blog tables.
func InitDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "initdb",
		Usage: "Drop and recreate the users and posts tables",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm that all existing data may be destroyed",
			},
		},
		Action: initDB,
	}
}

func initDB(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("initdb destroys all users and posts; rerun with --yes")
	}
	return withRuntime(c, func(_ context.Context, rt *bootstrap.Runtime) error {
		if err := database.Reset(rt.DB); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "Database initialized")
		return nil
	})
}

// SeedCommand fills the database with fake users and posts.
func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create demo users and posts",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "users",
				Usage: "Number of users to create",
				Value: 5,
			},
			&cli.IntFlag{
				Name:  "posts",
				Usage: "Number of posts to create",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: "Drop and recreate the tables first",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Password for every seeded account",
				Value: seed.DefaultPassword,
			},
			&cli.Int64Flag{
				Name:  "rand-seed",
				Usage: "Seed for reproducible content (0 picks one)",
			},
		},
		Action: seedDB,
	}
}

func seedDB(c *cli.Context) error {
	if c.Int("users") < 0 || c.Int("posts") < 0 {
		return fmt.Errorf("--users and --posts must not be negative")
	}
	return withRuntime(c, func(ctx context.Context, rt *bootstrap.Runtime) error {
		seeder := seed.New(
			rt.DB,
			repository.NewUserRepository(rt.DB, rt.Cache),
			repository.NewPostRepository(rt.DB),
			auth.NewPasswordHasher(rt.Config.BcryptCost),
			rt.Logger,
		)
		res, err := seeder.Seed(ctx, seed.Options{
			NumUsers: c.Int("users"),
			NumPosts: c.Int("posts"),
			Clean:    c.Bool("clean"),
			Password: c.String("password"),
			RandSeed: c.Int64("rand-seed"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Seeded %d users and %d posts\n", len(res.Users), len(res.Posts))
		for _, u := range res.Users {
			fmt.Fprintf(c.App.Writer, "  %s\n", u.Email)
		}
		return nil
	})
}

// ListCommand prints every user and post.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Print all users and posts",
		Action:  listAll,
	}
}

func listAll(c *cli.Context) error {
	return withRuntime(c, func(ctx context.Context, rt *bootstrap.Runtime) error {
		w := c.App.Writer

		users, err := repository.NewUserRepository(rt.DB, rt.Cache).List(ctx, 0, 0)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "Users:")
		for _, u := range users {
			fmt.Fprintf(w, "  %s\n", u)
		}

		posts := repository.NewPostRepository(rt.DB)
		fmt.Fprintln(w, "Posts:")
		for page := 1; ; page++ {
			p, err := posts.List(ctx, repository.PostFilter{}, page, listPageSize)
			if err != nil {
				return err
			}
			for _, post := range p.Items {
				fmt.Fprintf(w, "  %s by %s\n", post, post.Author.Username)
			}
			if !p.HasNext() {
				return nil
			}
		}
	})
}
