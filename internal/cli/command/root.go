// Package command provides the blogctl administration commands.
//
// Every command loads the same configuration as the server, so it acts on
// the database the server is configured for unless a flag overrides it.
package command

import (
	"context"
	"fmt"
	"time"

	"myblog/internal/bootstrap"
	"myblog/internal/config"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "blogctl",
		Usage:   "Blog database administration",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InitDBCommand(),
			SeedCommand(),
			ListCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "db-driver",
			Usage: "Override DB_DRIVER (sqlite or postgres)",
		},
		&cli.StringFlag{
			Name:  "db-path",
			Usage: "Override DB_PATH for the sqlite driver",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Maximum time a command may run",
			Value: 5 * time.Minute,
		},
	}
}

// withRuntime loads configuration, applies the global overrides and runs fn
// with a runtime that is closed afterwards.
func withRuntime(c *cli.Context, fn func(ctx context.Context, rt *bootstrap.Runtime) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if driver := c.String("db-driver"); driver != "" {
		cfg.DBDriver = driver
	}
	if path := c.String("db-path"); path != "" {
		cfg.DBPath = path
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close(context.Background()) }()

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()
	return fn(ctx, rt)
}
