// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/medvault/grants/cmd/app/commands"
	"github.com/medvault/grants/internal/app"
	"github.com/medvault/grants/internal/config"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "grants",
		Usage:   "Time-bounded medical record access grants",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "sweeper",
				Usage: "Start the expiry sweeper daemon",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSweeper(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "expire-grants",
				Usage: "Run a single hard-expiry pass over due grants",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "dry-run",
						Aliases: []string{"n"},
						Value:   false,
						Usage:   "Show how many grants would expire without expiring them",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					logger := container.Logger()
					defer func() {
						if err := container.Shutdown(context.Background()); err != nil {
							logger.Error("failed to shutdown container", slog.Any("error", err))
						}
					}()

					sweeper, err := container.SweeperUseCase(ctx)
					if err != nil {
						return fmt.Errorf("failed to initialize sweeper use case: %w", err)
					}
					grantRepo, err := container.GrantRepository()
					if err != nil {
						return fmt.Errorf("failed to initialize grant repository: %w", err)
					}
					return commands.RunExpireGrants(
						ctx,
						sweeper,
						grantRepo,
						logger,
						os.Stdout,
						cmd.Bool("dry-run"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "revoke-resource",
				Usage: "Revoke every active grant referencing a resource",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "Resource ID (UUID)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					container := app.NewContainer(config.Load())
					logger := container.Logger()
					defer func() {
						if err := container.Shutdown(context.Background()); err != nil {
							logger.Error("failed to shutdown container", slog.Any("error", err))
						}
					}()

					grantUseCase, err := container.GrantUseCase(ctx)
					if err != nil {
						return fmt.Errorf("failed to initialize grant use case: %w", err)
					}
					return commands.RunRevokeResource(
						ctx,
						grantUseCase,
						logger,
						os.Stdout,
						cmd.String("id"),
						cmd.String("format"),
					)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
