package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/removarr/internal/shared"
)

// SetupConfig writes the config template and suggests fresh secrets.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	secret, err := shared.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	webhook, err := shared.GenerateToken(24)
	if err != nil {
		return fmt.Errorf("failed to generate webhook token: %w", err)
	}

	r.writePlain("✓ Config written to %s\n\n", path)
	r.writePlain("Suggested values:\n")
	r.writePlain("  security.secret_key   = %q\n", secret)
	r.writePlain("  server.webhook_token  = %q\n", webhook)
	r.writePlain("\nNext: removarr setup database\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.config.Database.Path
	if path == "" {
		return fmt.Errorf("%w: database.path is required", shared.ErrInvalidConfig)
	}

	r.logger.Info("initializing database", "path", path)

	db, err := shared.NewDatabase(path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", path)
	r.writePlain("✓ Database ready at %s\n", path)
	return nil
}
