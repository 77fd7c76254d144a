// Command migrate manages the library database schema.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres migration target
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// migration source
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pagekeep/pagekeep/internal/infrastructure/config"
)

const defaultMigrationsPath = "internal/infrastructure/database/migrations/postgres"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var env string
	var migrationsPath string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the library database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&env, "env", "dev", "environment name (dev, test, prod)")
	root.PersistentFlags().StringVar(&migrationsPath, "migrations", defaultMigrationsPath, "path to the migration files")

	newMigrator := func() (*migrate.Migrate, error) {
		_ = godotenv.Load()

		if err := config.InitConfig(env); err != nil {
			return nil, fmt.Errorf("failed to init config: %w", err)
		}

		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}

		databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password,
			cfg.Database.Host, cfg.Database.Port,
			cfg.Database.Database, cfg.Database.SSLMode)

		m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create migrator: %w", err)
		}

		return m, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				defer m.Close()

				if err := m.Up(); err != nil {
					if errors.Is(err, migrate.ErrNoChange) {
						cmd.Println("no pending migrations")
						return nil
					}

					return fmt.Errorf("failed to apply migrations: %w", err)
				}

				cmd.Println("migrations applied")

				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				defer m.Close()

				if err := m.Steps(-1); err != nil {
					if errors.Is(err, migrate.ErrNoChange) {
						cmd.Println("nothing to roll back")
						return nil
					}

					return fmt.Errorf("failed to roll back migration: %w", err)
				}

				cmd.Println("rolled back one migration")

				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				m, err := newMigrator()
				if err != nil {
					return err
				}
				defer m.Close()

				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					cmd.Println("no migrations applied yet")
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to read schema version: %w", err)
				}

				cmd.Printf("version %d (dirty: %t)\n", version, dirty)

				return nil
			},
		},
	)

	return root
}
