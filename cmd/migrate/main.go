package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/tailaid/tailaid-api/internal/config"
	"github.com/tailaid/tailaid-api/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

type migrateFlags struct {
	dsn string
	dir string
}

func newRootCommand() *cobra.Command {
	var flags migrateFlags

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the TailAid postgres schema",
		Long:          "Applies the SQL migrations embedded in the binary. Connection settings come from config.json and DATABASE_* environment variables unless --dsn is given.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Postgres connection string (overrides config)")

	root.AddCommand(
		dbCommand(&flags, "up", "Apply all pending migrations", func(ctx context.Context, db *sql.DB) error {
			if err := goose.UpContext(ctx, db, "."); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		dbCommand(&flags, "down", "Roll back the latest migration", func(ctx context.Context, db *sql.DB) error {
			if err := goose.DownContext(ctx, db, "."); err != nil {
				return fmt.Errorf("failed to run down migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		}),
		dbCommand(&flags, "status", "Show applied and pending migrations", func(ctx context.Context, db *sql.DB) error {
			if err := goose.StatusContext(ctx, db, "."); err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return nil
		}),
		dbCommand(&flags, "version", "Print the current schema version", func(ctx context.Context, db *sql.DB) error {
			if err := goose.VersionContext(ctx, db, "."); err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			return nil
		}),
		createCommand(&flags),
	)

	return root
}

// dbCommand builds a subcommand that runs fn against the embedded migrations
func dbCommand(flags *migrateFlags, use, short string, fn func(ctx context.Context, db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context(), flags.dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("failed to set dialect: %w", err)
			}
			return fn(cmd.Context(), db)
		},
	}
}

// createCommand writes a new sequential SQL migration into the source tree
func createCommand(flags *migrateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			goose.SetBaseFS(nil)
			goose.SetSequential(true)
			if err := goose.Create(nil, flags.dir, args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Printf("Migration created: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.dir, "dir", "./migrations", "Directory holding the migration sources")
	return cmd
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if cfg.Database.Host == "" {
			return nil, fmt.Errorf("database.host (DATABASE_HOST) is not set; migrations only run against postgres")
		}
		dsn = cfg.Database.ConnectionString()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
