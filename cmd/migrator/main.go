package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/partyquiz/db"
	"github.com/gokatarajesh/partyquiz/internal/config"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
}

func newRootCmd() *cobra.Command {
	var (
		dir     string
		envFile string
	)

	cmd := &cobra.Command{
		Use:           "migrator",
		Short:         "Apply partyquiz Postgres migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile == "" {
				return
			}
			if err := godotenv.Load(envFile); err != nil {
				log.Warn().Err(err).Str("file", envFile).Msg("could not load env file")
			}
		},
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded set")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "configs/.env", "optional dotenv file")

	run := func(name string, fn migration) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Run goose %s", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), dir, fn)
			},
		}
	}
	cmd.AddCommand(
		run("up", func(conn *sql.DB, dir string) error { return goose.Up(conn, dir) }),
		run("down", func(conn *sql.DB, dir string) error { return goose.Down(conn, dir) }),
		run("status", func(conn *sql.DB, dir string) error { return goose.Status(conn, dir) }),
	)
	return cmd
}

type migration func(conn *sql.DB, dir string) error

func withDB(ctx context.Context, dir string, fn migration) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled() {
		return fmt.Errorf("PG_HOST is required")
	}

	connCfg, err := pgxConfig(cfg.Postgres)
	if err != nil {
		return err
	}
	sqlDB := stdlib.OpenDB(*connCfg)
	defer sqlDB.Close()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if dir == "" {
		goose.SetBaseFS(db.Migrations)
		dir = db.MigrationsDir
	} else {
		goose.SetBaseFS(nil)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	goose.SetTableName("goose_db_version")

	log.Info().
		Str("host", cfg.Postgres.Host).
		Str("database", cfg.Postgres.Database).
		Str("migration_dir", dir).
		Msg("connected to database")

	return fn(sqlDB, dir)
}
