package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Skotchmaster/travel_social/internal/repo"
	"github.com/Skotchmaster/travel_social/pkg/config"
	"github.com/Skotchmaster/travel_social/pkg/db"
	"github.com/Skotchmaster/travel_social/pkg/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "auth",
		Short:         "Session and authorization service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file read before the environment")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())
	cmd.AddCommand(newLoginCommand())
	return cmd
}

// app is what every subcommand needs before it can touch the store.
type app struct {
	cfg config.Config
	log *slog.Logger
	db  *gorm.DB
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(log)

	if err := cfg.RequireDurations(); err != nil {
		return nil, err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}
	return &app{cfg: cfg, log: log, db: gdb}, nil
}

func (a *app) close() {
	if err := db.Close(a.db); err != nil {
		a.log.Error("db_close_failed", "error", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users, roles, permissions and refresh token tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := repo.New(a.db).Migrate(ctx); err != nil {
				return err
			}
			a.log.Info("migration_complete")
			return nil
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default roles, permissions and accounts into an empty store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			r := repo.New(a.db)
			if err := r.Migrate(ctx); err != nil {
				return err
			}
			return r.Seed(logging.IntoContext(ctx, a.log), repo.DefaultSeedAccounts)
		},
	}
}
