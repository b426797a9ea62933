package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"e_store/internal/app"
	"e_store/internal/config"
	"e_store/internal/logging"
)

var (
	envFile  string
	addr     string
	dbDriver string
	dbURL    string
)

var rootCmd = &cobra.Command{
	Use:           "e_store",
	Short:         "Multi-vendor marketplace server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Run(ctx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup(cmd)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck
		return app.Migrate(cmd.Context(), cfg, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before the environment")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "database driver: postgres or sqlite (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database URL (overrides DATABASE_URL)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address, e.g. :8080 (overrides PORT)")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// setup loads the configuration and builds the logger. Database flags are
// exported to the environment first so they win over the env file.
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		if err := os.Setenv("DB_DRIVER", dbDriver); err != nil {
			return nil, nil, err
		}
	}
	if flags.Changed("db-url") {
		if err := os.Setenv("DATABASE_URL", dbURL); err != nil {
			return nil, nil, err
		}
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, nil, err
	}
	if flags.Changed("addr") {
		cfg.Addr = addr
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
