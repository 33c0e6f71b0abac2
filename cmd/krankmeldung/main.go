// Command krankmeldung runs the sick-leave reporting server.
//
//	krankmeldung [serve]   start the HTTP server (default)
//	krankmeldung seed      create demo users and sick leaves
//	krankmeldung version   print the build version
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/sakif/krankmeldung/internal/auth"
	"github.com/sakif/krankmeldung/internal/config"
	"github.com/sakif/krankmeldung/internal/metrics"
	"github.com/sakif/krankmeldung/internal/notify"
	sqliteRepo "github.com/sakif/krankmeldung/internal/repository/sqlite"
	"github.com/sakif/krankmeldung/internal/seed"
	"github.com/sakif/krankmeldung/internal/server"
	"github.com/sakif/krankmeldung/internal/service"
)

// Set with -ldflags "-X main.Version=... -X main.BuildTime=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "krankmeldung",
		Short:         "Sick-leave reporting server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"YAML config file (default $"+config.EnvConfigPath+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), flags)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create demo users (password \"" + seed.Password + "\") and sick leaves",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd.Context(), flags)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "krankmeldung version %s (build: %s)\n", Version, BuildTime)
			},
		},
	)

	return cmd
}

// loadConfig reads and validates the configuration and builds the logger.
func loadConfig(flags globalFlags) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openDB opens the Record Store, creating the parent directory of a file
// database if needed.
func openDB(cfg *config.Config) (*sqliteRepo.DB, error) {
	if cfg.Database.Path != ":memory:" {
		dir := filepath.Dir(cfg.Database.Path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func runServe(ctx context.Context, flags globalFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Server.Env,
			Release:          Version,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.Error("sentry init failed", slog.String("error", err.Error()))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if !cfg.Auth.GitHub.Enabled() {
		logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set)")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := server.New(cfg, db, metrics.New(), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}

func runSeed(ctx context.Context, flags globalFlags) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return err
	}
	users := service.NewAuthService(db, tokens, auth.NewPasswordService(cfg.Auth.BcryptCost), logger)
	leaves := service.NewSickLeaveService(db, notify.NewComposer(cfg.Notify.Inbox), logger)

	res, err := seed.Run(ctx, users, leaves, time.Now(), logger)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d users and %d sick leaves.\n", res.Users, res.SickLeaves)
	return nil
}
