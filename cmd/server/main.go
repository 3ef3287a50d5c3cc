package main

import (
	"context"
	"diet-management-backend/internal/config"
	"diet-management-backend/internal/db"
	"diet-management-backend/internal/logger"
	"diet-management-backend/internal/worker"
	"diet-management-backend/redis"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "diet-management",
		Short:         "Patient and diet management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var seedFile string
	seed := &cobra.Command{
		Use:   "seed",
		Short: "Create the users, patients and records described in a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				fixtures, err := db.LoadFixtures(seedFile)
				if err != nil {
					return err
				}
				_, err = a.seeder().Seed(ctx, fixtures)
				return err
			})
		},
	}
	seed.Flags().StringVarP(&seedFile, "file", "f", "fixtures.yaml", "YAML fixtures file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), serve)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create indexes (mongo) or tables (postgres)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
					return a.migrate(ctx)
				})
			},
		},
		seed,
		&cobra.Command{
			Use:   "repair-ids",
			Short: "Normalize the identifiers of every embedded record",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
					report, err := worker.RepairAll(ctx, a.collections(), a.cfg.RepairWorkers, a.log)
					a.log.Info().
						Int64("scanned", report.Scanned).
						Int64("repaired", report.Repaired).
						Int64("items", report.Items).
						Int64("failed", report.Failed).
						Msg("Identifier repair finished")
					return err
				})
			},
		},
	)
	return root
}

// withApp loads configuration, connects the stores, runs fn and closes
// everything again.
func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return err
	}
	log := logger.New(cfg.Environment)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to the store")
		return err
	}
	defer a.close()

	if err := fn(ctx, a); err != nil {
		log.Error().Err(err).Msg("Command failed")
		return err
	}
	return nil
}

func serve(ctx context.Context, a *app) error {
	log := a.log
	if a.cfg.JWTSecretGenerated {
		log.Warn().Msg("JWT_SECRET is not set, using a random secret: tokens will not survive a restart")
	}

	// Schema is kept current on every start, like the migrate command.
	if err := a.migrate(ctx); err != nil {
		return err
	}

	rdb := redis.Connect(ctx, a.cfg.RedisAddress, log)
	if rdb != nil {
		defer rdb.Close()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.cfg.ServerPort),
		Handler:           newRouter(a, redis.NewRevocationStore(rdb)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", a.cfg.ServerPort).Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	log.Info().Msg("Server shutdown complete")
	return nil
}
