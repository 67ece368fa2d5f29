// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/database"
	"github.com/javajoker/license-registry/internal/router"
)

var skipMigrations bool

func main() {
	rootCmd := &cobra.Command{
		Use:           "license-registry",
		Short:         "Asset license registry API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	rootCmd.PersistentFlags().BoolVar(&skipMigrations, "skip-migrations", false, "Do not create or update tables on start")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the primary and lookup tables, then exit",
		RunE:  runMigrate,
	})

	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Command failed")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	configureLogging(cfg)
	return cfg, nil
}

func configureLogging(cfg *config.Config) {
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	return database.RunMigrations(db)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	// Run database migrations
	if !skipMigrations {
		if err := database.RunMigrations(db); err != nil {
			return err
		}
	}

	// Initialize router
	r, stop, err := router.Initialize(db, cfg)
	if err != nil {
		return err
	}
	defer stop()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logrus.Info("Shutting down server")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited")
	return nil
}
