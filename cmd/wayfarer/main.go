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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/bootstrap"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/observability/logger"
	"github.com/wayfarerhq/wayfarer/internal/store/pg"
	migrations "github.com/wayfarerhq/wayfarer/migrations/postgres"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "wayfarer",
		Short: "Servicio de autenticación y sesiones de Wayfarer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env es opcional; en producción todo llega por entorno.
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "ruta al archivo de configuración YAML")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes de la base de datos",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Muestra la versión del binario",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("wayfarer", version)
		},
	}

	root.AddCommand(serveCmd, migrateCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// sin YAML todo sale del entorno
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       getEnv("LOG_LEVEL", "info"),
		ServiceName: "wayfarer",
		Version:     version,
	})
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L()
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// barrido periódico de sesiones expiradas o revocadas
	go app.Sessions.RunSweeper(ctx, time.Hour)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func migrate(ctx context.Context, cfg *config.Config) error {
	log := logger.L()
	defer func() { _ = logger.Sync() }()

	store, err := pg.New(ctx, pg.Config{
		DSN:      cfg.Storage.DSN,
		MaxConns: 2,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
