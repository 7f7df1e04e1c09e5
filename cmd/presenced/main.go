package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	presence "github.com/cydxin/presence-sdk"
	"github.com/cydxin/presence-sdk/config"
	"github.com/cydxin/presence-sdk/hub"
	"github.com/cydxin/presence-sdk/logger"
	"github.com/cydxin/presence-sdk/metrics"
	"github.com/cydxin/presence-sdk/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of presenced",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("presenced version %s\n", version)
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(_ *config.Config, e *presence.PresenceEngine, _ *zap.Logger) error {
				return e.AutoMigrate()
			})
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the presence server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), serve)
		},
	}

	rootCmd = &cobra.Command{
		Use:   "presenced",
		Short: "Presence and notification fanout server",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "configs/presence.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd, migrateCmd, serveCmd)
}

// withEngine loads the configuration, opens the stores and builds an engine
// for fn. Everything is released when fn returns.
func withEngine(ctx context.Context, fn func(*config.Config, *presence.PresenceEngine, *zap.Logger) error) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = lg.Sync() }()

	db, err := service.OpenDB(&cfg.Database, lg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	rdb, err := service.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("open redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	opts := []presence.Option{
		presence.WithConfig(cfg),
		presence.WithDB(db),
		presence.WithRDB(rdb),
		presence.WithLogger(lg),
		presence.WithMetrics(metrics.New(cfg.Metrics)),
	}
	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	if verifier != nil {
		opts = append(opts, presence.WithVerifier(verifier))
	}

	e, err := presence.NewEngine(opts...)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(cfg, e, lg)
}

// newVerifier returns nil for the redis mode; the engine then builds a
// TokenService on the redis client.
func newVerifier(cfg config.AuthConfig) (hub.IdentityVerifier, error) {
	switch cfg.Mode {
	case "redis":
		return nil, nil
	case "jwt":
		return service.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

func serve(cfg *config.Config, e *presence.PresenceEngine, lg *zap.Logger) error {
	if err := e.AutoMigrate(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	e.RegisterGinRoutes(r, presence.RouteOptions{Swagger: cfg.Server.Swagger})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("presenced listening", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		lg.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
