package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"family-locator/internal/adapters/auth/jwtauth"
	pg "family-locator/internal/adapters/storage/postgres"
	"family-locator/internal/config"
	"family-locator/internal/platform/cache"
	"family-locator/internal/platform/keylock"
	"family-locator/internal/platform/logger"
	"family-locator/internal/platform/metrics"
	"family-locator/internal/ports/auth"
	"family-locator/internal/router"

	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func newLogger(cfg config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
		File:   cfg.Log.File,
	})
}

func openDB(cfg config.Config, lg logger.Logger) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return nil, nil
	}
	db, err := pg.Open(cfg.DB.DSN, pg.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.DB.MigrateOnStart {
		if err := pg.Migrate(db, lg); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	lg := newLogger(cfg)
	defer func() { _ = lg.Sync() }()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg, lg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		lg.Info("storage: postgres", nil)
	} else {
		lg.Warn("storage: in-memory (db.dsn not set)", nil)
	}

	var (
		geofenceCache cache.Cacher
		locker        keylock.Locker = keylock.NewMemory()
	)
	if addr := strings.TrimSpace(cfg.Cache.RedisAddr); addr != "" {
		rc := cache.NewRedisClient(addr, cfg.Cache.RedisPass)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		geofenceCache = cache.NewRedisCache(rc)
		if cfg.Lock.Backend == "redis" {
			locker = keylock.NewRedis(rc, cfg.Lock.TTL, cfg.Lock.Wait)
		}
	} else {
		geofenceCache = cache.NewMemoryCache(cfg.Cache.MaxSize)
	}

	var verifier auth.AuthVerifier
	if cfg.Auth.DevMode() {
		lg.Warn("auth: dev mode, X-Debug-User-ID accepted", nil)
	} else {
		verifier = jwtauth.New(jwtauth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer})
	}

	loc, err := cfg.Engine.Location()
	if err != nil {
		return err
	}

	handler := router.NewRouter(router.Options{
		AuthVerifier:  verifier,
		DB:            db,
		Logger:        lg,
		Metrics:       metrics.New(),
		Cache:         geofenceCache,
		CacheTTL:      cfg.Cache.GeofenceTTL,
		Locker:        locker,
		Location:      loc,
		RatePerSecond: cfg.RateLimit.PerSecond,
		RateBurst:     cfg.RateLimit.Burst,
		CORSOrigins:   cfg.Server.AllowedOrigins(),
		TrustProxy:    cfg.Server.TrustProxy,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", map[string]any{"addr": srv.Addr, "timezone": loc.String()})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	lg.Info("shutting down", map[string]any{"timeout": cfg.Server.GracefulShutdown.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
