package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jamaat.org/internal/auth"
	"jamaat.org/internal/config"
	"jamaat.org/internal/httpapi"
	"jamaat.org/internal/listing"
	"jamaat.org/internal/migrate"
	"jamaat.org/internal/obs"
	"jamaat.org/internal/store/memory"
	"jamaat.org/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// store is what both services need from the persistence layer.
type store interface {
	auth.UserStore
	listing.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatal().Err(err).Msg("load config")
	}

	obs.Init(obs.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	obs.InitMetrics()
	obs.InitBuildInfo(version, commit)
	logger := obs.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st    store
		ready httpapi.ReadyProbe
		pgs   *pg.Store
	)
	if cfg.Database.DSN == "" {
		logger.Warn().Msg("no database configured, using in-memory store")
		st = memory.New()
	} else {
		pgs, err = pg.Open(ctx, cfg.Database.DSN, pg.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("open database")
		}
		defer pgs.Close()
		if cfg.Database.AutoMigrate {
			if err := migrate.NewManager(pgs.DB(), nil).Up(ctx); err != nil {
				logger.Fatal().Err(err).Msg("apply migrations")
			}
		}
		st = pgs
		ready = pgs.Ping
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, auth.WithTTL(cfg.Auth.TokenTTL))
	if err := tokens.Ready(); err != nil {
		logger.Error().Err(err).Msg("JWT secret is not configured; login and protected routes will fail")
	}
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("password hasher")
	}
	authSvc, err := auth.NewService(st, hasher, tokens)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth service")
	}
	listingSvc, err := listing.NewService(st)
	if err != nil {
		logger.Fatal().Err(err).Msg("listing service")
	}

	if email := cfg.Auth.BootstrapAdminEmail; email != "" {
		u, err := authSvc.PromoteSuperAdmin(ctx, email)
		switch {
		case errors.Is(err, auth.ErrNotFound):
			logger.Warn().Str("email", email).Msg("bootstrap admin is not registered yet")
		case err != nil:
			logger.Fatal().Err(err).Msg("promote bootstrap admin")
		default:
			logger.Info().Str("user_id", u.ID).Msg("bootstrap admin promoted")
		}
	}

	api, err := httpapi.New(httpapi.Options{
		Auth:            authSvc,
		Listing:         listingSvc,
		Ready:           ready,
		Version:         version,
		CORSOrigins:     cfg.HTTP.CORSOrigins,
		RateLimitBurst:  cfg.HTTP.RateLimitBurst,
		RateLimitPerSec: cfg.HTTP.RateLimitPerSec,
		MaxBodyBytes:    cfg.HTTP.MaxBodyBytes,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("http api")
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting jamaat-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("listen")
	}
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}
	logger.Info().Msg("stopped")
}
