package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dailyledger/internal/access"
	"dailyledger/internal/backend"
	"dailyledger/internal/cache"
	"dailyledger/internal/cli"
	"dailyledger/internal/config"
	apphttp "dailyledger/internal/http"
	"dailyledger/internal/log"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp, (*config.Config).Validate)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	res, err := backend.NewFactory(logger).CreateBackend(ctx, cli.BackendConfig(logger, cfg))
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err.Error())
		}
	}()

	caches := cache.NewManager(logger)
	if res.DailyCache != nil {
		caches.Register("daily_totals", res.DailyCache)
	}
	caches.Start(ctx, time.Minute)

	var auth *access.Authenticator
	if cfg.JWTSecret != "" {
		if auth, err = access.NewAuthenticator(cfg.JWTSecret); err != nil {
			cli.Fatal(logger, "Failed to initialize authenticator", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, serving every caller anonymously")
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Ledger:         res.Store,
		Registry:       access.NewRegistry(cfg.AdminPrincipals),
		Auth:           auth,
		RateLimitRPM:   cfg.RateLimitRPM,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to configure HTTP server", err)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", cfg.ReferenceTimezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err.Error())
	}
	cancel()
	caches.Wait()
	logger.Info("Server stopped gracefully")
}
