// Package app assembles the draft service from configuration and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"prdkit/internal/apitoken"
	"prdkit/internal/config"
	"prdkit/internal/ratelimit"
	"prdkit/internal/util"
	"prdkit/pkg/ai"
	"prdkit/pkg/drafts"
	"prdkit/services/drafts/internal/server"
)

const shutdownTimeout = 10 * time.Second

// App holds the wired service and the resources it must release.
type App struct {
	Handler http.Handler
	Addr    string
	closers []io.Closer
}

// New builds every dependency named by cfg.
func New(cfg config.FileConfig) (*App, error) {
	a := &App{Addr: ":" + cfg.Port}

	backend, closer, err := drafts.Open(cfg.DraftsOptions())
	if err != nil {
		return nil, fmt.Errorf("open drafts backend: %w", err)
	}
	a.closers = append(a.closers, closer)

	generator, err := ai.New(cfg.AIConfig(), ai.WithLogger(slog.Default()))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init generator: %w", err)
	}

	var tokens *apitoken.Manager
	if cfg.APIToken.Secret != "" {
		tokens, err = apitoken.NewManager(apitoken.Options{
			Secret: cfg.APIToken.Secret,
			Issuer: cfg.APIToken.Issuer,
			TTL:    cfg.APIToken.TTL,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init api tokens: %w", err)
		}
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		l, err := ratelimit.NewRedisFixedWindowLimiter(cfg.Redis.Addr, cfg.Redis.Password, "", cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		a.closers = append(a.closers, l)
		limiter = l
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	srv := server.New(server.Config{
		Drafts:         drafts.NewService(backend),
		Generator:      generator,
		Tokens:         tokens,
		Limiter:        limiter,
		TrustedProxies: trusted,
	})
	a.Handler = srv.Router()

	slog.Info("drafts service configured",
		"drafts_backend", cfg.Drafts.Backend,
		"ai_provider", string(generator.Provider()),
		"ai_model", generator.Model(),
		"api_token", tokens != nil,
		"rate_limit", limiter != nil,
	)
	return a, nil
}

// Close releases backend and limiter connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.Addr,
		Handler:      a.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("drafts server listening", "addr", a.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("drafts server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	err := g.Wait()
	if closeErr := a.Close(); closeErr != nil {
		slog.Warn("release resources", "err", closeErr)
	}
	return err
}
