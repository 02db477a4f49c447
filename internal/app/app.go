// Package app wires the shortlinks service together and runs it until ctx is done.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlinks/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/shortlinks/internal/config"
	"github.com/vadimbarashkov/shortlinks/internal/metrics"
	"github.com/vadimbarashkov/shortlinks/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlinks/internal/adapter/delivery/http"
	pgutil "github.com/vadimbarashkov/shortlinks/pkg/postgres"
)

const shutdownTimeout = 10 * time.Second

// NewLogger builds the request logger from the log section of the config.
func NewLogger(cfg *config.Config) *httplog.Logger {
	return httplog.NewLogger("shortlinks", httplog.Options{
		LogLevel:        cfg.Log.SlogLevel(),
		JSON:            cfg.Log.JSON,
		Concise:         cfg.Log.Concise,
		Tags:            map[string]string{"env": cfg.Env},
		QuietDownRoutes: []string{"/api/ping", "/api/metrics"},
		QuietDownPeriod: 10 * time.Second,
	})
}

func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	db, err := pgutil.New(ctx, cfg.Postgres.DSN(), pgutil.PoolConfig{
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pgutil.RunMigrations(cfg.MigrationsPath, cfg.Postgres.DSN(), logger.Logger); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}

	urlRepo := postgres.NewURLMappingRepository(db)
	uc := usecase.NewURLMappingUseCase(
		urlRepo,
		usecase.WithReservedSlugs(cfg.ReservedSlugs...),
		usecase.WithSlugLength(cfg.SlugLength),
		usecase.WithStoreTimeout(cfg.StoreTimeout),
	)

	routerCfg := delivery.RouterConfig{
		APIToken:       cfg.APIToken,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = metrics.New()
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, uc, routerCfg),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
