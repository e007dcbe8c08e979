// Package app assembles the URL shortener from its parts: configuration,
// record store, cache, short code generator, visit publisher and the HTTP
// server. Run blocks until the context is canceled or the server fails.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	myhttp "github.com/Rohit-Yadav-47/url-shorter/internal/api/http"
	"github.com/Rohit-Yadav-47/url-shorter/internal/cache"
	"github.com/Rohit-Yadav-47/url-shorter/internal/config"
	"github.com/Rohit-Yadav-47/url-shorter/internal/entity"
	"github.com/Rohit-Yadav-47/url-shorter/internal/events"
	"github.com/Rohit-Yadav-47/url-shorter/internal/service"
	"github.com/Rohit-Yadav-47/url-shorter/internal/shortcode"
	"github.com/Rohit-Yadav-47/url-shorter/internal/storage/memory"
	pgstore "github.com/Rohit-Yadav-47/url-shorter/internal/storage/postgres"
	redisstore "github.com/Rohit-Yadav-47/url-shorter/internal/storage/redis"
	"github.com/Rohit-Yadav-47/url-shorter/pkg/postgres"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := newLogger(cfg.Env)

	store, closeStore, err := newRecordStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	lru, err := cache.New[string, entity.CachedURL](
		cfg.CacheCapacity,
		cache.WithOnEvict(func(shortCode string, _ entity.CachedURL) {
			logger.Debug("evicted cached url", slog.String("short_code", shortCode))
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize cache: %w", op, err)
	}

	gen, err := shortcode.NewGenerator(cfg.ShortCodeLength)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize short code generator: %w", op, err)
	}

	visitPub, closePub, err := newVisitPublisher(cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer closePub()

	urlSvc := service.NewURLService(store, lru, gen)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        myhttp.NewRouter(logger, urlSvc, visitPub),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	logger.Info("starting server",
		slog.String("addr", server.Addr),
		slog.String("env", cfg.Env),
		slog.String("storage", cfg.Storage.Backend),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
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

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

func newLogger(env string) *httplog.Logger {
	opts := httplog.Options{
		LogLevel: slog.LevelDebug,
		Concise:  true,
	}

	if env == config.EnvProd {
		opts = httplog.Options{
			JSON:     true,
			LogLevel: slog.LevelInfo,
		}
	}

	return httplog.NewLogger("url-shorter", opts)
}

// newRecordStore builds the record store named by the storage section. The
// returned func releases the backend's resources.
func newRecordStore(ctx context.Context, cfg *config.Config) (service.RecordStore, func(), error) {
	const op = "app.newRecordStore"

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		return memory.New(), func() {}, nil

	case config.StoragePostgres:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}

		if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		return pgstore.NewStore(db), func() { db.Close() }, nil

	case config.StorageRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}

		return redisstore.NewStore(client), func() { client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%s: unknown storage backend: %q", op, cfg.Storage.Backend)
	}
}

// newVisitPublisher connects to RabbitMQ when a URL is configured and falls
// back to a no-op publisher otherwise.
func newVisitPublisher(cfg *config.Config, logger *slog.Logger) (myhttp.VisitPublisher, func(), error) {
	const op = "app.newVisitPublisher"

	if cfg.RabbitMQ.URL == "" {
		logger.Info("rabbitmq url not configured, visit events disabled")
		return events.NopPublisher{}, func() {}, nil
	}

	pub, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: failed to connect to rabbitmq: %w", op, err)
	}

	closePub := func() {
		if err := pub.Close(); err != nil {
			logger.Error("failed to close rabbitmq publisher", slog.Any("err", err))
		}
	}

	return pub, closePub, nil
}
