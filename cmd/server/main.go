package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/scavengerbot/internal/catalog"
	"github.com/playperu/scavengerbot/internal/config"
	"github.com/playperu/scavengerbot/internal/database"
	"github.com/playperu/scavengerbot/internal/engine"
	"github.com/playperu/scavengerbot/internal/handler/health"
	"github.com/playperu/scavengerbot/internal/hunt"
	"github.com/playperu/scavengerbot/internal/messenger"
	"github.com/playperu/scavengerbot/internal/migrations"
	"github.com/playperu/scavengerbot/internal/progress"
	"github.com/playperu/scavengerbot/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	if err := catalog.RequireCity(cat, hunt.City(cfg.ResolveCity)); err != nil {
		return fmt.Errorf("checking RESOLVE_CITY: %w", err)
	}
	logger.Info("loaded catalog", "path", cfg.CatalogPath, "cities", len(cat))

	// --- Progress store ---
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Outbound messages ---
	client := messenger.NewClient(cfg.SendAPIURL, cfg.PageAccessToken, cfg.SendTimeout)
	outbox := messenger.NewOutbox(client, cfg.OutboxSize, logger)

	// --- Conversation engine ---
	scope := engine.ScopeFixed
	if cfg.ResolveScope == config.ScopeSelected {
		scope = engine.ScopeSelected
	}
	broker := server.NewBroker()
	eng := engine.New(cat, store, outbox, logger,
		engine.WithResolveCity(hunt.City(cfg.ResolveCity), scope),
		engine.WithObserver(broker.Observe),
	)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Conversations: eng,
		Catalog:       cat,
		Broker:        broker,
		Checks: map[string]health.Checker{
			"progress": store,
			"outbox":   outbox,
		},
		AppSecret:      cfg.AppSecret,
		VerifyToken:    cfg.VerifyToken,
		AdminTokenHash: cfg.AdminTokenHash,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	// The outbox outlives the HTTP server so replies from in-flight
	// webhook requests are still delivered during shutdown.
	outboxCtx, stopOutbox := context.WithCancel(context.Background())
	defer stopOutbox()

	g.Go(func() error {
		logger.Info("starting outbox", "size", cfg.OutboxSize)
		return outbox.Run(outboxCtx)
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		err := srv.Shutdown(context.Background())
		logger.Info("stopping outbox", "queued", outbox.Len())
		stopOutbox()
		return err
	})

	return g.Wait()
}

// checkedStore is a progress store that can report its own health.
type checkedStore interface {
	progress.Store
	health.Checker
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (checkedStore, func(), error) {
	switch cfg.ProgressBackend {
	case config.BackendMemory:
		logger.Warn("progress kept in memory; it is lost on restart")
		return progress.NewMemoryStore(), func() {}, nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to sqlite: %w", err)
		}
		if err := migrations.Run(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("connected to sqlite", "path", cfg.DBPath)
		return progress.NewDocStore(db), func() { db.Close() }, nil

	case config.BackendRedis:
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		logger.Info("connected to redis", "ttl", cfg.ProgressTTL)
		return progress.NewRedisStore(rdb, cfg.ProgressTTL), func() { rdb.Close() }, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", progress.ErrUnknownBackend, cfg.ProgressBackend)
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
