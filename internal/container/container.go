package container

import (
	"context"
	"fmt"
	"time"

	"fouani/storesync/internal/api"
	"fouani/storesync/internal/client"
	"fouani/storesync/internal/config"
	"fouani/storesync/internal/crawler"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/proxy"
	"fouani/storesync/internal/repository"
	"fouani/storesync/internal/service"
	"fouani/storesync/internal/state"
	"fouani/storesync/internal/storage"
	"fouani/storesync/internal/syncer"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const connectTimeout = 10 * time.Second

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Fetcher    client.Fetcher
	Repository repository.ProductRepository
	Files      *storage.Files
	Tracker    *state.Tracker

	Service *service.Service

	redis *redis.Client
}

// New creates a new container with all dependencies initialized. An
// unreachable store is reported as a domain.ConfigurationError.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	container := &Container{
		Config: cfg,
		Files:  storage.NewFiles(cfg.Files),
	}

	// Initialize proxy supplier
	proxies := proxy.NewStatic(nil)
	if len(cfg.Site.Proxies) > 0 {
		proxies = proxy.NewChecked(ctx, cfg.Site.Proxies, cfg.Site.BaseURL, cfg.Site.Timeout)
	}
	container.Fetcher = client.NewFetcher(cfg.Site, proxies)

	// Initialize repository
	repo, err := newRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	container.Repository = repo

	var visited crawler.VisitedStore = crawler.NewMemoryVisitedStore()
	var snapshots state.SnapshotStore
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		// Test connection
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = repo.Close(ctx)
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		visited = crawler.NewRedisVisitedStore(rdb, cfg.Redis.VisitedTTL)
		snapshots = state.NewRedisSnapshotStore(rdb, cfg.Redis.StatusKey)
	}

	container.Tracker = state.NewTracker(snapshots)
	if err := container.Tracker.Restore(ctx); err != nil {
		log.Warnf("⚠️ Failed to restore run status: %v", err)
	}

	container.Service = service.NewService(
		container.Fetcher,
		crawler.New(container.Fetcher, visited, cfg.Site.BaseURL, cfg.Site.Workers),
		syncer.NewEngine(repo, cfg.Store.BatchSize),
		repo,
		container.Files,
		cfg.Site.MenuURL,
	)

	return container, nil
}

func newRepository(ctx context.Context, cfg *config.Config) (repository.ProductRepository, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, domain.NewConfigurationError("open postgres", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, domain.NewConfigurationError("connect to postgres", err)
		}
		log.Info("✅ Connected to Postgres successfully")
		return repository.NewPostgresRepository(db), nil

	case config.DriverMongo:
		mongoClient, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, domain.NewConfigurationError("connect to mongo", err)
		}
		log.Info("✅ Connected to MongoDB successfully")
		return repository.NewMongoRepository(mongoClient, cfg.Mongo.Database, cfg.Mongo.Collection), nil

	case config.DriverMemory:
		log.Warn("⚠️ Using in-memory store, synced products are lost on exit")
		return repository.NewMemoryRepository(), nil

	default:
		return nil, domain.NewConfigurationError("select store", fmt.Errorf("unknown driver %q", cfg.Store.Driver))
	}
}

// NewServer builds the trigger surface over the container's service.
func (c *Container) NewServer(ctx context.Context) *api.Server {
	return api.NewServer(ctx, c.Config.Server, c.Tracker, c.Service, c.Files)
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := c.Repository.Close(ctx); err != nil {
		log.Warnf("⚠️ Failed to close store: %v", err)
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("⚠️ Failed to close Redis: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
