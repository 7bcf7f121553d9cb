package backend

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/stash/pkg/config"
	"github.com/platinummonkey/stash/pkg/observability"
	"github.com/platinummonkey/stash/pkg/storage"
	"github.com/platinummonkey/stash/pkg/storage/filestore"
	"github.com/platinummonkey/stash/pkg/storage/redisstore"
	"github.com/platinummonkey/stash/pkg/storage/s3store"
	"github.com/platinummonkey/stash/pkg/storage/sqlstore"
)

// Factory owns the backend selected by the configuration and builds one
// adapter per namespace on top of it.
type Factory struct {
	cfg     config.StoreConfig
	log     *observability.Logger
	metrics *observability.Metrics

	fileStore   *filestore.Store
	sqlStore    sqlstore.StateStore
	redisClient *redis.Client
	s3          s3store.Client
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *observability.Logger) Option {
	return func(f *Factory) {
		if log != nil {
			f.log = log
		}
	}
}

// WithMetrics instruments the backend and its adapters.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory opens the backend named by cfg.Type. Call Close on shutdown.
func NewFactory(ctx context.Context, cfg config.StoreConfig, opts ...Option) (*Factory, error) {
	f := &Factory{
		cfg: cfg,
		log: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}

	switch cfg.Type {
	case config.StoreTypeFile:
		f.fileStore = filestore.New(cfg.StateFile,
			filestore.WithLogger(f.log),
			filestore.WithMetrics(f.metrics),
			filestore.WithSaveDelay(cfg.SaveDelay),
		)
		f.fileStore.Load()
		if cfg.WatchEnabled {
			if err := f.fileStore.Watch(); err != nil {
				f.fileStore.Close()
				return nil, err
			}
		}
		if cfg.BackupSchedule != "" {
			if err := f.fileStore.ScheduleBackups(cfg.BackupSchedule); err != nil {
				f.fileStore.Close()
				return nil, err
			}
		}

	case config.StoreTypeSQLite:
		store, err := sqlstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		f.sqlStore = store

	case config.StoreTypePostgres:
		store, err := sqlstore.NewPostgresStore(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		f.sqlStore = store

	case config.StoreTypeRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		if cfg.RedisPassword != "" {
			opt.Password = cfg.RedisPassword
		}
		if cfg.RedisDB != 0 {
			opt.DB = cfg.RedisDB
		}
		f.redisClient = redis.NewClient(opt)

	case config.StoreTypeS3:
		client, err := s3store.NewClient(ctx, cfg.S3Region, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey)
		if err != nil {
			return nil, err
		}
		f.s3 = client

	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}

	return f, nil
}

// Adapter returns an adapter bound to namespace on the configured backend.
func (f *Factory) Adapter(namespace string) (storage.Adapter, error) {
	switch f.cfg.Type {
	case config.StoreTypeFile:
		return filestore.NewAdapter(f.fileStore, namespace,
			filestore.WithAdapterMetrics(f.metrics)), nil
	case config.StoreTypeSQLite:
		return sqlstore.NewAdapter(f.sqlStore, namespace, "sqlite",
			sqlstore.WithMetrics(f.metrics)), nil
	case config.StoreTypePostgres:
		return sqlstore.NewAdapter(f.sqlStore, namespace, "postgres",
			sqlstore.WithMetrics(f.metrics)), nil
	case config.StoreTypeRedis:
		return redisstore.New(f.redisClient, namespace, f.cfg.RedisCacheSize,
			redisstore.WithTTL(f.cfg.RedisTTL),
			redisstore.WithMetrics(f.metrics))
	case config.StoreTypeS3:
		return s3store.New(f.s3, f.cfg.S3Bucket, namespace,
			s3store.WithMetrics(f.metrics)), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", f.cfg.Type)
	}
}

// FileStore returns the aggregated file store, or nil when another backend
// is configured. The admin API serves only the file store.
func (f *Factory) FileStore() *filestore.Store {
	return f.fileStore
}

// Close releases the backend.
func (f *Factory) Close() error {
	switch {
	case f.fileStore != nil:
		return f.fileStore.Close()
	case f.sqlStore != nil:
		return f.sqlStore.Close()
	case f.redisClient != nil:
		return f.redisClient.Close()
	}
	return nil
}
