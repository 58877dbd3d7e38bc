package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/persistence"
)

// Stores bundles the persistence the handler and the tools share.
type Stores struct {
	Assets   ports.AssetStore
	Restorer ports.AssetRestorer
	Types    ports.TypeSchemaRegistry
	Previews ports.PreviewStore
	// Purger is set only when the preview store has no native expiry.
	Purger ports.PreviewPurger

	closers []func()
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// NewMemoryStores backs local runs and tests; the registry starts with the
// built-in asset types.
func NewMemoryStores(cfg Config) *Stores {
	assets := persistence.NewMemoryAssetStore()
	previews := persistence.NewMemoryPreviewStore(cfg.PreviewTTL, nil)
	return &Stores{
		Assets:   assets,
		Restorer: assets,
		Types:    persistence.NewMemoryTypeRegistry(fieldmeta.SeedAssetTypes()...),
		Previews: previews,
		Purger:   previews,
	}
}

var (
	newPGPool = func(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
		return pgxpool.New(ctx, dsn)
	}
	newRedisClient = func(addr string) *redis.Client {
		return redis.NewClient(&redis.Options{Addr: addr})
	}
)

// OpenStores connects the configured backends. Postgres holds assets and
// types; Redis holds previews when REDIS_ADDR is set.
func OpenStores(ctx context.Context, cfg Config) (*Stores, error) {
	if cfg.Store == StoreMemory {
		s := NewMemoryStores(cfg)
		if cfg.RedisAddr != "" {
			if err := s.useRedisPreviews(ctx, cfg); err != nil {
				return nil, err
			}
		}
		return s, nil
	}

	pool, err := newPGPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("server: connect postgres: %w", err)
	}
	s := &Stores{closers: []func(){pool.Close}}

	assets := persistence.NewAssetPGStore(pool)
	s.Assets = assets
	s.Restorer = assets
	typesStore, err := persistence.NewCachedTypeRegistry(persistence.NewTypeRegistryPGStore(pool), cfg.TypeCacheSize)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Types = typesStore

	if cfg.RedisAddr != "" {
		if err := s.useRedisPreviews(ctx, cfg); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	}
	previews := persistence.NewMemoryPreviewStore(cfg.PreviewTTL, nil)
	s.Previews = previews
	s.Purger = previews
	return s, nil
}

func (s *Stores) useRedisPreviews(ctx context.Context, cfg Config) error {
	client := newRedisClient(cfg.RedisAddr)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("server: connect redis: %w", err)
	}
	s.closers = append(s.closers, func() { _ = client.Close() })
	s.Previews = persistence.NewPreviewRedisStore(client, cfg.PreviewTTL)
	s.Purger = nil
	return nil
}
