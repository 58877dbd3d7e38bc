package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

const DefaultTypeCacheSize = 128

// CachedTypeRegistry memoizes GetType lookups. Only known types are cached;
// writes go through to the inner registry and refresh the entry.
type CachedTypeRegistry struct {
	inner ports.TypeSchemaRegistry
	cache *lru.Cache[string, types.AssetType]
}

func NewCachedTypeRegistry(inner ports.TypeSchemaRegistry, size int) (*CachedTypeRegistry, error) {
	if inner == nil {
		return nil, errors.New("persistence: inner registry is required")
	}
	if size <= 0 {
		size = DefaultTypeCacheSize
	}
	cache, err := lru.New[string, types.AssetType](size)
	if err != nil {
		return nil, fmt.Errorf("persistence: init type cache: %w", err)
	}
	return &CachedTypeRegistry{inner: inner, cache: cache}, nil
}

var _ ports.TypeSchemaRegistry = (*CachedTypeRegistry)(nil)

func (r *CachedTypeRegistry) GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error) {
	t, err := r.GetType(ctx, category)
	if err != nil {
		if errors.Is(err, ports.ErrAssetTypeNotFound) {
			return []types.FieldDefinition{}, nil
		}
		return nil, err
	}
	return t.Fields, nil
}

func (r *CachedTypeRegistry) GetType(ctx context.Context, category string) (types.AssetType, error) {
	key := strings.TrimSpace(category)
	if t, ok := r.cache.Get(key); ok {
		return cloneType(t), nil
	}
	t, err := r.inner.GetType(ctx, key)
	if err != nil {
		return types.AssetType{}, err
	}
	r.cache.Add(key, cloneType(t))
	return t, nil
}

func (r *CachedTypeRegistry) ListTypes(ctx context.Context) ([]string, error) {
	return r.inner.ListTypes(ctx)
}

func (r *CachedTypeRegistry) UpsertType(ctx context.Context, t types.AssetType) error {
	key := strings.TrimSpace(t.Name)
	r.cache.Remove(key)
	if err := r.inner.UpsertType(ctx, t); err != nil {
		return err
	}
	t.Name = key
	r.cache.Add(key, cloneType(t))
	return nil
}

// Purge drops every cached entry.
func (r *CachedTypeRegistry) Purge() { r.cache.Purge() }

func cloneType(t types.AssetType) types.AssetType {
	fields := make([]types.FieldDefinition, len(t.Fields))
	for i, f := range t.Fields {
		f.Options = append([]string(nil), f.Options...)
		fields[i] = f
	}
	return types.AssetType{Name: t.Name, Fields: fields}
}
