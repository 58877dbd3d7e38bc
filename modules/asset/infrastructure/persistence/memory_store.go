package persistence

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

// MemoryAssetStore backs local runs and tests without Postgres.
type MemoryAssetStore struct {
	mu    sync.RWMutex
	docs  map[string]types.Record
	order []string
}

func NewMemoryAssetStore() *MemoryAssetStore {
	return &MemoryAssetStore{docs: map[string]types.Record{}}
}

var (
	_ ports.AssetStore    = (*MemoryAssetStore)(nil)
	_ ports.AssetRestorer = (*MemoryAssetStore)(nil)
)

func (s *MemoryAssetStore) Get(_ context.Context, id string) (types.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[strings.TrimSpace(id)]
	if !ok {
		return types.Asset{}, ports.ErrAssetNotFound
	}
	return types.Asset{ID: strings.TrimSpace(id), Data: rec.Clone()}, nil
}

func (s *MemoryAssetStore) List(_ context.Context, ids []string) ([]types.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := map[string]struct{}{}
	for _, id := range ids {
		want[strings.TrimSpace(id)] = struct{}{}
	}
	out := []types.Asset{}
	for _, id := range s.order {
		if len(ids) > 0 {
			if _, ok := want[id]; !ok {
				continue
			}
		}
		out = append(out, types.Asset{ID: id, Data: s.docs[id].Clone()})
	}
	return out, nil
}

func (s *MemoryAssetStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	ids, err := s.InsertMany(ctx, []types.Record{rec})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (s *MemoryAssetStore) InsertMany(_ context.Context, recs []types.Record) ([]string, error) {
	ids := make([]string, 0, len(recs))
	for range recs {
		id, err := newAssetID()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range recs {
		s.docs[ids[i]] = rec.Clone()
		s.order = append(s.order, ids[i])
	}
	return ids, nil
}

func (s *MemoryAssetStore) Replace(_ context.Context, id string, rec types.Record) error {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return ports.ErrAssetNotFound
	}
	s.docs[id] = rec.Clone()
	return nil
}

func (s *MemoryAssetStore) Delete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := s.docs[id]; ok {
			delete(s.docs, id)
			n++
		}
	}
	if n > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, ok := s.docs[id]; ok {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	return n, nil
}

func (s *MemoryAssetStore) ReplaceAll(_ context.Context, assets []types.Asset) error {
	docs := make(map[string]types.Record, len(assets))
	order := make([]string, 0, len(assets))
	for _, a := range assets {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return errors.New("persistence: backup asset has empty id")
		}
		if _, dup := docs[id]; !dup {
			order = append(order, id)
		}
		docs[id] = a.Data.Clone()
	}
	s.mu.Lock()
	s.docs = docs
	s.order = order
	s.mu.Unlock()
	return nil
}

// MemoryTypeRegistry is the in-process TypeSchemaRegistry.
type MemoryTypeRegistry struct {
	mu    sync.RWMutex
	types map[string]types.AssetType
}

func NewMemoryTypeRegistry(seed ...types.AssetType) *MemoryTypeRegistry {
	r := &MemoryTypeRegistry{types: map[string]types.AssetType{}}
	for _, t := range seed {
		r.types[strings.TrimSpace(t.Name)] = cloneType(t)
	}
	return r
}

var _ ports.TypeSchemaRegistry = (*MemoryTypeRegistry)(nil)

func (r *MemoryTypeRegistry) GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error) {
	t, err := r.GetType(ctx, category)
	if err != nil {
		return []types.FieldDefinition{}, nil
	}
	return t.Fields, nil
}

func (r *MemoryTypeRegistry) GetType(_ context.Context, category string) (types.AssetType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[strings.TrimSpace(category)]
	if !ok {
		return types.AssetType{}, ports.ErrAssetTypeNotFound
	}
	return cloneType(t), nil
}

func (r *MemoryTypeRegistry) ListTypes(context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (r *MemoryTypeRegistry) UpsertType(_ context.Context, t types.AssetType) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New("persistence: asset type name is required")
	}
	t.Name = name
	r.mu.Lock()
	r.types[name] = cloneType(t)
	r.mu.Unlock()
	return nil
}

// MemoryPreviewStore expires previews lazily on Load and eagerly via PurgeExpired.
type MemoryPreviewStore struct {
	mu       sync.Mutex
	previews map[string]types.ImportPreview
	savedAt  map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryPreviewStore(ttl time.Duration, now func() time.Time) *MemoryPreviewStore {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryPreviewStore{
		previews: map[string]types.ImportPreview{},
		savedAt:  map[string]time.Time{},
		ttl:      ttl,
		now:      now,
	}
}

var (
	_ ports.PreviewStore  = (*MemoryPreviewStore)(nil)
	_ ports.PreviewPurger = (*MemoryPreviewStore)(nil)
)

func (s *MemoryPreviewStore) Save(_ context.Context, p types.ImportPreview) error {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return errors.New("persistence: preview id is required")
	}
	s.mu.Lock()
	s.previews[id] = p
	s.savedAt[id] = s.now()
	s.mu.Unlock()
	return nil
}

func (s *MemoryPreviewStore) Load(_ context.Context, id string) (types.ImportPreview, error) {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.previews[id]
	if !ok || s.expired(id, s.now()) {
		return types.ImportPreview{}, ports.ErrPreviewNotFound
	}
	return p, nil
}

func (s *MemoryPreviewStore) Delete(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	s.mu.Lock()
	delete(s.previews, id)
	delete(s.savedAt, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryPreviewStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id := range s.previews {
		if s.expired(id, now) {
			delete(s.previews, id)
			delete(s.savedAt, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryPreviewStore) expired(id string, now time.Time) bool {
	return !now.Before(s.savedAt[id].Add(s.ttl))
}
