package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/redis/go-redis/v9"
)

const (
	previewKeyPrefix  = "import_preview:"
	DefaultPreviewTTL = 2 * time.Hour
)

// PreviewRedisStore keeps staged imports as JSON strings that expire on their own.
type PreviewRedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewPreviewRedisStore(client redis.Cmdable, ttl time.Duration) *PreviewRedisStore {
	if ttl <= 0 {
		ttl = DefaultPreviewTTL
	}
	return &PreviewRedisStore{client: client, ttl: ttl}
}

var _ ports.PreviewStore = (*PreviewRedisStore)(nil)

func previewKey(id string) string {
	return previewKeyPrefix + strings.TrimSpace(id)
}

// Save resets the expiry window on every write.
func (s *PreviewRedisStore) Save(ctx context.Context, p types.ImportPreview) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("persistence: preview id is required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, previewKey(p.ID), raw, s.ttl).Err()
}

func (s *PreviewRedisStore) Load(ctx context.Context, id string) (types.ImportPreview, error) {
	raw, err := s.client.Get(ctx, previewKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.ImportPreview{}, ports.ErrPreviewNotFound
		}
		return types.ImportPreview{}, err
	}
	var p types.ImportPreview
	if err := json.Unmarshal(raw, &p); err != nil {
		return types.ImportPreview{}, err
	}
	return p, nil
}

func (s *PreviewRedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, previewKey(id)).Err()
}
