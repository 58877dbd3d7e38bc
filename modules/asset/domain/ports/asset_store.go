package ports

import (
	"context"
	"errors"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

var (
	ErrAssetNotFound     = errors.New("asset_not_found")
	ErrAssetTypeNotFound = errors.New("asset_type_not_found")
	ErrPreviewNotFound   = errors.New("preview_not_found")
)

// AssetStore persists asset documents. Writes are last-writer-wins by id.
type AssetStore interface {
	Get(ctx context.Context, id string) (types.Asset, error)
	// List returns every asset when ids is empty.
	List(ctx context.Context, ids []string) ([]types.Asset, error)
	Insert(ctx context.Context, rec types.Record) (string, error)
	InsertMany(ctx context.Context, recs []types.Record) ([]string, error)
	Replace(ctx context.Context, id string, rec types.Record) error
	Delete(ctx context.Context, ids []string) (int, error)
}

// TypeSchemaRegistry supplies the ordered field list of each category.
type TypeSchemaRegistry interface {
	// GetFields returns an empty slice for an unknown category.
	GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error)
	GetType(ctx context.Context, category string) (types.AssetType, error)
	ListTypes(ctx context.Context) ([]string, error)
	UpsertType(ctx context.Context, t types.AssetType) error
}

// PreviewStore keeps staged imports until confirmed or expired.
type PreviewStore interface {
	Save(ctx context.Context, p types.ImportPreview) error
	Load(ctx context.Context, id string) (types.ImportPreview, error)
	Delete(ctx context.Context, id string) error
}

// PreviewPurger is implemented by stores without native expiry.
type PreviewPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// AssetRestorer swaps the whole collection for a backup snapshot.
type AssetRestorer interface {
	ReplaceAll(ctx context.Context, assets []types.Asset) error
}
