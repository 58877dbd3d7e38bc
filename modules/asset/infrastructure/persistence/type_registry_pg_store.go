package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

// TypeRegistryPGStore stores asset types as (type_name, fields jsonb).
type TypeRegistryPGStore struct {
	pool pgBeginner
}

func NewTypeRegistryPGStore(pool pgBeginner) *TypeRegistryPGStore {
	return &TypeRegistryPGStore{pool: pool}
}

var _ ports.TypeSchemaRegistry = (*TypeRegistryPGStore)(nil)

func (s *TypeRegistryPGStore) GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error) {
	t, err := s.GetType(ctx, category)
	if err != nil {
		if errors.Is(err, ports.ErrAssetTypeNotFound) {
			return []types.FieldDefinition{}, nil
		}
		return nil, err
	}
	return t.Fields, nil
}

func (s *TypeRegistryPGStore) GetType(ctx context.Context, category string) (types.AssetType, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return types.AssetType{}, ports.ErrAssetTypeNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.AssetType{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var name string
	var raw []byte
	if err := tx.QueryRow(ctx, `
SELECT type_name, fields
FROM asset_types
WHERE type_name = $1
`, category).Scan(&name, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.AssetType{}, ports.ErrAssetTypeNotFound
		}
		return types.AssetType{}, err
	}

	fields := []types.FieldDefinition{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			return types.AssetType{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return types.AssetType{}, err
	}
	return types.AssetType{Name: name, Fields: fields}, nil
}

func (s *TypeRegistryPGStore) ListTypes(ctx context.Context) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	rows, err := tx.Query(ctx, `
SELECT type_name
FROM asset_types
ORDER BY type_name
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *TypeRegistryPGStore) UpsertType(ctx context.Context, t types.AssetType) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return errors.New("persistence: asset type name is required")
	}
	fields := t.Fields
	if fields == nil {
		fields = []types.FieldDefinition{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `
INSERT INTO asset_types (type_name, fields)
VALUES ($1, $2::jsonb)
ON CONFLICT (type_name) DO UPDATE
SET fields = EXCLUDED.fields, updated_at = now()
`, name, raw); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
