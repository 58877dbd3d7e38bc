package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/uuidv7"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// AssetPGStore keeps each asset as one jsonb document keyed by a UUIDv7.
type AssetPGStore struct {
	pool pgBeginner
}

func NewAssetPGStore(pool pgBeginner) *AssetPGStore {
	return &AssetPGStore{pool: pool}
}

var (
	_ ports.AssetStore    = (*AssetPGStore)(nil)
	_ ports.AssetRestorer = (*AssetPGStore)(nil)
)

var newAssetID = uuidv7.NewString

func (s *AssetPGStore) Get(ctx context.Context, id string) (types.Asset, error) {
	id = strings.TrimSpace(id)
	if !uuidv7.Valid(id) {
		return types.Asset{}, ports.ErrAssetNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return types.Asset{}, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var doc []byte
	if err := tx.QueryRow(ctx, `
SELECT doc
FROM assets
WHERE id = $1::uuid
`, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Asset{}, ports.ErrAssetNotFound
		}
		return types.Asset{}, err
	}
	rec, err := decodeRecord(doc)
	if err != nil {
		return types.Asset{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return types.Asset{}, err
	}
	return types.Asset{ID: id, Data: rec}, nil
}

// List returns every asset when ids is empty. Ids that are not UUIDs match nothing.
func (s *AssetPGStore) List(ctx context.Context, ids []string) ([]types.Asset, error) {
	valid := validIDs(ids)
	if len(ids) > 0 && len(valid) == 0 {
		return []types.Asset{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	var rows pgx.Rows
	if len(ids) == 0 {
		rows, err = tx.Query(ctx, `
SELECT id::text, doc
FROM assets
ORDER BY id
`)
	} else {
		rows, err = tx.Query(ctx, `
SELECT id::text, doc
FROM assets
WHERE id = ANY($1::uuid[])
ORDER BY id
`, valid)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []types.Asset{}
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Asset{ID: id, Data: rec})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *AssetPGStore) Insert(ctx context.Context, rec types.Record) (string, error) {
	ids, err := s.InsertMany(ctx, []types.Record{rec})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// InsertMany writes all records in one transaction; either every row lands or none.
func (s *AssetPGStore) InsertMany(ctx context.Context, recs []types.Record) ([]string, error) {
	if len(recs) == 0 {
		return []string{}, nil
	}

	batch := &pgx.Batch{}
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		id, err := newAssetID()
		if err != nil {
			return nil, err
		}
		doc, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		batch.Queue(`
INSERT INTO assets (id, category, doc)
VALUES ($1::uuid, $2, $3::jsonb)
`, id, rec.Text("category"), doc)
		ids = append(ids, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := execBatch(ctx, tx, batch); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *AssetPGStore) Replace(ctx context.Context, id string, rec types.Record) error {
	id = strings.TrimSpace(id)
	if !uuidv7.Valid(id) {
		return ports.ErrAssetNotFound
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	tag, err := tx.Exec(ctx, `
UPDATE assets
SET category = $2, doc = $3::jsonb, updated_at = now()
WHERE id = $1::uuid
`, id, rec.Text("category"), doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrAssetNotFound
	}

	return tx.Commit(ctx)
}

func (s *AssetPGStore) Delete(ctx context.Context, ids []string) (int, error) {
	valid := validIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	tag, err := tx.Exec(ctx, `DELETE FROM assets WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ReplaceAll truncates the collection and reinserts assets under their own ids.
func (s *AssetPGStore) ReplaceAll(ctx context.Context, assets []types.Asset) error {
	batch := &pgx.Batch{}
	for _, a := range assets {
		if !uuidv7.Valid(a.ID) {
			return errors.New("persistence: backup asset has invalid id " + a.ID)
		}
		doc, err := json.Marshal(a.Data)
		if err != nil {
			return err
		}
		batch.Queue(`
INSERT INTO assets (id, category, doc)
VALUES ($1::uuid, $2, $3::jsonb)
`, a.ID, a.Data.Text("category"), doc)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `TRUNCATE assets`); err != nil {
		return err
	}
	if batch.Len() > 0 {
		if err := execBatch(ctx, tx, batch); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func decodeRecord(doc []byte) (types.Record, error) {
	rec := types.Record{}
	if len(doc) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if uuidv7.Valid(id) {
			out = append(out, id)
		}
	}
	return out
}
