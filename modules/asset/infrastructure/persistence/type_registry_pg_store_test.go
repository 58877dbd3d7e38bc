package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

const laptopFieldsJSON = `[{"label":"Model","name":"model","type":"text"},{"label":"GST (18%)","name":"gst_18","type":"number"}]`

func TestTypeRegistryPGStore_GetType(t *testing.T) {
	ctx := context.Background()

	if _, err := NewTypeRegistryPGStore(noBegin(t)).GetType(ctx, "  "); !errors.Is(err, ports.ErrAssetTypeNotFound) {
		t.Fatalf("err=%v", err)
	}

	store := NewTypeRegistryPGStore(beginFunc(func(context.Context) (pgx.Tx, error) {
		return nil, errors.New("begin")
	}))
	if _, err := store.GetType(ctx, "Laptop"); err == nil {
		t.Fatal("expected begin error")
	}

	store = NewTypeRegistryPGStore(txBeginner(&txStub{row: stubRow{err: pgx.ErrNoRows}}))
	if _, err := store.GetType(ctx, "Laptop"); !errors.Is(err, ports.ErrAssetTypeNotFound) {
		t.Fatalf("err=%v", err)
	}
	fields, err := store.GetFields(ctx, "Laptop")
	if err != nil || fields == nil || len(fields) != 0 {
		t.Fatalf("fields=%v err=%v", fields, err)
	}

	store = NewTypeRegistryPGStore(txBeginner(&txStub{row: stubRow{err: errors.New("row")}}))
	if _, err := store.GetFields(ctx, "Laptop"); err == nil {
		t.Fatal("expected row error")
	}

	store = NewTypeRegistryPGStore(txBeginner(&txStub{row: stubRow{vals: []any{"Laptop", []byte(`{`)}}}))
	if _, err := store.GetType(ctx, "Laptop"); err == nil {
		t.Fatal("expected decode error")
	}

	store = NewTypeRegistryPGStore(txBeginner(&txStub{row: stubRow{vals: []any{"Laptop", []byte(laptopFieldsJSON)}}}))
	got, err := store.GetType(ctx, "Laptop")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got.Name != "Laptop" || len(got.Fields) != 2 || got.Fields[1].Kind != types.FieldNumber {
		t.Fatalf("got=%+v", got)
	}
}

func TestTypeRegistryPGStore_ListTypes(t *testing.T) {
	ctx := context.Background()

	store := NewTypeRegistryPGStore(txBeginner(&txStub{queryErr: errors.New("query")}))
	if _, err := store.ListTypes(ctx); err == nil {
		t.Fatal("expected query error")
	}

	store = NewTypeRegistryPGStore(txBeginner(&txStub{rows: &stubRows{data: [][]any{{"Laptop"}, {"Mobile"}}}}))
	got, err := store.ListTypes(ctx)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(got) != 2 || got[0] != "Laptop" || got[1] != "Mobile" {
		t.Fatalf("got=%v", got)
	}
}

func TestTypeRegistryPGStore_UpsertType(t *testing.T) {
	ctx := context.Background()

	if err := NewTypeRegistryPGStore(noBegin(t)).UpsertType(ctx, types.AssetType{Name: " "}); err == nil {
		t.Fatal("expected name error")
	}

	store := NewTypeRegistryPGStore(txBeginner(&txStub{execErr: errors.New("exec")}))
	if err := store.UpsertType(ctx, types.AssetType{Name: "Laptop"}); err == nil {
		t.Fatal("expected exec error")
	}

	tx := &txStub{}
	if err := NewTypeRegistryPGStore(txBeginner(tx)).UpsertType(ctx, types.AssetType{Name: " Laptop "}); err != nil {
		t.Fatalf("err=%v", err)
	}
	if tx.execArgs[0][0] != "Laptop" || string(tx.execArgs[0][1].([]byte)) != "[]" || !tx.committed {
		t.Fatalf("args=%v committed=%v", tx.execArgs[0], tx.committed)
	}
}
