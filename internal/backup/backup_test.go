package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/modules/asset/infrastructure/persistence"
)

func fixedClock(ts string) func() time.Time {
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return at }
}

func seededStore(t *testing.T) *persistence.MemoryAssetStore {
	t.Helper()
	s := persistence.NewMemoryAssetStore()
	for _, serial := range []string{"SN-1", "SN-2"} {
		if _, err := s.Insert(context.Background(), types.Record{
			"category":  types.Text("Laptop"),
			"serial_no": types.Text(serial),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return s
}

func TestRun_WritesTimestampedSnapshot(t *testing.T) {
	dir := t.TempDir()
	store := seededStore(t)
	svc := NewService(store, dir, WithClock(fixedClock("2025-06-15T10:30:00Z")))

	res, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if res.Assets != 2 {
		t.Fatalf("assets=%d", res.Assets)
	}
	if filepath.Base(res.Path) != "assetdesk_20250615_103000.jsonl" {
		t.Fatalf("path=%q", res.Path)
	}
	b, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(b), "\n"); lines != 2 {
		t.Fatalf("lines=%d", lines)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("leftover files: %d", len(entries))
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(persistence.NewMemoryAssetStore(), dir)
	if _, err := svc.Latest(); !errors.Is(err, ErrNoBackups) {
		t.Fatalf("err=%v", err)
	}

	for _, name := range []string{"assetdesk_20250101_000000.jsonl", "assetdesk_20250301_000000.jsonl", "other.jsonl", "assetdesk_20250201_000000.jsonl"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "assetdesk_20250301_000000.jsonl" {
		t.Fatalf("latest=%q", got)
	}

	missing := NewService(persistence.NewMemoryAssetStore(), filepath.Join(dir, "nope"))
	if _, err := missing.Latest(); !errors.Is(err, ErrNoBackups) {
		t.Fatalf("err=%v", err)
	}
}

func TestRestore_LatestReplacesCollection(t *testing.T) {
	dir := t.TempDir()
	src := seededStore(t)
	backupSvc := NewService(src, dir, WithClock(fixedClock("2025-06-15T10:30:00Z")))
	if _, err := backupSvc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	want, _ := src.List(context.Background(), nil)

	dst := persistence.NewMemoryAssetStore()
	if _, err := dst.Insert(context.Background(), types.Record{"serial_no": types.Text("OLD")}); err != nil {
		t.Fatal(err)
	}
	svc := NewService(dst, dir, WithRestorer(dst))
	n, err := svc.Restore(context.Background(), "")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 2 {
		t.Fatalf("n=%d", n)
	}
	got, _ := dst.List(context.Background(), nil)
	if len(got) != 2 {
		t.Fatalf("got=%d", len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID || got[i].Data.Text("serial_no") != want[i].Data.Text("serial_no") {
			t.Fatalf("row %d: got=%+v want=%+v", i, got[i], want[i])
		}
	}
}

func TestRestore_Errors(t *testing.T) {
	dir := t.TempDir()
	store := persistence.NewMemoryAssetStore()

	if _, err := NewService(store, dir).Restore(context.Background(), ""); err == nil {
		t.Fatal("expected error without restorer")
	}

	svc := NewService(store, dir, WithRestorer(store))
	if _, err := svc.Restore(context.Background(), ""); !errors.Is(err, ErrNoBackups) {
		t.Fatalf("err=%v", err)
	}

	bad := filepath.Join(dir, "assetdesk_20250101_000000.jsonl")
	if err := os.WriteFile(bad, []byte("{\"id\":\"\",\"data\":{}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Restore(context.Background(), bad); err == nil || !strings.Contains(err.Error(), "missing id") {
		t.Fatalf("err=%v", err)
	}
}

func TestReadSnapshot(t *testing.T) {
	in := "{\"id\":\"a\",\"data\":{\"amount\":1180,\"serial_no\":\"SN\",\"remarks\":null}}\n\n{\"id\":\"b\",\"data\":{}}\n"
	got, err := ReadSnapshot(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d", len(got))
	}
	if got[0].Data["amount"].Kind() != types.KindNumber {
		t.Fatalf("amount kind=%v", got[0].Data["amount"].Kind())
	}
	if !got[0].Data["remarks"].IsNull() {
		t.Fatalf("remarks=%v", got[0].Data["remarks"])
	}

	if _, err := ReadSnapshot(strings.NewReader("{not json}\n")); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Fatalf("err=%v", err)
	}
}

func TestPurgePreviews(t *testing.T) {
	now := fixedClock("2025-06-15T10:00:00Z")
	previews := persistence.NewMemoryPreviewStore(time.Hour, now)
	if err := previews.Save(context.Background(), types.ImportPreview{ID: "p1"}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(persistence.NewMemoryAssetStore(), t.TempDir(),
		WithPreviewPurger(previews),
		WithClock(fixedClock("2025-06-15T12:00:00Z")),
	)
	if !svc.CanPurge() {
		t.Fatal("expected purger")
	}
	n, err := svc.PurgePreviews(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("n=%d", n)
	}

	noop := NewService(persistence.NewMemoryAssetStore(), t.TempDir())
	if n, err := noop.PurgePreviews(context.Background()); err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
