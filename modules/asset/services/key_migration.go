package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

type KeyMigrationReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

// MigrateStoredKeys rewrites stored assets whose keys or currency values are
// not canonical. With dryRun set it only counts.
func MigrateStoredKeys(ctx context.Context, assets ports.AssetStore, dryRun bool, log logger.Logger) (KeyMigrationReport, error) {
	if log == nil {
		log = logger.Nop()
	}
	all, err := assets.List(ctx, nil)
	if err != nil {
		return KeyMigrationReport{}, err
	}
	var report KeyMigrationReport
	for _, a := range all {
		report.Scanned++
		rec, changed := CanonicalStoredRecord(a.Data)
		if !changed {
			continue
		}
		report.Updated++
		if dryRun {
			continue
		}
		if err := assets.Replace(ctx, a.ID, rec); err != nil {
			return report, fmt.Errorf("migrate %s: %w", a.ID, err)
		}
	}
	log.Info("stored keys migrated", "scanned", report.Scanned, "updated", report.Updated, "dry_run", dryRun)
	return report, nil
}

// CanonicalStoredRecord replaces dots in keys with underscores, collapses GST
// aliases onto gst_<rate> and stores non-blank currency fields as numbers.
// The bool reports whether anything changed.
func CanonicalStoredRecord(rec types.Record) (types.Record, bool) {
	renamed := make(types.Record, len(rec))
	for _, key := range rec.Keys() {
		target := strings.TrimSpace(strings.ReplaceAll(key, ".", "_"))
		if target == "" {
			continue
		}
		if prev, seen := renamed[target]; seen && !prev.IsBlank() && key != target {
			continue
		}
		renamed[target] = rec[key]
	}
	out := NormalizeGSTKeys(renamed)
	for key, v := range out {
		if !fieldmeta.IsCurrencyField(key) || v.IsBlank() || v.Kind() == types.KindNumber {
			continue
		}
		out[key] = types.Number(MoneyOf(v))
	}
	return out, !sameRecord(rec, out)
}

func sameRecord(a, b types.Record) bool {
	if len(a) != len(b) {
		return false
	}
	for k, va := range a {
		vb, ok := b[k]
		if !ok || va.Kind() != vb.Kind() || !va.Equal(vb) {
			return false
		}
	}
	return true
}
