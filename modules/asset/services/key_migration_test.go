package services

import (
	"context"
	"testing"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/logger"
)

func TestCanonicalStoredRecord(t *testing.T) {
	rec := types.Record{
		"category":   types.Text("Laptop"),
		"invoice.no": types.Text("INV-1"),
		"amount":     types.Text("₹1,000.00"),
		"GST (18%)":  types.Text("180"),
		"total":      types.NumberFromInt(1180),
		"remarks":    types.Null(),
		"serial_no":  types.Text("SN-1"),
	}
	out, changed := CanonicalStoredRecord(rec)
	if !changed {
		t.Fatal("expected change")
	}
	if out.Has("invoice.no") || out.Text("invoice_no") != "INV-1" {
		t.Fatalf("out=%v", out)
	}
	if n, ok := out.Get("amount").AsNumber(); !ok || n.IntPart() != 1000 {
		t.Fatalf("amount=%v", out.Get("amount"))
	}
	if n, ok := out.Get("gst_18").AsNumber(); !ok || n.IntPart() != 180 {
		t.Fatalf("gst_18=%v", out.Get("gst_18"))
	}
	if out.Has("GST (18%)") {
		t.Fatalf("alias kept: %v", out)
	}
	if !out.Get("remarks").IsNull() {
		t.Fatalf("remarks=%v", out.Get("remarks"))
	}
}

func TestCanonicalStoredRecord_AlreadyCanonical(t *testing.T) {
	rec := types.Record{
		"category": types.Text("Mobile"),
		"amount":   types.NumberFromInt(500),
		"gst_18":   types.NumberFromInt(90),
		"total":    types.Null(),
	}
	if _, changed := CanonicalStoredRecord(rec); changed {
		t.Fatal("canonical record reported as changed")
	}
}

func TestMigrateStoredKeys(t *testing.T) {
	store := newStubAssetStore()
	store.put("a1", types.Record{"category": types.Text("Laptop"), "amount": types.Text("1,200")})
	store.put("a2", types.Record{"category": types.Text("Laptop"), "amount": types.NumberFromInt(10)})
	store.put("a3", types.Record{"category": types.Text("Mobile"), "gst.18": types.Text("18")})

	dry, err := MigrateStoredKeys(context.Background(), store, true, logger.Nop())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if dry.Scanned != 3 || dry.Updated != 2 || len(store.replaced) != 0 {
		t.Fatalf("dry=%+v replaced=%d", dry, len(store.replaced))
	}

	report, err := MigrateStoredKeys(context.Background(), store, false, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if report.Updated != 2 {
		t.Fatalf("report=%+v", report)
	}
	if _, ok := store.replaced["a2"]; ok {
		t.Fatal("a2 was already canonical")
	}
	if n, ok := store.assets["a3"].Get("gst_18").AsNumber(); !ok || n.IntPart() != 18 {
		t.Fatalf("a3=%v", store.assets["a3"])
	}

	again, err := MigrateStoredKeys(context.Background(), store, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again.Updated != 0 {
		t.Fatalf("second pass updated %d", again.Updated)
	}
}

func TestMigrateStoredKeys_ListError(t *testing.T) {
	store := newStubAssetStore()
	store.listErr = errBoom
	if _, err := MigrateStoredKeys(context.Background(), store, false, nil); err == nil {
		t.Fatal("expected error")
	}
}
