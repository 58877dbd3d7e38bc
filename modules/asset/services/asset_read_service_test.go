package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

func newReadFixture() (*AssetReadService, *stubAssetStore, *stubRegistry) {
	assets := newStubAssetStore()
	reg := &stubRegistry{types: map[string]types.AssetType{"Laptop": laptopType()}}
	return NewAssetReadService(assets, reg), assets, reg
}

func stubDictLabels(t *testing.T, labels map[string][]string) {
	t.Helper()
	prev := listDictLabels
	listDictLabels = func(_ context.Context, code string) ([]string, error) {
		if l, ok := labels[code]; ok {
			return l, nil
		}
		return nil, errBoom
	}
	t.Cleanup(func() { listDictLabels = prev })
}

func TestAssetReadService_GetFields(t *testing.T) {
	svc, _, _ := newReadFixture()
	stubDictLabels(t, map[string][]string{"asset_status": {"Available(g)", "Discard"}})

	fields, err := svc.GetFields(context.Background(), "Laptop")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, f := range fields {
		if f.Name == "status" && !reflect.DeepEqual(f.Options, []string{"Available(g)", "Discard"}) {
			t.Fatalf("status options=%v", f.Options)
		}
	}
	fields, err = svc.GetFields(context.Background(), "Unknown")
	if err != nil || len(fields) != 0 {
		t.Fatalf("fields=%v err=%v", fields, err)
	}
}

func TestAssetReadService_View(t *testing.T) {
	svc, assets, _ := newReadFixture()
	assets.put("a1", types.Record{
		"category":   types.Text("Laptop"),
		"Serial No.": types.Text("SN-1"),
		"amount":     types.Text("1,000"),
		"gst18":      types.Text("180"),
		"vendor":     types.Text(""),
		"extra_note": types.Text("hi"),
	})
	view, err := svc.View(context.Background(), "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	got := map[string]ViewEntry{}
	var keys []string
	for _, e := range view.Entries {
		got[e.Key] = e
		keys = append(keys, e.Key)
	}
	if got["total"].Value != "₹1,180.00" || !got["total"].IsCurrency {
		t.Fatalf("total=%+v", got["total"])
	}
	if got["gst_18"].Label != "GST (18%)" || got["gst_18"].Value != "₹180.00" {
		t.Fatalf("gst=%+v", got["gst_18"])
	}
	if got["serial_no"].Label != "Serial No." || got["vendor"].Value != "—" {
		t.Fatalf("entries=%+v", view.Entries)
	}
	if got["extra_note"].Label != "Extra Note" {
		t.Fatalf("extra=%+v", got["extra_note"])
	}
	if keys[0] != "serial_no" || keys[len(keys)-1] != "extra_note" {
		t.Fatalf("order=%v", keys)
	}
}

func TestAssetReadService_EditForm(t *testing.T) {
	svc, assets, _ := newReadFixture()
	stubDictLabels(t, map[string][]string{"asset_status": {"Available(g)"}})
	assets.put("a1", types.Record{
		"category": types.Text("Laptop"),
		"Vendor":   types.Text("Dell"),
		"amount":   num("123456"),
		"gst_18":   types.Text("—"),
	})
	form, err := svc.EditForm(context.Background(), "a1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	want := map[string]string{
		"vendor":   "Dell",
		"amount":   "1,23,456.00",
		"gst_18":   "22,222.08",
		"total":    "1,23,456.00",
		"category": "Laptop",
		"status":   "",
	}
	for k, v := range want {
		if form.Values[k] != v {
			t.Fatalf("%s=%q want %q", k, form.Values[k], v)
		}
	}
}

func TestAssetReadService_Search(t *testing.T) {
	svc, assets, _ := newReadFixture()
	assets.put("a1", types.Record{"category": types.Text("laptop"), "vendor": types.Text("Dell"), "amount": types.Text("₹1,000"), "given_date": types.Text("05-01-2025")})
	assets.put("a2", types.Record{"category": types.Text("Mouse"), "vendor": types.Text("Logitech"), "amount": types.Text("250"), "given_date": types.Text("2024-12-31")})
	assets.put("a3", types.Record{"category": types.Text("Mouse"), "vendor": types.Text(""), "amount": types.Text("50,000"), "given_date": types.Text("")})
	ctx := context.Background()

	ids := func(rows []SearchRow) []string {
		out := make([]string, 0, len(rows))
		for _, r := range rows {
			out = append(out, r.ID)
		}
		return out
	}

	cases := []struct {
		name string
		q    SearchQuery
		want []string
	}{
		{name: "all", q: SearchQuery{}, want: []string{"a1", "a2", "a3"}},
		{name: "value", q: SearchQuery{Term: "LOGI"}, want: []string{"a2"}},
		{name: "currency folded", q: SearchQuery{Term: "₹1,000"}, want: []string{"a1"}},
		{name: "field label", q: SearchQuery{Term: "serial no"}, want: []string{"a1"}},
		{name: "money asc", q: SearchQuery{Sort: "amount_asc"}, want: []string{"a2", "a1", "a3"}},
		{name: "money desc", q: SearchQuery{Sort: "amount_desc"}, want: []string{"a3", "a1", "a2"}},
		{name: "date asc", q: SearchQuery{Sort: "given_date_asc"}, want: []string{"a3", "a2", "a1"}},
		{name: "text asc", q: SearchQuery{Sort: "vendor_asc"}, want: []string{"a1", "a2", "a3"}},
		{name: "bad sort", q: SearchQuery{Sort: "vendor"}, want: []string{"a1", "a2", "a3"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := svc.Search(ctx, tc.q)
			if err != nil {
				t.Fatalf("err=%v", err)
			}
			if got := ids(rows); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got=%v want=%v", got, tc.want)
			}
		})
	}

	rows, _ := svc.Search(ctx, SearchQuery{Term: "dell"})
	if rows[0].TypeName != "Laptop" || rows[0].Values["vendor"] != "Dell" {
		t.Fatalf("row=%+v", rows[0])
	}
	rows, _ = svc.Search(ctx, SearchQuery{Term: "logitech"})
	if rows[0].TypeName != "" {
		t.Fatalf("unregistered category should have no type name: %+v", rows[0])
	}

	assets.listErr = errBoom
	if _, err := svc.Search(ctx, SearchQuery{}); !errors.Is(err, errBoom) {
		t.Fatalf("err=%v", err)
	}
}

func TestAssetReadService_Export(t *testing.T) {
	svc, assets, _ := newReadFixture()
	assets.put("a1", types.Record{"category": types.Text("Laptop"), "serial_no": types.Text("SN-1"), "given_date": types.Text("5/1/2025"), "amount": types.Text("₹1,000"), "gst18": types.Text("180")})
	assets.put("a2", types.Record{"category": types.Text(""), "model": types.Text("Z"), "gst_28": types.Text("28")})
	assets.put("a3", types.Record{"category": types.Text("A very long category name that overflows")})

	wb, err := svc.Export(context.Background(), nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(wb.Sheets) != 3 {
		t.Fatalf("sheets=%d", len(wb.Sheets))
	}
	laptop := wb.Sheets[0]
	if laptop.Name != "Laptop" || laptop.Rows[0][0].String() != "Serial No." || laptop.Rows[0][5].String() != "GST (18%)" {
		t.Fatalf("laptop=%v", laptop.Rows[0])
	}
	row := laptop.Rows[1]
	if row[3].String() != "05-01-2025" {
		t.Fatalf("date=%v", row[3])
	}
	if n, ok := row[4].AsNumber(); !ok || n.String() != "1000" {
		t.Fatalf("amount=%v", row[4])
	}
	if n, ok := row[5].AsNumber(); !ok || n.String() != "180" {
		t.Fatalf("gst=%v", row[5])
	}
	if row[1].String() != "" {
		t.Fatalf("blank vendor=%v", row[1])
	}

	unknown := wb.Sheets[1]
	if unknown.Name != "Unknown" {
		t.Fatalf("name=%q", unknown.Name)
	}
	labels := []string{}
	for _, c := range unknown.Rows[0] {
		labels = append(labels, c.String())
	}
	if !reflect.DeepEqual(labels, []string{"Category", "GST (28%)", "Model"}) {
		t.Fatalf("labels=%v", labels)
	}
	if len([]rune(wb.Sheets[2].Name)) != 31 {
		t.Fatalf("long name=%q", wb.Sheets[2].Name)
	}

	wb, err = svc.Export(context.Background(), []string{"a1"})
	if err != nil || len(wb.Sheets) != 1 {
		t.Fatalf("filtered export: %v %v", wb, err)
	}
}

func TestKekaRow(t *testing.T) {
	cases := []struct {
		name string
		rec  types.Record
		want []string
	}{
		{
			name: "laptop",
			rec: types.Record{
				"category":            types.Text("Laptop"),
				"accounts_tag":        types.Text("ACC-9"),
				"system_manufacturer": types.Text("Dell"),
				"system_model":        types.Text("Latitude"),
				"processor":           types.Text("i5"),
				"ram":                 types.Text("16GB"),
				"area":                types.Text("Pune"),
				"state":               types.Text("Maharashtra"),
				"status":              types.Text("Assigned(P)"),
				"username":            types.Text("Asha"),
				"user_code":           types.Text("E12"),
				"given_date":          types.Text("05-01-2025"),
				"purchase_date":       types.Text("2024-01-05"),
			},
			want: []string{"ACC-9", "Dell, Latitude", "i5, 16GB", "Pune (Maharashtra)", "IT assets", "Dell, Latitude", "-", "-", "poor", "assigned(p)", "-", "Asha (E12)", "05-Jan-2025"},
		},
		{
			name: "desktop",
			rec: types.Record{
				"category":  types.Text("Desktop"),
				"IT_tagC":   types.Text("CPU-1"),
				"serial_no": types.Text("MON-SN"),
				"status":    types.Text("Discard"),
			},
			want: []string{"CPU-1, MON-SN", "Desktop", "-", "-", "IT assets", "Desktop", "-", "-", "-", "not available", "discard", "-", "-"},
		},
		{
			name: "mobile",
			rec: types.Record{
				"category":  types.Text("Mobile"),
				"imei2":     types.Text("3579"),
				"user_code": types.Text("E7"),
			},
			want: []string{"3579", "Mobile", "-", "-", "IT assets", "Mobile", "-", "-", "-", "-", "-", "E7", "-"},
		},
		{
			name: "default",
			rec: types.Record{
				"category": types.Text("Printer"),
				"model":    types.Text("LaserJet"),
				"ram":      types.Text("1GB"),
				"area":     types.Text("Goa"),
				"status":   types.Text("Available(g)"),
			},
			want: []string{"-", "Printer", "LaserJet  1GB", "Goa", "IT assets", "Printer", "-", "-", "good", "available(g)", "-", "-", "-"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KekaRow(tc.rec); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got=%q\nwant=%q", got, tc.want)
			}
		})
	}
}

func TestAssetReadService_KekaExport(t *testing.T) {
	svc, assets, _ := newReadFixture()
	assets.put("a1", types.Record{"category": types.Text("Mobile"), "imei1": types.Text("1")})
	wb, err := svc.KekaExport(context.Background(), nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(wb.Sheets) != 1 || wb.Sheets[0].Name != KekaSheetName || len(wb.Sheets[0].Rows) != 2 {
		t.Fatalf("wb=%+v", wb)
	}
	if wb.Sheets[0].Rows[1][0].String() != "1" {
		t.Fatalf("row=%v", wb.Sheets[0].Rows[1])
	}
}
