package services

import (
	"context"
	"strings"
	"time"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/jacksonlee411/assetdesk/pkg/money"
	"github.com/shopspring/decimal"
)

// KekaSheetName is the single sheet of the HR-system export.
const KekaSheetName = "KEKA Export"

var kekaHeaders = []string{
	"Asset ID", "Asset Name", "Asset Description", "Asset Location", "Asset Category",
	"Asset Type", "Purchased On (dd-mmm-yyyy)", "Warranty Expires On (dd-mmm-yyyy)",
	"Asset Condition", "Asset Status", "Reason, if Not Available",
	"Employee Number, if Assigned", "Date of Asset Assignment (dd-mmm-yyyy)",
}

// Export renders assets (all when ids is empty) as one sheet per category.
// Headers are the schema labels; dates are dd-mm-yyyy and money is numeric.
func (s *AssetReadService) Export(ctx context.Context, ids []string) (types.Workbook, error) {
	assets, err := s.assets.List(ctx, ids)
	if err != nil {
		return types.Workbook{}, err
	}

	var order []string
	byCategory := map[string][]types.Record{}
	for _, a := range assets {
		category := strings.TrimSpace(a.Data.Text(fieldmeta.FieldCategory))
		if category == "" {
			category = unknownCategory
		}
		if _, ok := byCategory[category]; !ok {
			order = append(order, category)
		}
		byCategory[category] = append(byCategory[category], NormalizeGSTKeys(a.Data))
	}

	var wb types.Workbook
	for _, category := range order {
		recs := byCategory[category]
		fields, err := s.exportFields(ctx, category, recs[0])
		if err != nil {
			return types.Workbook{}, err
		}
		if len(fields) == 0 {
			continue
		}
		header := make([]types.Value, len(fields))
		for i, f := range fields {
			header[i] = types.Text(f.Label)
		}
		sheet := types.Sheet{Name: truncateRunes(category, maxSheetNameRune), Rows: [][]types.Value{header}}
		for _, rec := range recs {
			row := make([]types.Value, len(fields))
			for i, f := range fields {
				row[i] = exportCell(f, rec)
			}
			sheet.Rows = append(sheet.Rows, row)
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

// exportFields uses the registered schema, or the keys of a sample record for
// categories without one.
func (s *AssetReadService) exportFields(ctx context.Context, category string, sample types.Record) ([]types.FieldDefinition, error) {
	fields, err := s.registry.GetFields(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		out := make([]types.FieldDefinition, 0, len(fields))
		for _, f := range fields {
			if canon, ok := CanonicalGSTKey(f.Name); ok {
				f.Name = canon
				f.Label = fieldmeta.GSTLabel(canon)
			}
			out = append(out, f)
		}
		return out, nil
	}
	out := make([]types.FieldDefinition, 0, len(sample))
	for _, key := range sample.Keys() {
		f := types.FieldDefinition{Name: key, Label: fieldmeta.DisplayLabel(key, nil), Kind: types.FieldText}
		if fieldmeta.IsGSTKey(key) {
			f.Kind = types.FieldNumber
		}
		out = append(out, f)
	}
	return out, nil
}

func exportCell(f types.FieldDefinition, rec types.Record) types.Value {
	v := rec.Get(f.Name)
	if v.IsBlank() {
		v = rec.Get(f.Label)
	}
	if v.IsBlank() {
		return types.Text("")
	}
	switch {
	case f.Kind == types.FieldDate:
		if d, ok := v.AsDate(); ok {
			return types.Text(civildate.FormatDMY(d))
		}
		if v.Kind() == types.KindText {
			if d, ok := civildate.ParseLoose(v.String()); ok {
				return types.Text(civildate.FormatDMY(d))
			}
		}
		return v
	case isExportCurrency(f):
		if _, ok := v.AsNumber(); ok {
			return v
		}
		raw := strings.NewReplacer(money.Symbol, "", ",", "", " ", "").Replace(v.String())
		if d, err := decimal.NewFromString(raw); err == nil {
			return types.Number(d)
		}
		return v
	default:
		return v
	}
}

func isExportCurrency(f types.FieldDefinition) bool {
	name := strings.ToLower(f.Name)
	label := strings.ToLower(f.Label)
	if name == fieldmeta.FieldAmount || name == fieldmeta.FieldTotal || strings.HasPrefix(name, "gst_") || strings.HasPrefix(label, "gst") {
		return true
	}
	return f.Kind == types.FieldNumber &&
		(strings.Contains(name, "amount") || strings.Contains(name, "total") || strings.Contains(name, "gst"))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// KekaExport renders assets in the HR system's asset upload layout.
func (s *AssetReadService) KekaExport(ctx context.Context, ids []string) (types.Workbook, error) {
	assets, err := s.assets.List(ctx, ids)
	if err != nil {
		return types.Workbook{}, err
	}
	header := make([]types.Value, len(kekaHeaders))
	for i, h := range kekaHeaders {
		header[i] = types.Text(h)
	}
	sheet := types.Sheet{Name: KekaSheetName, Rows: [][]types.Value{header}}
	for _, a := range assets {
		cells := KekaRow(a.Data)
		row := make([]types.Value, len(cells))
		for i, c := range cells {
			row[i] = types.Text(c)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return types.Workbook{Sheets: []types.Sheet{sheet}}, nil
}

// KekaRow maps one asset onto the HR export columns. The asset id column is
// chosen per category from the first populated tag field.
func KekaRow(rec types.Record) []string {
	get := func(key string) string { return strings.TrimSpace(rec.Text(key)) }
	firstOf := func(keys ...string) string {
		for _, k := range keys {
			if v := get(k); v != "" {
				return v
			}
		}
		return ""
	}

	category := get(fieldmeta.FieldCategory)
	name := orDash(category)
	desc := "-"
	location := joinLocation(get("area"), get(fieldmeta.FieldState))
	var assetID string

	switch strings.ToLower(category) {
	case "desktop":
		cpu := orDash(firstOf("IT_tagC", "accounts_tagC", "endpoint_name"))
		monitor := orDash(firstOf("IT_tagM", "accounts_tagM", "serial_no"))
		assetID = cpu + ", " + monitor
	case "laptop":
		assetID = firstOf("it_tag", "accounts_tag", "serial_no", "endpoint_name")
		if joined := joinNonEmpty(", ", get("system_manufacturer"), get("system_model")); joined != "" {
			name = joined
		}
		desc = orDash(joinNonEmpty(", ", get("processor"), get("ram"), get("os"), get("hdd"), get("license")))
	case "franchise inv":
		assetID = firstOf("it_tag", "accounts_tag", "endpoint_name")
	case "mobile":
		assetID = firstOf("imei1", "imei2")
	default:
		assetID = firstOf("IT_tagC", "accounts_tagC", "IT_tagM", "accounts_tagM", "it_tag", "accounts_tag", "serial_no", "endpoint_name")
		desc = orDash(joinNonEmpty("  ", get("model"), get("system_model"), get("ram"), get("storage")))
	}

	condition, status, reason := kekaStatus(strings.ToLower(get(fieldmeta.FieldStatus)))

	employee := "-"
	username, userCode := get("username"), get("user_code")
	switch {
	case username != "" && userCode != "":
		employee = username + " (" + userCode + ")"
	case username != "" || userCode != "":
		employee = username + userCode
	}

	given := kekaDate(rec.Get("given_date"))
	return []string{
		orDash(assetID),
		name,
		desc,
		location,
		"IT assets",
		name,
		kekaDate(rec.Get("purchase_date")),
		"-",
		condition,
		status,
		reason,
		employee,
		given,
	}
}

// kekaStatus maps a stored status to condition, status and reason columns.
// The (p)/(g) suffix carries the condition.
func kekaStatus(raw string) (condition, status, reason string) {
	switch raw {
	case "available(p)", "assigned(p)":
		return "poor", raw, "-"
	case "available(g)", "assigned(g)":
		return "good", raw, "-"
	case "discard", "repair/faulty":
		return "-", "not available", raw
	default:
		return "-", orDash(raw), "-"
	}
}

func kekaDate(v types.Value) string {
	d, ok := v.AsDate()
	if !ok {
		d, ok = civildate.ParseDMY(v.String())
	}
	if !ok {
		return "-"
	}
	return d.In(time.UTC).Format("02-Jan-2006")
}

func joinLocation(area, state string) string {
	switch {
	case area != "" && state != "":
		return area + " (" + state + ")"
	case area != "" || state != "":
		return area + state
	default:
		return "-"
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
