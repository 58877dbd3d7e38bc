package services

import (
	"context"
	"sort"
	"strings"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	dictpkg "github.com/jacksonlee411/assetdesk/pkg/dict"
	"github.com/jacksonlee411/assetdesk/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	displayBlank     = "—"
	unknownCategory  = "Unknown"
	maxSheetNameRune = 31
)

var listDictLabels = dictpkg.Labels

type ViewEntry struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	IsCurrency bool   `json:"is_currency"`
}

type AssetView struct {
	ID       string      `json:"id"`
	Category string      `json:"category"`
	Entries  []ViewEntry `json:"entries"`
}

// EditForm prefills the edit screen of one asset.
type EditForm struct {
	ID       string                  `json:"id"`
	Category string                  `json:"category"`
	Fields   []types.FieldDefinition `json:"fields"`
	Values   map[string]string       `json:"values"`
}

type SearchQuery struct {
	Term string
	// Sort is <key>_asc or <key>_desc.
	Sort string
}

type SearchRow struct {
	ID       string            `json:"id"`
	TypeName string            `json:"type_name,omitempty"`
	Values   map[string]string `json:"values"`
}

type AssetReadService struct {
	assets     ports.AssetStore
	registry   ports.TypeSchemaRegistry
	normalizer *KeyNormalizer
}

func NewAssetReadService(assets ports.AssetStore, registry ports.TypeSchemaRegistry) *AssetReadService {
	return &AssetReadService{assets: assets, registry: registry, normalizer: NewKeyNormalizer(registry)}
}

func (s *AssetReadService) ListTypes(ctx context.Context) ([]string, error) {
	return s.registry.ListTypes(ctx)
}

func (s *AssetReadService) MasterFields() []types.FieldDefinition {
	return fieldmeta.MasterFields()
}

// GetFields returns the category's field list with option lists filled in for
// dictionary-backed select fields. Unknown categories yield no fields.
func (s *AssetReadService) GetFields(ctx context.Context, category string) ([]types.FieldDefinition, error) {
	fields, err := s.registry.GetFields(ctx, category)
	if err != nil {
		return nil, err
	}
	out := make([]types.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		if f.Kind == types.FieldSelect && len(f.Options) == 0 {
			if code, ok := fieldmeta.DictCodeFor(strings.ToLower(f.Name)); ok {
				labels, err := listDictLabels(ctx, code)
				if err != nil {
					return nil, err
				}
				f.Options = labels
			}
		}
		out = append(out, f)
	}
	return out, nil
}

// View renders every stored field of an asset for display. A missing or zero
// total is recomputed from amount and the GST buckets.
func (s *AssetReadService) View(ctx context.Context, id string) (AssetView, error) {
	asset, err := s.assets.Get(ctx, id)
	if err != nil {
		return AssetView{}, err
	}
	rec, fields, err := s.normalizer.Normalize(ctx, asset.Data)
	if err != nil {
		return AssetView{}, err
	}
	for key, v := range rec {
		if fieldmeta.IsCurrencyField(key) {
			rec[key] = types.Number(MoneyOf(v))
		}
	}
	if total := MoneyOf(rec.Get(fieldmeta.FieldTotal)); total.IsZero() {
		rec[fieldmeta.FieldTotal] = types.Number(amountPlusGST(rec))
	}

	view := AssetView{ID: asset.ID, Category: rec.Text(fieldmeta.FieldCategory)}
	for _, key := range displayOrder(rec, fields) {
		v := rec[key]
		entry := ViewEntry{Key: key, Label: fieldmeta.DisplayLabel(key, fields)}
		switch {
		case fieldmeta.IsCurrencyField(key):
			entry.IsCurrency = true
			entry.Value = money.FormatINR(MoneyOf(v))
		case v.IsBlank():
			entry.Value = displayBlank
		default:
			entry.Value = v.String()
		}
		view.Entries = append(view.Entries, entry)
	}
	return view, nil
}

// displayOrder lists schema fields first, then any other keys sorted.
func displayOrder(rec types.Record, fields []types.FieldDefinition) []string {
	out := make([]string, 0, len(rec))
	seen := map[string]struct{}{}
	for _, f := range fields {
		if _, ok := rec[f.Name]; ok {
			if _, dup := seen[f.Name]; !dup {
				seen[f.Name] = struct{}{}
				out = append(out, f.Name)
			}
		}
	}
	for _, key := range rec.Keys() {
		if _, ok := seen[key]; !ok {
			out = append(out, key)
		}
	}
	return out
}

func amountPlusGST(rec types.Record) decimal.Decimal {
	sum := MoneyOf(rec.Get(fieldmeta.FieldAmount))
	for key, v := range rec {
		if fieldmeta.IsGSTKey(key) {
			sum = sum.Add(MoneyOf(v))
		}
	}
	return sum
}

// EditForm prefills each schema field by name, falling back to its label.
// Blank GST buckets are computed from amount; money is grouped without the
// rupee symbol.
func (s *AssetReadService) EditForm(ctx context.Context, id string) (EditForm, error) {
	asset, err := s.assets.Get(ctx, id)
	if err != nil {
		return EditForm{}, err
	}
	rec := NormalizeGSTKeys(asset.Data)
	category := rec.Text(fieldmeta.FieldCategory)
	fields, err := s.GetFields(ctx, category)
	if err != nil {
		return EditForm{}, err
	}

	amount := MoneyOf(rec.Get(fieldmeta.FieldAmount))
	values := make(map[string]string, len(fields)+1)
	for _, f := range fields {
		raw, ok := rec[f.Name]
		if !ok {
			raw = rec.Get(f.Label)
		}
		switch {
		case fieldmeta.IsGSTKey(f.Name):
			gst := MoneyOf(raw)
			if raw.IsBlank() || strings.TrimSpace(raw.String()) == displayBlank {
				rate, _ := fieldmeta.GSTRate(f.Name)
				gst = money.Round2(amount.Mul(decimal.NewFromInt(int64(rate))).Div(hundred))
			}
			values[f.Name] = money.Group(gst)
		case f.Name == fieldmeta.FieldAmount:
			values[f.Name] = money.Group(amount)
		case f.Name == fieldmeta.FieldTotal:
			values[f.Name] = money.Group(amountPlusGST(rec))
		case raw.IsBlank():
			values[f.Name] = ""
		default:
			values[f.Name] = raw.String()
		}
	}
	values[fieldmeta.FieldCategory] = category
	return EditForm{ID: asset.ID, Category: category, Fields: fields, Values: values}, nil
}

// Search matches a case-insensitive term against stored values, the category,
// the registered type name and the type's field labels, then sorts.
func (s *AssetReadService) Search(ctx context.Context, q SearchQuery) ([]SearchRow, error) {
	assets, err := s.assets.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	typeNames, err := s.registry.ListTypes(ctx)
	if err != nil {
		return nil, err
	}
	schemas := map[string][]types.FieldDefinition{}
	fieldsOf := func(typeName string) ([]types.FieldDefinition, error) {
		if f, ok := schemas[typeName]; ok {
			return f, nil
		}
		f, err := s.registry.GetFields(ctx, typeName)
		if err != nil {
			return nil, err
		}
		schemas[typeName] = f
		return f, nil
	}

	term := searchFold(q.Term)
	rows := make([]SearchRow, 0, len(assets))
	for _, asset := range assets {
		category := asset.Data.Text(fieldmeta.FieldCategory)
		typeName := matchTypeName(typeNames, category)
		if term != "" {
			matched, err := matchesTerm(term, asset.Data, category, typeName, fieldsOf)
			if err != nil {
				return nil, err
			}
			if !matched {
				continue
			}
		}
		row := SearchRow{ID: asset.ID, TypeName: typeName, Values: make(map[string]string, len(asset.Data))}
		for key, v := range asset.Data {
			row.Values[key] = displayOrBlank(v)
		}
		rows = append(rows, row)
	}

	sortRows(rows, q.Sort)
	return rows, nil
}

func matchesTerm(term string, rec types.Record, category, typeName string, fieldsOf func(string) ([]types.FieldDefinition, error)) (bool, error) {
	for _, v := range rec {
		if strings.Contains(searchFold(v.String()), term) {
			return true, nil
		}
	}
	if strings.Contains(searchFold(category), term) {
		return true, nil
	}
	if typeName == "" {
		return false, nil
	}
	if strings.Contains(searchFold(typeName), term) {
		return true, nil
	}
	fields, err := fieldsOf(typeName)
	if err != nil {
		return false, err
	}
	for _, f := range fields {
		if strings.Contains(searchFold(f.Label), term) {
			return true, nil
		}
	}
	return false, nil
}

func matchTypeName(typeNames []string, category string) string {
	for _, name := range typeNames {
		if strings.EqualFold(name, category) {
			return name
		}
	}
	return ""
}

// searchFold drops separators, currency markers and case.
func searchFold(s string) string {
	for _, tok := range []string{",", money.Symbol, money.Code, "USD"} {
		s = strings.ReplaceAll(s, tok, "")
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func displayOrBlank(v types.Value) string {
	if v.IsBlank() {
		return displayBlank
	}
	return v.String()
}

// sortRows orders rows by <key>_<dir>. Date keys compare as dates, money-like
// keys as amounts, everything else as lowercase text. Unparseable dates sort
// first ascending.
func sortRows(rows []SearchRow, spec string) {
	i := strings.LastIndex(spec, "_")
	if i <= 0 {
		return
	}
	key, desc := spec[:i], spec[i+1:] == "desc"

	var less func(a, b string) bool
	switch {
	case strings.Contains(key, "date"):
		less = func(a, b string) bool { return sortDate(a).Before(sortDate(b)) }
	case fieldmeta.IsMoneyLike(key):
		less = func(a, b string) bool { return sortMoney(a).LessThan(sortMoney(b)) }
	default:
		less = func(a, b string) bool { return strings.ToLower(a) < strings.ToLower(b) }
	}
	value := func(r SearchRow) string {
		if v, ok := r.Values[key]; ok {
			return v
		}
		return ""
	}
	sort.SliceStable(rows, func(x, y int) bool {
		a, b := value(rows[x]), value(rows[y])
		if desc {
			return less(b, a)
		}
		return less(a, b)
	})
}

func sortDate(s string) civil.Date {
	if d, ok := civildate.ParseLoose(s); ok {
		return d
	}
	return civil.Date{}
}

func sortMoney(s string) decimal.Decimal {
	return money.Normalize(strings.ReplaceAll(s, "USD", ""))
}
