package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/ports"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

var (
	digitsRe        = regexp.MustCompile(`\d+`)
	gstHeaderRateRe = regexp.MustCompile(`\((\d+)\s*%?\)`)
)

// CanonicalGSTKey maps any gst-prefixed key carrying a rate (gst18, GST (18%),
// gst_(18%)) to gst_<rate>. ok is false for keys that are not GST buckets.
func CanonicalGSTKey(key string) (string, bool) {
	if !strings.HasPrefix(strings.ToLower(key), "gst") {
		return key, false
	}
	digits := digitsRe.FindString(key)
	if digits == "" {
		return key, false
	}
	return "gst_" + digits, true
}

// NormalizeGSTKeys returns a copy of rec with GST keys canonical. When several
// keys collapse onto one bucket, a non-blank value beats a blank one and the
// key already in canonical shape beats its variants.
func NormalizeGSTKeys(rec types.Record) types.Record {
	out := make(types.Record, len(rec))
	for _, key := range rec.Keys() {
		value := rec[key]
		target, ok := CanonicalGSTKey(key)
		if !ok {
			target = key
		}
		prev, seen := out[target]
		switch {
		case !seen:
			out[target] = value
		case value.IsBlank():
		case prev.IsBlank() || key == target:
			out[target] = value
		}
	}
	return out
}

func isGSTHeader(header string) bool {
	return strings.HasPrefix(strings.ToLower(header), "gst") &&
		strings.Contains(header, "(") && strings.Contains(header, ")")
}

// gstHeaderRate reads the rate out of a header like "GST (18%)".
func gstHeaderRate(header string) (int, bool) {
	m := gstHeaderRateRe.FindStringSubmatch(header)
	if m == nil {
		return 0, false
	}
	rate, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return rate, true
}

// HeaderToFieldKey maps a spreadsheet header to a canonical field key: GST
// headers first, then the schema label lookup, else the header itself.
func HeaderToFieldKey(header string, fields []types.FieldDefinition) string {
	if isGSTHeader(header) {
		if rate, ok := gstHeaderRate(header); ok {
			return fieldmeta.GSTKey(rate)
		}
	}
	if low := strings.ToLower(header); strings.HasPrefix(low, "gst_") {
		return low
	}
	for _, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f.Label), strings.TrimSpace(header)) {
			return f.Name
		}
	}
	return header
}

// ReconcileLabels renames label-keyed entries to their schema names. A label
// never overwrites a non-blank value already stored under the name. Unknown
// keys pass through as ad-hoc fields.
func ReconcileLabels(rec types.Record, fields []types.FieldDefinition) types.Record {
	byLabel := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.Label != "" && f.Label != f.Name {
			byLabel[f.Label] = f.Name
		}
	}
	out := make(types.Record, len(rec))
	for _, key := range rec.Keys() {
		if _, isLabel := byLabel[key]; !isLabel {
			out[key] = rec[key]
		}
	}
	for _, key := range rec.Keys() {
		name, isLabel := byLabel[key]
		if !isLabel {
			continue
		}
		if existing, ok := out[name]; ok && !existing.IsBlank() {
			continue
		}
		out[name] = rec[key]
	}
	return NormalizeGSTKeys(out)
}

// KeyNormalizer reconciles stored records against their category's schema.
type KeyNormalizer struct {
	registry ports.TypeSchemaRegistry
}

func NewKeyNormalizer(registry ports.TypeSchemaRegistry) *KeyNormalizer {
	return &KeyNormalizer{registry: registry}
}

// Normalize applies label reconciliation and GST canonicalization and returns
// the category's field list alongside.
func (n *KeyNormalizer) Normalize(ctx context.Context, rec types.Record) (types.Record, []types.FieldDefinition, error) {
	category := strings.TrimSpace(rec.Text(fieldmeta.FieldCategory))
	var fields []types.FieldDefinition
	if category != "" {
		var err error
		fields, err = n.registry.GetFields(ctx, category)
		if err != nil {
			return nil, nil, err
		}
	}
	return ReconcileLabels(rec, fields), fields, nil
}
