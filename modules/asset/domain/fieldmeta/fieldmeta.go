package fieldmeta

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
)

const (
	FieldCategory  = "category"
	FieldUpdatedAt = "updated_at"
	FieldRemarks   = "remarks"
	FieldStatus    = "status"
	FieldState     = "state"
	FieldAmount    = "amount"
	FieldTotal     = "total"

	DictAssetStatus = "asset_status"
	DictIndianState = "indian_state"
)

// Canonical GST buckets. Other rates may appear in imported data as gst_<n>.
var GSTBuckets = []string{"gst_18", "gst_22", "gst_28"}

// DateFieldNames are validated on every sanitize.
var DateFieldNames = []string{"given_date", "purchase_date", "collected_date", "prev_given_date"}

var gstKeyRe = regexp.MustCompile(`^gst_[0-9]+$`)

func IsGSTKey(key string) bool {
	return gstKeyRe.MatchString(key)
}

// GSTKey renders the canonical key for a rate, e.g. 18 -> gst_18.
func GSTKey(rate int) string {
	return "gst_" + strconv.Itoa(rate)
}

// GSTRate extracts the rate from a canonical key.
func GSTRate(key string) (int, bool) {
	if !IsGSTKey(key) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, "gst_"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// GSTLabel is the display label of a canonical GST key.
func GSTLabel(key string) string {
	rate, ok := GSTRate(key)
	if !ok {
		return key
	}
	return "GST (" + strconv.Itoa(rate) + "%)"
}

// IsCurrencyField covers amount, total and every gst_<n> key.
func IsCurrencyField(key string) bool {
	return key == FieldAmount || key == FieldTotal || IsGSTKey(key)
}

func IsDateField(key string) bool {
	for _, name := range DateFieldNames {
		if name == key {
			return true
		}
	}
	return false
}

var moneyLikeTokens = []string{"price", "cost", "amount", "value", "total", "gst"}

// IsMoneyLike is the looser test used for sorting ad-hoc columns.
func IsMoneyLike(key string) bool {
	key = strings.ToLower(key)
	for _, tok := range moneyLikeTokens {
		if strings.Contains(key, tok) {
			return true
		}
	}
	return false
}

// DictCodeFor names the option list backing a select field, if any.
func DictCodeFor(name string) (string, bool) {
	switch name {
	case FieldStatus:
		return DictAssetStatus, true
	case FieldState:
		return DictIndianState, true
	default:
		return "", false
	}
}

// DisplayLabel prefers the schema label and falls back to GST labels, then a
// title-cased key.
func DisplayLabel(key string, fields []types.FieldDefinition) string {
	for _, f := range fields {
		if f.Name == key {
			return f.Label
		}
	}
	if IsGSTKey(key) {
		return GSTLabel(key)
	}
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
