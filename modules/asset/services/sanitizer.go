package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/fieldmeta"
	"github.com/jacksonlee411/assetdesk/modules/asset/domain/types"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/jacksonlee411/assetdesk/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	WarningAmountMismatch = "Amount / GST / Total mismatch"

	mismatchTolerance = "0.5"
)

var errModeMismatch = errors.New("sanitize: mode does not match old record")

// AdvisoryRules adds category-specific warnings after the built-in checks.
type AdvisoryRules interface {
	Evaluate(category string, rec types.Record) []string
}

type SanitizeOptions struct {
	Source     types.Source
	ForceApply bool
	// AllowedFields is the schema field set of the asset's category.
	AllowedFields map[string]struct{}
	// Mode defaults to types.ModeFor(old).
	Mode types.Mode
}

// Sanitizer decides what an incoming record may change. It is a single pure
// pass over copies of its inputs; the caller's records are never mutated.
type Sanitizer struct {
	policy *FieldPolicy
	rules  AdvisoryRules
	now    func() time.Time
}

type SanitizerOption func(*Sanitizer)

func WithClock(now func() time.Time) SanitizerOption {
	return func(s *Sanitizer) { s.now = now }
}

func WithRules(r AdvisoryRules) SanitizerOption {
	return func(s *Sanitizer) { s.rules = r }
}

func NewSanitizer(policy *FieldPolicy, opts ...SanitizerOption) *Sanitizer {
	if policy == nil {
		policy = DefaultFieldPolicy()
	}
	s := &Sanitizer{policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sanitizer) Policy() *FieldPolicy { return s.policy }

// Sanitize returns the payload to persist plus advisory warnings. A
// spreadsheet-sourced call with warnings and no ForceApply returns an empty
// payload. The only error is an *ImmutableViolationError (or a mode mismatch,
// which is a caller bug).
func (s *Sanitizer) Sanitize(old, incoming types.Record, opts SanitizeOptions) (types.Record, []string, error) {
	mode := opts.Mode
	if mode == "" {
		mode = types.ModeFor(old)
	}
	if mode != types.ModeFor(old) {
		return nil, nil, errModeMismatch
	}
	isCreate := mode == types.ModeCreate
	now := s.now()

	var payload types.Record
	if isCreate {
		payload = incoming.Clone()
		for _, name := range s.policy.SystemControlled() {
			delete(payload, name)
		}
	} else {
		if err := s.checkImmutable(old, incoming); err != nil {
			return nil, nil, err
		}
		payload = old.Clone()
		for key, value := range incoming {
			if s.policy.IsUserEditable(key) {
				payload[key] = value
			}
		}
	}

	warnings := dateWarnings(payload, now)
	if amountMismatch(payload) {
		warnings = append(warnings, WarningAmountMismatch)
	}
	if s.rules != nil {
		warnings = append(warnings, s.rules.Evaluate(payload.Text(fieldmeta.FieldCategory), payload)...)
	}

	if !isCreate {
		s.appendRemarks(old, payload, now)
	}

	payload[fieldmeta.FieldUpdatedAt] = types.Timestamp(now.UTC())

	for key := range payload {
		if _, ok := opts.AllowedFields[key]; ok {
			continue
		}
		if s.policy.IsImmutable(key) || s.policy.IsSystemControlled(key) {
			continue
		}
		delete(payload, key)
	}

	if opts.Source == types.SourceSpreadsheet && len(warnings) > 0 && !opts.ForceApply {
		return types.Record{}, warnings, nil
	}
	return payload, warnings, nil
}

func (s *Sanitizer) checkImmutable(old, incoming types.Record) error {
	for _, field := range s.policy.Immutable() {
		if !incoming.Has(field) || !old.Has(field) {
			continue
		}
		oldVal := old.Get(field)
		if oldVal.IsNull() {
			continue
		}
		if foldValue(oldVal) != foldValue(incoming.Get(field)) {
			return &ImmutableViolationError{Field: field}
		}
	}
	return nil
}

func foldValue(v types.Value) string {
	return strings.ToLower(strings.TrimSpace(v.String()))
}

func dateWarnings(payload types.Record, now time.Time) []string {
	var out []string
	for _, field := range fieldmeta.DateFieldNames {
		v := payload.Get(field)
		if isEmpty(v) {
			continue
		}
		d, ok := DateOf(v)
		if !ok {
			out = append(out, fmt.Sprintf("Invalid date format for %s", field))
			continue
		}
		if civildate.IsFuture(d, now) {
			out = append(out, fmt.Sprintf("%s is a future date", field))
		}
	}
	return out
}

// isEmpty is narrower than IsBlank: whitespace-only text still counts as a value.
func isEmpty(v types.Value) bool {
	if v.IsNull() {
		return true
	}
	s, ok := v.AsText()
	return ok && s == ""
}

func amountMismatch(payload types.Record) bool {
	amount := MoneyOf(payload.Get(fieldmeta.FieldAmount))
	gstTotal := decimal.Zero
	for _, key := range fieldmeta.GSTBuckets {
		gstTotal = gstTotal.Add(MoneyOf(payload.Get(key)))
	}
	total := MoneyOf(payload.Get(fieldmeta.FieldTotal))
	if !amount.IsPositive() || !gstTotal.IsPositive() {
		return false
	}
	return amount.Add(gstTotal).Sub(total).Abs().GreaterThan(decimal.RequireFromString(mismatchTolerance))
}

func (s *Sanitizer) appendRemarks(old, payload types.Record, now time.Time) {
	var changed []string
	for _, field := range s.policy.RemarksTrigger() {
		newVal := payload.Get(field)
		if old.Get(field).Equal(newVal) {
			continue
		}
		changed = append(changed, newVal.String())
	}
	if len(changed) == 0 {
		return
	}
	line := "[" + civildate.FormatDMY(civildate.Today(now)) + "] " + strings.Join(changed, " | ")
	existing := payload.Text(fieldmeta.FieldRemarks)
	if strings.TrimSpace(existing) == "" {
		existing = old.Text(fieldmeta.FieldRemarks)
	}
	payload[fieldmeta.FieldRemarks] = types.Text(strings.TrimSpace(existing + "\n" + line))
}

// MoneyOf reads a value as a rupee amount; anything unparseable is zero.
func MoneyOf(v types.Value) decimal.Decimal {
	if n, ok := v.AsNumber(); ok {
		return n
	}
	if v.Kind() != types.KindText {
		return decimal.Zero
	}
	return money.Normalize(v.String())
}

// DateOf reads a value as a calendar date (dd-mm-yyyy or yyyy-mm-dd text).
func DateOf(v types.Value) (civil.Date, bool) {
	switch v.Kind() {
	case types.KindDate:
		d, _ := v.AsDate()
		return d, true
	case types.KindTimestamp:
		ts, _ := v.AsTimestamp()
		return civildate.Today(ts), true
	case types.KindText:
		return civildate.Parse(v.String())
	default:
		return civil.Date{}, false
	}
}
