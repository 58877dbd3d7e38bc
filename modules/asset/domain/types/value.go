package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-sql/civil"
	"github.com/jacksonlee411/assetdesk/pkg/civildate"
	"github.com/shopspring/decimal"
)

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
	KindDate
	KindTimestamp
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	default:
		return "null"
	}
}

// Value is one scalar cell of an asset record. The zero Value is Null.
type Value struct {
	kind ValueKind
	text string
	num  decimal.Decimal
	date civil.Date
	ts   time.Time
}

func Null() Value                     { return Value{} }
func Text(s string) Value             { return Value{kind: KindText, text: s} }
func Number(d decimal.Decimal) Value  { return Value{kind: KindNumber, num: d} }
func Date(d civil.Date) Value         { return Value{kind: KindDate, date: d} }
func Timestamp(t time.Time) Value     { return Value{kind: KindTimestamp, ts: t} }
func NumberFromFloat(f float64) Value { return Number(decimal.NewFromFloat(f)) }
func NumberFromInt(i int64) Value     { return Number(decimal.NewFromInt(i)) }

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

// IsBlank is true for Null and for whitespace-only text.
func (v Value) IsBlank() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return len(bytes.TrimSpace([]byte(v.text))) == 0
	default:
		return false
	}
}

func (v Value) AsText() (string, bool)            { return v.text, v.kind == KindText }
func (v Value) AsNumber() (decimal.Decimal, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsDate() (civil.Date, bool)        { return v.date, v.kind == KindDate }
func (v Value) AsTimestamp() (time.Time, bool)    { return v.ts, v.kind == KindTimestamp }

// String is the display form: dates as dd-mm-yyyy, timestamps as RFC 3339, Null as "".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num.String()
	case KindDate:
		return civildate.FormatDMY(v.date)
	case KindTimestamp:
		return v.ts.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}

// Equal compares display forms, so Null equals blank text and a Date equals
// its dd-mm-yyyy text.
func (v Value) Equal(other Value) bool {
	if v.IsBlank() && other.IsBlank() {
		return true
	}
	return v.String() == other.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(v.num.String()), nil
	default:
		return json.Marshal(v.String())
	}
}

var errUnsupportedValue = errors.New("types: unsupported value")

// UnmarshalJSON decodes strings as Text and numbers as Number. Stored dates come
// back as Text; callers parse them where a calendar date is needed.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = Null()
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		if b {
			*v = Text("true")
		} else {
			*v = Text("false")
		}
		return nil
	case '{', '[':
		return errUnsupportedValue
	default:
		d, err := decimal.NewFromString(string(trimmed))
		if err != nil {
			return err
		}
		*v = Number(d)
		return nil
	}
}
