package types

type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldNumber   FieldKind = "number"
	FieldDate     FieldKind = "date"
	FieldSelect   FieldKind = "select"
	FieldDatalist FieldKind = "datalist"
)

func (k FieldKind) Valid() bool {
	switch k {
	case FieldText, FieldNumber, FieldDate, FieldSelect, FieldDatalist:
		return true
	default:
		return false
	}
}

type FieldDefinition struct {
	Label   string    `json:"label"`
	Name    string    `json:"name"`
	Kind    FieldKind `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// AssetType is a category and its ordered field list.
type AssetType struct {
	Name   string            `json:"type_name"`
	Fields []FieldDefinition `json:"fields"`
}

// FieldNames is the allowed-field set of the type.
func (t AssetType) FieldNames() map[string]struct{} {
	return FieldNameSet(t.Fields)
}

func FieldNameSet(fields []FieldDefinition) map[string]struct{} {
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f.Name] = struct{}{}
	}
	return out
}

type Source string

const (
	SourceUI          Source = "ui"
	SourceSpreadsheet Source = "spreadsheet"
)

type Mode string

const (
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// ModeFor is create for an empty old record and update otherwise.
func ModeFor(old Record) Mode {
	if len(old) == 0 {
		return ModeCreate
	}
	return ModeUpdate
}
