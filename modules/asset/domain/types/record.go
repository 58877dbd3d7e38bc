package types

import "sort"

// Record is an asset document: field name to scalar value. The set of keys is
// driven by the asset's category plus whatever arrived from input.
type Record map[string]Value

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns Null for a missing key.
func (r Record) Get(key string) Value {
	if r == nil {
		return Null()
	}
	return r[key]
}

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Record) Text(key string) string {
	return r.Get(key).String()
}

func (r Record) Keys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RecordFromStrings builds a Record of Text values; blank strings stay blank Text.
func RecordFromStrings(in map[string]string) Record {
	out := make(Record, len(in))
	for k, v := range in {
		out[k] = Text(v)
	}
	return out
}

type Asset struct {
	ID   string `json:"id"`
	Data Record `json:"data"`
}
