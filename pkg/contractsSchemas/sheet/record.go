package sheet

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Header identifies one column of a parsed sheet.
type Header struct {
	Key   string `json:"key"`   // eg. "SITUAÇÃO" or "VALOR_1" after de-duplication
	Label string `json:"label"` // upper-cased Key, for presentation
}

// NewHeader returns the Header for a (de-duplicated) column key.
func NewHeader(key string) Header {
	return Header{Key: key, Label: strings.ToUpper(key)}
}

// Keys returns the keys of headers in column order.
func Keys(headers []Header) []string {
	keys := make([]string, len(headers))
	for i, h := range headers {
		keys[i] = h.Key
	}
	return keys
}

// Record is one contract row: a value for every header key, in column order, plus a
// synthetic ID that is unique within the dataset that holds it.
// Records are values; the methods that change fields return a modified copy.
type Record struct {
	id     string
	cols   *columns
	values map[string]string
}

// columns is the key order shared by every record parsed from the same header row,
// along with the folded form of each key used by Resolve.
type columns struct {
	keys   []string
	folded []string
}

func newColumns(keys []string) *columns {
	c := &columns{keys: append([]string(nil), keys...), folded: make([]string, len(keys))}
	for i, k := range keys {
		c.folded[i] = Fold(k)
	}
	return c
}

// NewRecord builds a Record with an entry for every key in keys. Values missing from
// values become empty strings; entries of values whose key is not in keys are ignored.
func NewRecord(id string, keys []string, values map[string]string) Record {
	return newRecord(id, newColumns(keys), values)
}

func newRecord(id string, cols *columns, values map[string]string) Record {
	r := Record{id: id, cols: cols, values: make(map[string]string, len(cols.keys))}
	for _, k := range cols.keys {
		r.values[k] = values[k]
	}
	return r
}

// ID returns the record's synthetic identifier.
func (r Record) ID() string {
	return r.id
}

// WithID returns a copy of r identified by id.
func (r Record) WithID(id string) Record {
	r.values = r.Map()
	r.id = id
	return r
}

// Keys returns the record's field keys in column order.
func (r Record) Keys() []string {
	if r.cols == nil {
		return nil
	}
	return append([]string(nil), r.cols.keys...)
}

// Get returns the value stored under the exact key, or an empty string.
func (r Record) Get(key string) string {
	return r.values[key]
}

// Has reports whether key is one of the record's field keys.
func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Values returns the record's field values in column order.
func (r Record) Values() []string {
	if r.cols == nil {
		return nil
	}
	vals := make([]string, len(r.cols.keys))
	for i, k := range r.cols.keys {
		vals[i] = r.values[k]
	}
	return vals
}

// Map returns a copy of the record's fields.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

// Merge returns a copy of r with fields overwritten by updates.
// Keys of updates that r does not have are ignored; callers that must reject them
// should check Has first.
func (r Record) Merge(updates map[string]string) Record {
	merged := r.Map()
	for k, v := range updates {
		if _, ok := merged[k]; ok {
			merged[k] = v
		}
	}
	r.values = merged
	return r
}

// IsBlank reports whether every field value is empty.
func (r Record) IsBlank() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// Resolve returns the value of the first field, in column order, whose key contains
// fragment. Matching is case-insensitive and ignores diacritics, so "SITUAÇÃO" and
// "Situacao" name the same column; an unaccented key therefore shadows a later key
// spelled exactly like fragment. Returns an empty string when no key matches.
func (r Record) Resolve(fragment string) string {
	v, _ := r.lookup(fragment)
	return v
}

// ResolveAny tries each fragment in turn and returns the value of the first one that
// matches a key. Returns an empty string when none of them match.
func (r Record) ResolveAny(fragments ...string) string {
	for _, f := range fragments {
		if v, ok := r.lookup(f); ok {
			return v
		}
	}
	return ""
}

func (r Record) lookup(fragment string) (string, bool) {
	if r.cols == nil {
		return "", false
	}
	needle := Fold(fragment)
	for i, folded := range r.cols.folded {
		if strings.Contains(folded, needle) {
			return r.values[r.cols.keys[i]], true
		}
	}
	return "", false
}

// Fold upper-cases s and strips combining diacritical marks from it.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToUpper(s))
	if err != nil {
		return strings.ToUpper(s)
	}
	return folded
}

// MarshalJSON encodes the record as {"id": ..., "fields": {...}}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID     string            `json:"id"`
		Fields map[string]string `json:"fields"`
	}{r.id, r.values})
}
