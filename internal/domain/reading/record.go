// Package reading defines spreadsheet row records and the tolerant field
// extraction and numeric normalization applied to raw sensor data.
package reading

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Record is a single spreadsheet row: an ordered mapping from column name
// (original casing preserved) to a scalar value (string, float64, or nil).
// Column order follows the source header row so lookups are deterministic.
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord creates an empty record.
func NewRecord() Record {
	return Record{values: make(map[string]any)}
}

// Set adds or replaces a column value. New columns keep insertion order.
func (r *Record) Set(column string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Value returns the value for an exact column name.
func (r Record) Value(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the column names in source order.
func (r Record) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.columns)
}

// MarshalJSON emits the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[col])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Extract performs a case-insensitive search over the record's columns for
// any name in variants. The variant list is iterated outermost: an
// earlier-listed variant always wins over a later one, even when the later
// variant's column appears first in the record. Within one variant, columns
// are scanned in source order. Returns def when nothing matches.
func Extract(r Record, variants []string, def any) any {
	for _, variant := range variants {
		want := strings.ToLower(variant)
		for _, col := range r.columns {
			if strings.ToLower(col) == want {
				return r.values[col]
			}
		}
	}
	return def
}

// ExtractString is Extract narrowed to string values. Non-string scalars are
// not stringified; empty values fall back to def.
func ExtractString(r Record, variants []string, def string) string {
	v := Extract(r, variants, nil)
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return def
		}
		return s
	}
	return def
}
