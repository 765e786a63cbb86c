package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Format is an accepted raw input format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ValueKind says what a parsed cell holds.
type ValueKind uint8

const (
	ValueText ValueKind = iota
	ValueNumber
	ValueNull
	// ValueOther is a JSON boolean, object or array, kept verbatim.
	ValueOther
)

// Value is a single parsed cell.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
	Raw    string // JSON text of a ValueOther value
}

// Text wraps a string cell.
func Text(s string) Value { return Value{Kind: ValueText, Text: s} }

// Number wraps a numeric cell.
func Number(f float64) Value { return Value{Kind: ValueNumber, Number: f} }

// Null is a JSON null.
func Null() Value { return Value{Kind: ValueNull} }

// Other wraps any other JSON value by its source text.
func Other(raw string) Value { return Value{Kind: ValueOther, Raw: raw} }

func (v Value) IsNumber() bool { return v.Kind == ValueNumber }
func (v Value) IsText() bool   { return v.Kind == ValueText }
func (v Value) IsNull() bool   { return v.Kind == ValueNull }

// String renders the value the way it appears in a chart label or table cell.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueNull:
		return "null"
	case ValueOther:
		return v.Raw
	}
	return v.Text
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		if math.IsNaN(v.Number) || math.IsInf(v.Number, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.Number)
	case ValueNull:
		return []byte("null"), nil
	case ValueOther:
		if json.Valid([]byte(v.Raw)) {
			return []byte(v.Raw), nil
		}
		return json.Marshal(v.Raw)
	}
	return json.Marshal(v.Text)
}

// RawRow is one parsed input record. Field order follows the source header
// (CSV) or key order (JSON). A RawRow is never modified after NewRawRow.
type RawRow struct {
	fields []string
	values map[string]Value
}

// NewRawRow builds a row from ordered field names and their values. Repeated
// names keep their first position; the value is whatever values holds.
func NewRawRow(fields []string, values map[string]Value) RawRow {
	seen := make(map[string]bool, len(fields))
	order := make([]string, 0, len(fields))
	vals := make(map[string]Value, len(values))
	for _, f := range fields {
		v, ok := values[f]
		if !ok || seen[f] {
			continue
		}
		seen[f] = true
		order = append(order, f)
		vals[f] = v
	}
	return RawRow{fields: order, values: vals}
}

// Fields returns the field names in declaration order.
func (r RawRow) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the value stored under name.
func (r RawRow) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len is the number of distinct fields.
func (r RawRow) Len() int { return len(r.fields) }

// MarshalJSON writes the row as an object with keys in declaration order.
func (r RawRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := r.values[f].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Schema names the fields that drive an ad-hoc chart.
type Schema struct {
	CategoryField string `json:"category_field"`
	ValueField    string `json:"value_field"`
}
