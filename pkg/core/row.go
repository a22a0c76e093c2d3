package core

import "bytes"

// Field is one column of a result row.
type Field struct {
	Key   string
	Value Value
}

// Row is one result row. Fields keep the order of the requested columns.
type Row []Field

// Get returns the value of the named column.
func (r Row) Get(key string) (Value, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null, false
}

// Map returns the row as a plain map of Go values.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r))
	for _, f := range r {
		out[f.Key] = f.Value.Interface()
	}
	return out
}

// MarshalJSON encodes the row as a JSON object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := Value{Type: TypeString, Str: f.Key}.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
