package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValueType tags the scalar held by a Value.
type ValueType uint8

// Value types. The numeric order is the cross-type sort order.
const (
	TypeNull ValueType = iota
	TypeNumber
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeNumber:
		return "number"
	case TypeString:
		return "string"
	default:
		return "null"
	}
}

// Value is a tagged scalar: null, number or string.
type Value struct {
	Type ValueType
	Num  float64
	Str  string
}

// Null is the zero Value. It is what Record.Get returns for an absent field.
var Null = Value{}

// NewNumber returns a numeric Value.
func NewNumber(f float64) Value {
	return Value{Type: TypeNumber, Num: f}
}

// NewString returns a string Value.
func NewString(s string) Value {
	return Value{Type: TypeString, Str: s}
}

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// IsNumber reports whether v holds a finite number.
func (v Value) IsNumber() bool {
	return v.Type == TypeNumber && !math.IsNaN(v.Num) && !math.IsInf(v.Num, 0)
}

// IsString reports whether v holds a string.
func (v Value) IsString() bool { return v.Type == TypeString }

// Compare orders two values: null < number < string, numbers numerically and
// strings lexicographically.
func (v Value) Compare(other Value) int {
	if v.Type != other.Type {
		if v.Type < other.Type {
			return -1
		}
		return 1
	}

	switch v.Type {
	case TypeNumber:
		switch {
		case v.Num < other.Num:
			return -1
		case v.Num > other.Num:
			return 1
		}
		return 0
	case TypeString:
		return strings.Compare(v.Str, other.Str)
	default:
		return 0
	}
}

// Equal reports whether both values have the same type and content.
func (v Value) Equal(other Value) bool {
	return v.Type == other.Type && v.Compare(other) == 0
}

// String renders the value the way a loosely typed host would stringify it:
// numbers in shortest form, strings verbatim and null as "null".
func (v Value) String() string {
	switch v.Type {
	case TypeNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case TypeString:
		return v.Str
	default:
		return "null"
	}
}

// Interface returns the value as float64, string or nil.
func (v Value) Interface() any {
	switch v.Type {
	case TypeNumber:
		return v.Num
	case TypeString:
		return v.Str
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeNumber:
		if !v.IsNumber() {
			return nil, fmt.Errorf("cannot encode non-finite number %v", v.Num)
		}
		return strconv.AppendFloat(nil, v.Num, 'f', -1, 64), nil
	case TypeString:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler. Booleans, arrays and objects are
// rejected because records only hold scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Null
	case float64:
		*v = NewNumber(x)
	case string:
		*v = NewString(x)
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}
