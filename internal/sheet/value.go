// Package sheet provides read access to the first worksheet of .xlsx and .xls
// files and writes single-sheet .xlsx workbooks.
package sheet

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NotAvailable is how a missing value is rendered in output workbooks.
const NotAvailable = "N/A"

// Kind identifies the type of a cell value.
type Kind uint8

const (
	// Missing means the cell does not exist or holds no value.
	Missing Kind = iota
	// String is a text cell.
	String
	// Number is a numeric cell.
	Number
	// Bool is a boolean cell.
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	default:
		return "missing"
	}
}

// Value is a typed cell value.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
}

// Text returns a string value.
func Text(s string) Value { return Value{Kind: String, Str: s} }

// Num returns a numeric value.
func Num(f float64) Value { return Value{Kind: Number, Num: f} }

// Boolean returns a boolean value.
func Boolean(b bool) Value { return Value{Kind: Bool, Bool: b} }

// IsMissing reports whether the value is absent.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// Float returns the numeric interpretation of v. Strings are parsed, so a
// numeric-looking text cell counts as a number.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case Number:
		return v.Num, true
	case String:
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Interface returns the value to store in an output cell.
// Missing values become NotAvailable.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case String:
		return v.Str
	case Number:
		return v.Num
	case Bool:
		return v.Bool
	default:
		return NotAvailable
	}
}

// String renders the value the way it appears in text output.
func (v Value) String() string {
	switch v.Kind {
	case String:
		return v.Str
	case Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case Bool:
		return strconv.FormatBool(v.Bool)
	default:
		return NotAvailable
	}
}

// MarshalJSON encodes the value as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes a JSON scalar. null decodes to a missing value; the
// string "N/A" stays text since the rendering is lossy.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		*v = Value{}
	case string:
		*v = Text(x)
	case float64:
		*v = Num(x)
	case bool:
		*v = Boolean(x)
	default:
		return fmt.Errorf("cannot decode %s into a cell value", data)
	}
	return nil
}
