package model

import (
	"fmt"
	"strconv"
)

// PhoneKey is the one key every data record must carry: the destination
// address for that recipient.
const PhoneKey = "Phone"

// Record holds one recipient's values, keyed by field name. Keys that no
// placeholder references are allowed and ignored.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Value returns the stringified value for key ("" when absent).
func (r Record) Value(key string) string {
	return Stringify(r[key])
}

func (r Record) Phone() string {
	return r.Value(PhoneKey)
}

// Stringify renders a decoded JSON scalar as message text. Integral numbers
// print without a decimal part; nil prints as the empty string.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// encoding/json decodes every number to float64; the shortest 'f'
		// form keeps large integral values out of scientific notation.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
