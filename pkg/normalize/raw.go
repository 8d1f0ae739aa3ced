// Package normalize coerces field values of unknown shape into the small canonical form the
// renderers consume.
//
// Upstream rows are inconsistent: the same column can hold a decoded jsonb list, a JSON string,
// a JSON string that itself encodes JSON, a single object where a list was expected, or plain
// prose. Classify tags a value with one of the Raw variants and Normalize projects it onto
// Items for an expected Shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Raw is the tagged variant for a field value before normalization. The concrete types are
// JSONText, Record, List, Scalar and Absent.
type Raw interface {
	raw()
}

// JSONText is text that looks like JSON (starts with '[', '{' or '"').
type JSONText string

// Record is a single field-name keyed object.
type Record map[string]any

// List is a sequence of arbitrary values.
type List []any

// Scalar is any non-JSON text or primitive, already converted to text.
type Scalar string

// Absent marks nil, empty text, empty lists and empty objects.
type Absent struct{}

func (JSONText) raw() {}
func (Record) raw()   {}
func (List) raw()     {}
func (Scalar) raw()   {}
func (Absent) raw()   {}

// Classify tags v with its Raw variant.
func Classify(v any) Raw {
	switch x := v.(type) {
	case nil:
		return Absent{}
	case Raw:
		return x
	case string:
		return classifyText(x)
	case []byte:
		return classifyText(string(x))
	case json.RawMessage:
		return classifyText(string(x))
	case map[string]any:
		if len(x) == 0 {
			return Absent{}
		}
		return Record(x)
	case []any:
		if len(x) == 0 {
			return Absent{}
		}
		return List(x)
	case []string:
		if len(x) == 0 {
			return Absent{}
		}
		out := make(List, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out
	case []map[string]any:
		if len(x) == 0 {
			return Absent{}
		}
		out := make(List, len(x))
		for i, m := range x {
			out[i] = m
		}
		return out
	default:
		return classifyText(Stringify(x))
	}
}

func classifyText(s string) Raw {
	t := strings.TrimSpace(s)
	switch {
	case t == "":
		return Absent{}
	case looksJSON(t):
		return JSONText(t)
	default:
		return Scalar(t)
	}
}

func looksJSON(t string) bool {
	if t == "" {
		return false
	}
	switch t[0] {
	case '[', '{', '"':
		return true
	}
	return false
}

// Stringify renders a primitive the way upstream tooling printed it. Integral floats keep a
// trailing ".0" so a CVSS score of 10 reads "10.0".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
