package normalize

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// maxDecodeDepth bounds how many times a decoded string is decoded again.
const maxDecodeDepth = 3

var (
	errTrailingData = errors.New("trailing data after JSON value")

	// Carriage returns and tabs are dropped, bare newlines become spaces so they cannot
	// break string tokens.
	jsonCleaner = strings.NewReplacer("\r", "", "\t", "", "\n", " ")
)

// ParseLoose decodes text written by stores that mangle JSON. It strips control whitespace,
// retries with single quotes swapped for double quotes when the text looks like a list or
// object, and decodes again while the result is itself JSON-encoded text. Numbers decode as
// json.Number so scores keep their original spelling.
func ParseLoose(s string) (any, bool) {
	cleaned := strings.TrimSpace(jsonCleaner.Replace(s))
	if cleaned == "" {
		return nil, false
	}

	v, err := decodeJSON(cleaned)
	if err != nil {
		if !strings.HasPrefix(cleaned, "[") && !strings.HasPrefix(cleaned, "{") {
			return nil, false
		}
		v, err = decodeJSON(strings.ReplaceAll(cleaned, "'", `"`))
		if err != nil {
			return nil, false
		}
	}

	return unwrapEncoded(v), true
}

func unwrapEncoded(v any) any {
	for range maxDecodeDepth {
		s, ok := v.(string)
		if !ok {
			return v
		}
		t := strings.TrimSpace(s)
		if !looksJSON(t) {
			return v
		}
		next, err := decodeJSON(t)
		if err != nil {
			return v
		}
		v = next
	}
	return v
}

func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	return v, nil
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
