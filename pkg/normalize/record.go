package normalize

import (
	"encoding/json"
	"sort"
	"strings"
)

// summaryKeys are tried in order when a record has to be shown as a single line of text.
var summaryKeys = []string{"value", "cwe_id", "capec_id", "entry_id", "id", "name", "description"}

// Lookup returns the value stored under the first present key. When no key matches exactly,
// keys are compared in canonical form (case, spaces, '_' and '-' ignored) so that typo'd
// upstream keys such as "ste p" still resolve to "step".
func (r Record) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}

	if len(r) == 0 {
		return nil, false
	}
	present := make([]string, 0, len(r))
	for k := range r {
		present = append(present, k)
	}
	sort.Strings(present)

	for _, want := range keys {
		cw := canonicalKey(want)
		for _, k := range present {
			if canonicalKey(k) == cw && r[k] != nil {
				return r[k], true
			}
		}
	}
	return nil, false
}

// Text returns the trimmed text under the first matching key. Lists are joined with ", ".
func (r Record) Text(keys ...string) string {
	v, ok := r.Lookup(keys...)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case map[string]any:
		return Record(x).Summary()
	case []any, []string:
		return strings.Join(Normalize(x, Strings).Texts(), ", ")
	default:
		return strings.TrimSpace(Stringify(x))
	}
}

// Strings returns the value under the first matching key as a flat list of text.
func (r Record) Strings(keys ...string) []string {
	v, ok := r.Lookup(keys...)
	if !ok {
		return nil
	}
	return Normalize(v, Strings).Texts()
}

// Summary renders the record as one line: the single value of a one-key record, else the
// first well-known identifying key, else compact JSON.
func (r Record) Summary() string {
	if len(r) == 1 {
		for k := range r {
			if s := r.Text(k); s != "" {
				return s
			}
		}
	}
	for _, k := range summaryKeys {
		if s := r.Text(k); s != "" {
			return s
		}
	}
	data, err := json.Marshal(map[string]any(r))
	if err != nil {
		return ""
	}
	return string(data)
}

func canonicalKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, c := range strings.ToLower(k) {
		switch c {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
