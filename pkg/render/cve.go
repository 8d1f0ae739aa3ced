package render

import (
	"encoding/json"
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/normalize"
)

// cvssKeys are the direct CVSS v3 object keys, in priority order.
var cvssKeys = []string{"cvssV3_1", "cvssV3"}

// nvdMetricKeys are the NVD API array keys, in priority order.
var nvdMetricKeys = []string{"cvssMetricV31", "cvssMetricV30"}

// CVSS extracts the CVSS v3.x base score and vector string from a metrics payload. It
// understands, in order: entries carrying cvssV3_1/cvssV3 directly, the same nested under a
// "metrics" object, and NVD-style cvssMetricV31 arrays of {cvssData}. The payload may be a
// list of such entries or a single one. Unknown shapes yield two empty strings.
func CVSS(metrics any) (score, vector string) {
	data, ok := decoded(metrics)
	if !ok {
		return "", ""
	}

	entries, isList := asList(data)
	if !isList {
		entries = []any{data}
	}

	for _, e := range entries {
		entry, ok := asRecord(e)
		if !ok {
			continue
		}
		if score, vector, ok := cvssFromEntry(entry); ok {
			return score, vector
		}
	}
	return "", ""
}

func cvssFromEntry(entry normalize.Record) (string, string, bool) {
	for _, k := range cvssKeys {
		if c, ok := asRecord(entry[k]); ok {
			if score, vector, found := scoreAndVector(c); found {
				return score, vector, true
			}
		}
	}

	if nested, ok := asRecord(entry["metrics"]); ok {
		for _, k := range cvssKeys {
			if c, ok := asRecord(nested[k]); ok {
				if score, vector, found := scoreAndVector(c); found {
					return score, vector, true
				}
			}
		}
	}

	for _, k := range nvdMetricKeys {
		list, ok := asList(entry[k])
		if !ok || len(list) == 0 {
			continue
		}
		first, ok := asRecord(list[0])
		if !ok {
			continue
		}
		for _, inner := range []string{"cvssData", "cvssV3_1"} {
			if c, ok := asRecord(first[inner]); ok {
				if score, vector, found := scoreAndVector(c); found {
					return score, vector, true
				}
			}
		}
	}
	return "", "", false
}

func scoreAndVector(c normalize.Record) (string, string, bool) {
	var score string
	if v, ok := c.Lookup("baseScore", "base_score"); ok {
		score = strings.TrimSpace(normalize.Stringify(v))
	}
	vector := c.Text("vectorString", "vector_string")
	return score, vector, score != "" || vector != ""
}

// FormatDescription selects the English entry of a localized text list, accepting an
// untagged value when no English entry exists, and collapses whitespace.
func FormatDescription(v any) string {
	var text string
	switch x := normalize.Classify(v).(type) {
	case normalize.Absent:
	case normalize.Scalar:
		text = string(x)
	case normalize.JSONText:
		if parsed, ok := normalize.ParseLoose(string(x)); ok {
			text = descriptionFrom(parsed)
		} else {
			text = string(x)
		}
	default:
		text = descriptionFrom(x)
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return Fallback(Description)
	}
	return text
}

func descriptionFrom(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if rec, ok := asRecord(v); ok {
		if val := rec.Text("value"); val != "" {
			return val
		}
		data, err := json.Marshal(map[string]any(rec))
		if err != nil {
			return ""
		}
		return string(data)
	}

	list, ok := asList(v)
	if !ok {
		return ""
	}
	if en := englishValues(list); len(en) > 0 {
		return en[0]
	}
	for _, e := range list {
		if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
		rec, ok := asRecord(e)
		if !ok {
			continue
		}
		if rec.Text("lang") == "" {
			if val := rec.Text("value"); val != "" {
				return val
			}
		}
	}
	return ""
}

// FormatImpact renders CVE impact entries. CAPEC-style entries contribute their English
// descriptions, other entries their "description"; results are joined with "; ".
// Unrecognized payloads are returned as trimmed text.
func FormatImpact(v any) string {
	data, ok := decoded(v)
	if !ok {
		if s := rawText(v); s != "" {
			return s
		}
		return Fallback(Impact)
	}
	if _, absent := normalize.Classify(data).(normalize.Absent); absent {
		return Fallback(Impact)
	}

	entries, isList := asList(data)
	if !isList {
		entries = []any{data}
	}

	var results []string
	for _, e := range entries {
		item, ok := asRecord(e)
		if !ok {
			continue
		}
		if _, isCAPEC := item.Lookup("capecId", "capec_id"); isCAPEC {
			descs, _ := item.Lookup("descriptions")
			list, _ := asList(descs)
			results = append(results, englishValues(list)...)
			continue
		}
		if d := item.Text("description"); d != "" {
			results = append(results, d)
		}
	}
	if len(results) > 0 {
		return List(Impact, results)
	}

	if s := rawText(v); s != "" {
		return s
	}
	return Fallback(Impact)
}

func englishValues(list []any) []string {
	var out []string
	for _, e := range list {
		rec, ok := asRecord(e)
		if !ok {
			continue
		}
		if !isEnglish(rec.Text("lang")) {
			continue
		}
		if val := rec.Text("value"); val != "" {
			out = append(out, val)
		}
	}
	return out
}

func isEnglish(lang string) bool {
	lang = strings.ToLower(lang)
	return lang == "en" || strings.HasPrefix(lang, "en-") || strings.HasPrefix(lang, "en_")
}

// decoded returns v as a decoded JSON value, parsing text when needed.
func decoded(v any) (any, bool) {
	switch x := normalize.Classify(v).(type) {
	case normalize.Absent:
		return nil, false
	case normalize.JSONText:
		return normalize.ParseLoose(string(x))
	case normalize.Record:
		return x, true
	case normalize.List:
		return x, true
	default:
		return nil, false
	}
}

func asRecord(v any) (normalize.Record, bool) {
	switch x := v.(type) {
	case normalize.Record:
		return x, len(x) > 0
	case map[string]any:
		return normalize.Record(x), len(x) > 0
	case string:
		if parsed, ok := normalize.ParseLoose(x); ok {
			if m, ok := parsed.(map[string]any); ok {
				return normalize.Record(m), len(m) > 0
			}
		}
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch x := v.(type) {
	case normalize.List:
		return x, true
	case []any:
		return x, true
	case string:
		if parsed, ok := normalize.ParseLoose(x); ok {
			if l, ok := parsed.([]any); ok {
				return l, true
			}
		}
	}
	return nil, false
}

func rawText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	}
	data, err := json.Marshal(v)
	if err != nil {
		return strings.TrimSpace(normalize.Stringify(v))
	}
	return string(data)
}
