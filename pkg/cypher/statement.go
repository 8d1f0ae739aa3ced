// Package cypher builds parameterized, read-only Cypher statements for the graph store and
// renders them inline for logging.
package cypher

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Statement is a Cypher text with its bound parameters.
type Statement struct {
	Text   string
	Params map[string]any
}

var (
	paramRegex      = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// ParamNames returns the sorted names of the statement's parameters.
func (s Statement) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for name := range s.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Inline renders the statement with parameters substituted as literals and whitespace
// collapsed. The result is for logs only and is never sent to the server.
func (s Statement) Inline() string {
	text := paramRegex.ReplaceAllStringFunc(s.Text, func(m string) string {
		v, ok := s.Params[m[1:]]
		if !ok {
			return m
		}
		return QuoteLiteral(v)
	})
	return Compact(text)
}

// Compact collapses runs of whitespace into single spaces.
func Compact(text string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(text), " ")
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// QuoteLiteral renders v as a Cypher literal. Strings are single-quoted with backslashes and
// single quotes escaped.
func QuoteLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + literalEscaper.Replace(x) + "'"
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = QuoteLiteral(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = QuoteLiteral(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return "null"
		}
		return QuoteLiteral(string(data))
	}
}
