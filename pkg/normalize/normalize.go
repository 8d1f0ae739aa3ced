package normalize

import (
	"strings"
)

// Shape is the schema a field is expected to have.
type Shape int

const (
	// Strings fields are flat lists of short values. Unparseable text is split on the first
	// separator present: newline, then semicolon, then comma.
	Strings Shape = iota
	// Prose fields are lists of sentences. Unparseable text is kept whole.
	Prose
	// Records fields are lists of objects. Unparseable text is kept whole as a text item.
	Records
)

// maxNestDepth bounds recursion through nested lists and re-encoded list items.
const maxNestDepth = 4

// Item is one normalized element: a record or a line of text, never both.
type Item struct {
	Text   string
	Record Record
}

// IsRecord reports whether the item carries a record.
func (it Item) IsRecord() bool {
	return it.Record != nil
}

// String returns the item's text, summarizing records.
func (it Item) String() string {
	if it.IsRecord() {
		return it.Record.Summary()
	}
	return it.Text
}

// Items is a normalized field value.
type Items []Item

// Texts returns the non-empty text form of every item, in order.
func (items Items) Texts() []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := strings.TrimSpace(it.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Records returns only the record items, in order.
func (items Items) Records() []Record {
	var out []Record
	for _, it := range items {
		if it.IsRecord() {
			out = append(out, it.Record)
		}
	}
	return out
}

// Normalize coerces v into Items for the given shape. Absent values yield an empty result;
// callers choose their own field-specific fallback text.
func Normalize(v any, shape Shape) Items {
	return normalize(Classify(v), shape, maxNestDepth)
}

func normalize(r Raw, shape Shape, depth int) Items {
	switch x := r.(type) {
	case Absent:
		return nil
	case Record:
		return Items{{Record: x}}
	case Scalar:
		return fallbackText(string(x), shape)
	case JSONText:
		parsed, ok := ParseLoose(string(x))
		if !ok || depth == 0 {
			return fallbackText(string(x), shape)
		}
		return normalize(Classify(parsed), shape, depth-1)
	case List:
		var out Items
		for _, el := range x {
			switch e := Classify(el).(type) {
			case Absent:
			case Record:
				out = append(out, Item{Record: e})
			case Scalar:
				out = append(out, Item{Text: string(e)})
			case List:
				if depth > 0 {
					out = append(out, normalize(e, shape, depth-1)...)
				}
			case JSONText:
				parsed, ok := ParseLoose(string(e))
				if !ok || depth == 0 {
					out = append(out, Item{Text: string(e)})
					continue
				}
				if s, isText := parsed.(string); isText {
					if t := strings.TrimSpace(s); t != "" {
						out = append(out, Item{Text: t})
					}
					continue
				}
				out = append(out, normalize(Classify(parsed), shape, depth-1)...)
			}
		}
		return out
	}
	return nil
}

func fallbackText(s string, shape Shape) Items {
	t := strings.TrimSpace(s)
	if t == "" {
		return nil
	}
	if shape != Strings {
		return Items{{Text: t}}
	}
	parts := SplitText(t)
	if len(parts) == 0 {
		return Items{{Text: t}}
	}
	out := make(Items, len(parts))
	for i, p := range parts {
		out[i] = Item{Text: p}
	}
	return out
}

var separators = []string{"\n", ";", ","}

// SplitText splits t on the first separator it contains, in priority order newline,
// semicolon, comma, dropping empty parts. Text without any separator is returned whole.
func SplitText(t string) []string {
	for _, sep := range separators {
		if !strings.Contains(t, sep) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(t, sep) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return parts
	}
	if t = strings.TrimSpace(t); t == "" {
		return nil
	}
	return []string{t}
}
