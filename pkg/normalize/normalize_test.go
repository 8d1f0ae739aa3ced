package normalize

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeStrings(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  []string
	}{
		{name: "nil", value: nil, want: []string{}},
		{name: "empty string", value: "", want: []string{}},
		{name: "whitespace", value: "  \n\t ", want: []string{}},
		{name: "empty list", value: []any{}, want: []string{}},
		{name: "decoded list", value: []any{"a", "b"}, want: []string{"a", "b"}},
		{name: "string slice", value: []string{"a", " ", "b"}, want: []string{"a", "b"}},
		{name: "json list", value: `["a", "b"]`, want: []string{"a", "b"}},
		{name: "double encoded", value: "\"[\\\"a\\\", \\\"b\\\"]\"", want: []string{"a", "b"}},
		{name: "single quoted list", value: "['a', 'b']", want: []string{"a", "b"}},
		{name: "newline wins over comma", value: "first, with comma\nsecond", want: []string{"first, with comma", "second"}},
		{name: "semicolon wins over comma", value: "a; b, c", want: []string{"a", "b, c"}},
		{name: "comma split", value: "a, b ,c", want: []string{"a", "b", "c"}},
		{name: "only separators", value: ";;;", want: []string{";;;"}},
		{name: "broken json", value: "[broken", want: []string{"[broken"}},
		{name: "json string", value: `"plain"`, want: []string{"plain"}},
		{name: "number", value: 42, want: []string{"42"}},
		{name: "nested list", value: []any{[]any{"a"}, "b"}, want: []string{"a", "b"}},
		{name: "encoded item", value: []any{`["a","b"]`, "c"}, want: []string{"a", "b", "c"}},
		{name: "nil items skipped", value: []any{nil, "a"}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.value, Strings).Texts()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%#v) = %#v, want %#v", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeProseKeepsCommas(t *testing.T) {
	got := Normalize("An attacker can, with effort, do this.", Prose).Texts()
	want := []string{"An attacker can, with effort, do this."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestNormalizeRecords(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		wantRecords int
		wantTexts   int
	}{
		{name: "single object wrapped", value: map[string]any{"phase": "Explore"}, wantRecords: 1},
		{name: "object text wrapped", value: `{"phase": "Explore"}`, wantRecords: 1},
		{name: "list of objects", value: `[{"phase": "Explore"}, {"phase": "Exploit"}]`, wantRecords: 2},
		{name: "mixed list", value: []any{map[string]any{"phase": "Explore"}, "Exploit"}, wantRecords: 1, wantTexts: 1},
		{name: "encoded object item", value: []any{`{"phase": "Explore"}`}, wantRecords: 1},
		{name: "prose kept whole", value: "step one, then step two", wantTexts: 1},
		{name: "empty object", value: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Normalize(tt.value, Records)
			records := len(items.Records())
			if records != tt.wantRecords {
				t.Errorf("records = %d, want %d", records, tt.wantRecords)
			}
			if texts := len(items) - records; texts != tt.wantTexts {
				t.Errorf("text items = %d, want %d", texts, tt.wantTexts)
			}
		})
	}
}

func TestRecordLookupTolerance(t *testing.T) {
	rec := Record{"ste p": "3", "Phase": "Explore", "techniques": []any{"a", "b"}, "empty": nil}

	if got := rec.Text("step", "step_no"); got != "3" {
		t.Errorf("Text(step) = %q, want %q", got, "3")
	}
	if got := rec.Text("phase"); got != "Explore" {
		t.Errorf("Text(phase) = %q, want %q", got, "Explore")
	}
	if got := rec.Text("techniques"); got != "a, b" {
		t.Errorf("Text(techniques) = %q, want %q", got, "a, b")
	}
	if got := rec.Text("empty"); got != "" {
		t.Errorf("Text(empty) = %q, want empty", got)
	}
	if got := rec.Strings("missing"); got != nil {
		t.Errorf("Strings(missing) = %#v, want nil", got)
	}
}

func TestRecordSummary(t *testing.T) {
	tests := []struct {
		rec  Record
		want string
	}{
		{Record{"cwe_id": "CWE-79"}, "CWE-79"},
		{Record{"nature": "ChildOf", "cwe_id": "CWE-20"}, "CWE-20"},
		{Record{"x": "1", "y": "2"}, `{"x":"1","y":"2"}`},
	}
	for _, tt := range tests {
		if got := tt.rec.Summary(); got != tt.want {
			t.Errorf("Summary(%v) = %q, want %q", tt.rec, got, tt.want)
		}
	}
}

func TestStringify(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{9.8, "9.8"},
		{10.0, "10.0"},
		{json.Number("7.5"), "7.5"},
		{7, "7"},
		{true, "true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Stringify(tt.in); got != tt.want {
			t.Errorf("Stringify(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseLoose(t *testing.T) {
	if _, ok := ParseLoose("not json at all"); ok {
		t.Error("ParseLoose accepted plain prose")
	}
	if _, ok := ParseLoose(`[1] trailing`); ok {
		t.Error("ParseLoose accepted trailing data")
	}
	v, ok := ParseLoose("{\"a\":\r\n\t\"b\"}")
	if !ok {
		t.Fatal("ParseLoose rejected object with control whitespace")
	}
	if m, _ := v.(map[string]any); m["a"] != "b" {
		t.Errorf("ParseLoose = %#v", v)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   any
		want Raw
	}{
		{nil, Absent{}},
		{"", Absent{}},
		{"[1]", JSONText("[1]")},
		{"  text ", Scalar("text")},
		{[]byte(`{"a":1}`), JSONText(`{"a":1}`)},
		{map[string]any{"a": 1}, Record{"a": 1}},
		{[]string{"a"}, List{"a"}},
	}
	for _, tt := range tests {
		if got := Classify(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Classify(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
