package template

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sample = `{"instruction": "Explain the technique.", "input": "What is {technique_name} ({technique_id})?", "output": "{technique_name} is used under {tactic_name}."}

{"instruction":"List platforms.","input":"Platforms for {technique_id}?","output":"{platform_list}"}
`

func TestLoadReader(t *testing.T) {
	got, err := LoadReader(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}

	want := []Template{
		{
			Instruction: "Explain the technique.",
			Input:       "What is {technique_name} ({technique_id})?",
			Output:      "{technique_name} is used under {tactic_name}.",
			Line:        1,
		},
		{
			Instruction: "List platforms.",
			Input:       "Platforms for {technique_id}?",
			Output:      "{platform_list}",
			Line:        3,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadReader() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantIs  error
		wantMsg string
	}{
		{name: "empty", input: "", wantIs: ErrNoTemplates},
		{name: "only blank lines", input: "\n  \n\t\n", wantIs: ErrNoTemplates},
		{name: "malformed line", input: `{"instruction":"a","input":"b","output":"c"}` + "\n{oops\n", wantMsg: "line 2:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "IFT_CWE.jsonl")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path+": line 1:") {
		t.Errorf("Load() error = %v, want path and line", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load() missing file error = %v", err)
	}
}

func TestTokensAndReferences(t *testing.T) {
	tmpl := Template{
		Input:  "Describe {cwe_id} and {name}.",
		Output: "{name}: {description} { not_a_token } {1bad}",
	}

	want := []string{"cwe_id", "name", "description"}
	if diff := cmp.Diff(want, tmpl.Tokens()); diff != "" {
		t.Errorf("Tokens() mismatch (-want +got):\n%s", diff)
	}

	if !tmpl.InputReferences("cwe_id") || tmpl.InputReferences("description") {
		t.Error("InputReferences() should only look at the input")
	}
	if !tmpl.References("description") || tmpl.References("capec_id") {
		t.Error("References() should look at input and output")
	}
}

func TestFill(t *testing.T) {
	tmpl := Template{
		Instruction: "Answer about {name}.",
		Input:       "What is {name} ({cwe_id})?",
		Output:      "{name} relates to {related_attack_patterns}. See {unknown} and {unknown}.",
	}

	got, unresolved := tmpl.Fill(map[string]string{
		"name":                    "Cross-site Scripting {cwe_id}",
		"cwe_id":                  "CWE-79",
		"related_attack_patterns": "None",
	})

	want := Entry{
		Instruction: "Answer about {name}.",
		Input:       "What is Cross-site Scripting {cwe_id} (CWE-79)?",
		Output:      "Cross-site Scripting {cwe_id} relates to None. See {unknown} and {unknown}.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fill() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unknown"}, unresolved); diff != "" {
		t.Errorf("Fill() unresolved mismatch (-want +got):\n%s", diff)
	}
}

func TestFillPreservesNonASCII(t *testing.T) {
	tmpl := Template{Input: "{x}", Output: "<{x}> & café"}
	got, unresolved := tmpl.Fill(map[string]string{"x": "naïve ✓"})
	if got.Input != "naïve ✓" || got.Output != "<naïve ✓> & café" {
		t.Errorf("Fill() = %+v", got)
	}
	if len(unresolved) != 0 {
		t.Errorf("unresolved = %v", unresolved)
	}
}
