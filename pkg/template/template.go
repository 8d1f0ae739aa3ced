// Package template loads instruction templates and fills their {token} placeholders.
//
// A template file holds one JSON object per line with instruction, input and output
// fields. Placeholders use single braces with no nesting and no escaping, so a literal
// brace pair around an identifier is always read as a placeholder.
package template

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// ErrNoTemplates is returned when a template source holds no templates.
var ErrNoTemplates = errors.New("no templates found")

// maxLineBytes bounds a single template line.
const maxLineBytes = 1 << 20

var tokenRegex = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is one instruction template.
type Template struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`

	// Line is the 1-based line the template was read from.
	Line int `json:"-"`
}

// Entry is a filled template, written as one corpus line.
type Entry struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
}

// Load reads templates from a JSONL file.
func Load(path string) (_ []Template, retErr error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open templates: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("close templates: %w", closeErr)
		}
	}()

	templates, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return templates, nil
}

// LoadReader reads templates from r, skipping blank lines. Any malformed line fails the
// whole load.
func LoadReader(r io.Reader) ([]Template, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var templates []Template
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var t Template
		if err := json.Unmarshal(line, &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		t.Line = lineNum
		templates = append(templates, t)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", lineNum+1, err)
	}

	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}
	return templates, nil
}

// Tokens returns the distinct placeholder names in the input and output, in order of
// first appearance.
func (t Template) Tokens() []string {
	seen := make(map[string]bool)
	var out []string
	for _, text := range []string{t.Input, t.Output} {
		for _, m := range tokenRegex.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

// InputReferences reports whether the input text holds {token}.
func (t Template) InputReferences(token string) bool {
	return strings.Contains(t.Input, "{"+token+"}")
}

// References reports whether the input or output text holds {token}.
func (t Template) References(token string) bool {
	placeholder := "{" + token + "}"
	return strings.Contains(t.Input, placeholder) || strings.Contains(t.Output, placeholder)
}

// Fill substitutes values into the input and output. Placeholders without a value are
// left as they are; unresolved counts them. The instruction is copied verbatim.
func (t Template) Fill(values map[string]string) (e Entry, unresolved []string) {
	missing := make(map[string]bool)
	replace := func(text string) string {
		return tokenRegex.ReplaceAllStringFunc(text, func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := values[name]; ok {
				return v
			}
			if !missing[name] {
				missing[name] = true
				unresolved = append(unresolved, name)
			}
			return m
		})
	}

	e = Entry{
		Instruction: t.Instruction,
		Input:       replace(t.Input),
		Output:      replace(t.Output),
	}
	return e, unresolved
}
