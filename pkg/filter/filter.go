// Package filter selects source rows with a CEL expression.
//
// The expression sees two variables: row, the raw column map of the current row, and kind,
// the entity kind being generated. It must evaluate to a bool, for example:
//
//	kind == "technique" && "Windows" in row.x_mitre_platforms
//	row.cve_id.startsWith("CVE-2025-")
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrNotBool is returned when an expression does not produce a bool.
var ErrNotBool = errors.New("filter expression must evaluate to bool")

// Filter is a compiled row predicate. The zero value and nil both match every row.
type Filter struct {
	expr    string
	program cel.Program
}

// Compile parses and type-checks expr. An empty expression yields a nil Filter.
func Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("kind", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel environment: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile filter: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w, got %s", ErrNotBool, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}
	return &Filter{expr: expr, program: program}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}

// Match evaluates the filter against one row. Evaluation errors, such as a missing key,
// are returned with a false result.
func (f *Filter) Match(kind string, row map[string]any) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	out, _, err := f.program.Eval(map[string]any{"row": row, "kind": kind})
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrNotBool, out.Value())
	}
	return matched, nil
}
