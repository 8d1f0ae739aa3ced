package cypher

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxStatementLength is the longest statement text sent to the graph store.
const MaxStatementLength = 10000

var (
	// ErrEmptyStatement is returned for blank statement text.
	ErrEmptyStatement = errors.New("statement cannot be empty")
	// ErrWriteClause is returned when a statement would modify the graph.
	ErrWriteClause = errors.New("statement contains a write clause")
)

// writeClauseRegex matches clauses that modify the graph or reach outside it.
var writeClauseRegex = regexp.MustCompile(
	`(?i)\b(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|LOAD\s+CSV|CALL)\b`)

// CheckReadOnly validates statement text before it is sent: it must be non-empty, within
// MaxStatementLength, free of NUL bytes and free of write clauses.
func CheckReadOnly(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyStatement
	}
	if len(text) > MaxStatementLength {
		return fmt.Errorf("statement too long: maximum %d characters allowed, got %d", MaxStatementLength, len(text))
	}
	if strings.ContainsRune(text, 0) {
		return errors.New("statement contains a null byte")
	}
	if m := writeClauseRegex.FindString(text); m != "" {
		return fmt.Errorf("%w: %s", ErrWriteClause, strings.ToUpper(m))
	}
	return nil
}
