package cypher

import (
	"errors"
	"fmt"
	"regexp"
)

// Direction is the arrow direction of a hop, seen from the anchor node.
type Direction string

const (
	Outbound Direction = "out"
	Inbound  Direction = "in"
	Both     Direction = "both"
)

// ErrIdentifier is returned when a label, relationship or property name is not a plain
// identifier. Identifiers cannot be bound as parameters, so they are validated instead.
var ErrIdentifier = errors.New("invalid cypher identifier")

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Hop describes a single-relationship traversal from an anchor node to neighbor nodes.
type Hop struct {
	From      string // anchor label
	FromKey   string // anchor id property
	Rel       string
	Direction Direction
	To        string // neighbor label
	ToKey     string // neighbor id property
}

// Validate checks every identifier of the hop.
func (h Hop) Validate() error {
	for _, id := range []string{h.From, h.FromKey, h.Rel, h.To, h.ToKey} {
		if !identifierRegex.MatchString(id) {
			return fmt.Errorf("%w: %q", ErrIdentifier, id)
		}
	}
	return nil
}

// Neighbors builds the statement returning the distinct ids of the hop's neighbors of the
// anchor node with the given id, ordered by id:
//
//	MATCH (a:Technique)<-[:CHILD_OF]-(b:Technique)
//	WHERE a.mitre_id = $id
//	RETURN DISTINCT b.mitre_id AS id
//	ORDER BY id
func (h Hop) Neighbors(id string) (Statement, error) {
	if err := h.Validate(); err != nil {
		return Statement{}, err
	}
	text := BuildMatch(h.From, "a") + BuildTraversal(h, "a", "b") + "\n" +
		fmt.Sprintf("WHERE a.%s = $id\n", h.FromKey) +
		fmt.Sprintf("RETURN DISTINCT b.%s AS id\n", h.ToKey) +
		"ORDER BY id"
	return Statement{Text: text, Params: map[string]any{"id": id}}, nil
}

// BuildMatch returns the opening of a MATCH clause for the anchor node, "MATCH (a:Label)".
// The closing of the pattern is left to BuildTraversal.
func BuildMatch(label, alias string) string {
	return fmt.Sprintf("MATCH (%s:%s)", alias, label)
}

// BuildTraversal returns the relationship segment and neighbor node of a hop:
//   - out:  -[:REL]->(b:To)
//   - in:   <-[:REL]-(b:To)
//   - both: -[:REL]-(b:To)
func BuildTraversal(h Hop, fromAlias, toAlias string) string {
	rel := fmt.Sprintf("[:%s]", h.Rel)
	target := fmt.Sprintf("(%s:%s)", toAlias, h.To)

	switch h.Direction {
	case Inbound:
		return "<-" + rel + "-" + target
	case Both:
		return "-" + rel + "-" + target
	default:
		return "-" + rel + "->" + target
	}
}
