// Package resolve turns an entity id into display labels for its related entities: the
// graph store supplies the related ids and the relational store supplies their names.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dd0wney/cluso-ift/pkg/cypher"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/metrics"
	"github.com/dd0wney/cluso-ift/pkg/normalize"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// None is the single label produced when a relation resolves to nothing.
const None = "None"

// Relation is a one-hop graph relation plus the table that names its targets.
type Relation struct {
	Name    string
	Hop     cypher.Hop
	Table   string
	IDCol   string
	NameCol string
}

// Known relations.
var (
	SubTechniques = Relation{
		Name:  "subtechniques",
		Hop:   mitreHop("Technique", "CHILD_OF", cypher.Inbound, "Technique"),
		Table: "techniques", IDCol: "mitre_id", NameCol: "name",
	}
	ToolTechniques = Relation{
		Name:  "tool_techniques",
		Hop:   mitreHop("Tool", "USES", cypher.Outbound, "Technique"),
		Table: "techniques", IDCol: "mitre_id", NameCol: "name",
	}
	CampaignTools = Relation{
		Name:  "campaign_tools",
		Hop:   mitreHop("Campaign", "USES", cypher.Outbound, "Tool"),
		Table: "tools", IDCol: "mitre_id", NameCol: "name",
	}
	CampaignTechniques = Relation{
		Name:  "campaign_techniques",
		Hop:   mitreHop("Campaign", "USES", cypher.Outbound, "Technique"),
		Table: "techniques", IDCol: "mitre_id", NameCol: "name",
	}
	MalwareTechniques = Relation{
		Name:  "malware_techniques",
		Hop:   mitreHop("Malware", "USES", cypher.Outbound, "Technique"),
		Table: "techniques", IDCol: "mitre_id", NameCol: "name",
	}
	WeaknessAttackPatterns = Relation{
		Name: "weakness_attack_patterns",
		Hop: cypher.Hop{
			From: "CWE", FromKey: "cwe_id",
			Rel: "EXPLOITS", Direction: cypher.Inbound,
			To: "CAPEC", ToKey: "capec_id",
		},
		Table: "capec_patterns", IDCol: "capec_id", NameCol: "name",
	}
)

func mitreHop(from, rel string, dir cypher.Direction, to string) cypher.Hop {
	return cypher.Hop{From: from, FromKey: "mitre_id", Rel: rel, Direction: dir, To: to, ToKey: "mitre_id"}
}

// NameQuery returns the SQL that names a batch of target ids, bound as $1.
func (r Relation) NameQuery() string {
	id := pgx.Identifier{r.IDCol}.Sanitize()
	return fmt.Sprintf("SELECT %s AS id, %s AS name FROM %s WHERE %s = ANY($1) ORDER BY %s",
		id, pgx.Identifier{r.NameCol}.Sanitize(), pgx.Identifier{r.Table}.Sanitize(), id, id)
}

// Resolver resolves relations against both stores.
type Resolver struct {
	rows    store.Rows
	graph   store.GraphRows
	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a Resolver. A nil logger or registry disables that side channel.
func New(rows store.Rows, graph store.GraphRows, logger logging.Logger, reg *metrics.Registry) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{rows: rows, graph: graph, logger: logger, metrics: reg}
}

// Related returns "Name (ID)" labels for the entities related to id, ordered by id. It
// returns []string{"None"} when the graph has no related ids or none of them has a name row.
func (r *Resolver) Related(ctx context.Context, id string, rel Relation) []string {
	labels := r.related(ctx, id, rel)
	resolved := len(labels) > 0
	if r.metrics != nil {
		r.metrics.RecordRelation(rel.Name, resolved)
	}
	if !resolved {
		return []string{None}
	}
	return labels
}

// RelatedText is Related joined for display.
func (r *Resolver) RelatedText(ctx context.Context, id string, rel Relation) string {
	return Join(r.Related(ctx, id, rel))
}

func (r *Resolver) related(ctx context.Context, id string, rel Relation) []string {
	log := r.logger.With(logging.Relation(rel.Name), logging.EntityID(id))

	st, err := rel.Hop.Neighbors(id)
	if err != nil {
		log.Error("cannot build relation statement", logging.Error(err))
		return nil
	}

	ids := distinctIDs(r.graph.GraphRows(ctx, st, []string{"id"}))
	if len(ids) == 0 {
		log.Debug("no related ids")
		return nil
	}

	rows := r.rows.Rows(ctx, rel.NameQuery(), ids)
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		if label := Label(text(row["name"]), text(row["id"])); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		log.Warn("related ids have no name rows", logging.Count(len(ids)))
	}
	return labels
}

// Label renders "Name (ID)", degrading to whichever half is present.
func Label(name, id string) string {
	switch {
	case name != "" && id != "":
		return name + " (" + id + ")"
	case name != "":
		return name
	default:
		return id
	}
}

// Join joins labels with ", ". An empty list joins to "None".
func Join(labels []string) string {
	if len(labels) == 0 {
		return None
	}
	return strings.Join(labels, ", ")
}

func distinctIDs(rows []store.Row) []string {
	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id := text(row["id"])
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func text(v any) string {
	return strings.TrimSpace(normalize.Stringify(v))
}
