package catalog

import (
	"context"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/render"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// CAPECKind is the attack pattern kind. Its templates file holds nothing else, so every
// template applies.
var CAPECKind = assemble.Kind{Name: "capec"}

const capecQuery = `SELECT capec_id, name, description, abstraction, status,
       typical_severity, likelihood_of_attack,
       execution_flow, prerequisites, skills_required,
       resources_required, consequences, mitigations,
       example_instances, related_weaknesses, taxonomy_mappings
FROM capec_patterns
ORDER BY capec_id
LIMIT $1`

// CAPEC returns the attack pattern source.
func (c *Catalog) CAPEC() assemble.Source {
	return &source{
		kind:  CAPECKind,
		query: capecQuery,
		args:  limitArgs,
		build: c.buildCAPEC,
		rows:  c.rows,
	}
}

func (c *Catalog) buildCAPEC(_ context.Context, row store.Row) assemble.Entity {
	return assemble.Entity{
		ID: id(row["capec_id"]),
		Values: map[string]string{
			"capec_id":             scalar(row["capec_id"]),
			"name":                 scalar(row["name"]),
			"description":          scalar(row["description"]),
			"abstraction":          scalar(row["abstraction"]),
			"status":               scalar(row["status"]),
			"typical_severity":     scalar(row["typical_severity"]),
			"likelihood_of_attack": scalar(row["likelihood_of_attack"]),
			"execution_flow":       render.FormatExecutionFlow(row["execution_flow"]),
			"prerequisites":        render.FormatPrerequisites(row["prerequisites"]),
			"skills_required":      render.FormatSkills(row["skills_required"]),
			"resources_required":   render.FormatResources(row["resources_required"]),
			"consequence":          render.FormatConsequences(row["consequences"]),
			"mitigations":          render.FormatCAPECMitigations(row["mitigations"]),
			"example_instances":    render.FormatExamples(row["example_instances"]),
			"related_weaknesses":   render.FormatCAPECRelatedWeaknesses(row["related_weaknesses"]),
			"taxonomy_mappings":    render.FormatTaxonomyMappings(row["taxonomy_mappings"]),
		},
	}
}
