package catalog

import (
	"context"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/render"
	"github.com/dd0wney/cluso-ift/pkg/resolve"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// CWEKind is the weakness kind. Every template in its file applies.
var CWEKind = assemble.Kind{Name: "cwe"}

const cweQuery = `SELECT cwe_id, name, description, extended_description,
       background_details, common_consequences,
       detection_methods, potential_mitigations,
       modes_of_introduction, related_weaknesses, observed_examples
FROM cwe_weaknesses
ORDER BY cwe_id
LIMIT $1`

// CWE returns the weakness source. Related attack patterns come from the graph.
func (c *Catalog) CWE() assemble.Source {
	return &source{
		kind:  CWEKind,
		query: cweQuery,
		args:  limitArgs,
		build: c.buildCWE,
		rows:  c.rows,
	}
}

func (c *Catalog) buildCWE(ctx context.Context, row store.Row) assemble.Entity {
	cweID := id(row["cwe_id"])
	return assemble.Entity{
		ID: cweID,
		Values: map[string]string{
			"cwe_id":                  scalar(row["cwe_id"]),
			"name":                    scalar(row["name"]),
			"description":             scalar(row["description"]),
			"extended_description":    scalar(row["extended_description"]),
			"background_details":      render.FormatBackgroundDetails(row["background_details"]),
			"common_consequences":     render.FormatCommonConsequences(row["common_consequences"]),
			"detection_methods":       render.FormatDetectionMethods(row["detection_methods"]),
			"potential_mitigations":   render.FormatCWEMitigations(row["potential_mitigations"]),
			"modes_of_introduction":   render.FormatModesOfIntroduction(row["modes_of_introduction"]),
			"related_weaknesses":      render.FormatCWERelatedWeaknesses(row["related_weaknesses"]),
			"observed_examples":       render.FormatObservedExamples(row["observed_examples"]),
			"related_attack_patterns": c.related(ctx, cweID, resolve.WeaknessAttackPatterns),
		},
	}
}

// related resolves rel for entityID; entities without an id relate to nothing.
func (c *Catalog) related(ctx context.Context, entityID string, rel resolve.Relation) string {
	if entityID == "" {
		return resolve.None
	}
	return c.resolver.RelatedText(ctx, entityID, rel)
}
