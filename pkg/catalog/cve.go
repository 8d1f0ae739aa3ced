package catalog

import (
	"context"
	"strconv"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/render"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// CVEKind is the vulnerability kind. Every template in its file applies.
var CVEKind = assemble.Kind{Name: "cve"}

// DefaultCVEYears are the publication years generated when none are configured.
var DefaultCVEYears = []int{2024, 2025}

const cveQuery = `SELECT cve_id, descriptions, impacts, metrics
FROM cve_vulnerabilities
WHERE cve_id LIKE ANY($1)
ORDER BY cve_id
LIMIT $2`

// CVE returns the vulnerability source restricted to ids from years.
func (c *Catalog) CVE(years []int) assemble.Source {
	if len(years) == 0 {
		years = DefaultCVEYears
	}
	patterns := YearPatterns(years)

	return &source{
		kind:  CVEKind,
		query: cveQuery,
		args: func(limit int) []any {
			return []any{patterns, limitArg(limit)}
		},
		build: c.buildCVE,
		rows:  c.rows,
	}
}

// YearPatterns returns the LIKE patterns matching CVE ids of the given years.
func YearPatterns(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = "CVE-" + strconv.Itoa(y) + "-%"
	}
	return out
}

func (c *Catalog) buildCVE(_ context.Context, row store.Row) assemble.Entity {
	description := render.FormatDescription(row["descriptions"])
	score, vector := render.CVSS(row["metrics"])

	return assemble.Entity{
		ID: id(row["cve_id"]),
		Values: map[string]string{
			"cve_id":                    scalar(row["cve_id"]),
			"vulnerability_description": description,
			"cve_description":           description,
			"potential_impact":          render.FormatImpact(row["impacts"]),
			"cvss_score":                score,
			"attack_vector":             vector,
		},
	}
}
