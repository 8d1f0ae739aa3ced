package catalog

import (
	"context"
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/assemble"
	"github.com/dd0wney/cluso-ift/pkg/logging"
	"github.com/dd0wney/cluso-ift/pkg/normalize"
	"github.com/dd0wney/cluso-ift/pkg/render"
	"github.com/dd0wney/cluso-ift/pkg/resolve"
	"github.com/dd0wney/cluso-ift/pkg/store"
)

// MITRE ATT&CK kinds. They share one templates file and are told apart by the id token
// each template's input references.
var (
	TechniqueKind = assemble.Kind{
		Name:          "technique",
		KeyToken:      "technique_id",
		VariantTokens: []string{"tactic_name", "tactic_purpose", "tactic_id"},
		EmptyVariant: map[string]string{
			"tactic_name":    resolve.None,
			"tactic_purpose": resolve.None,
			"tactic_id":      resolve.None,
		},
	}
	ToolKind     = assemble.Kind{Name: "tool", KeyToken: "tool_id"}
	CampaignKind = assemble.Kind{Name: "campaign", KeyToken: "campaign_id"}
	MalwareKind  = assemble.Kind{Name: "malware", KeyToken: "malware_id"}
)

const (
	techniqueQuery = `SELECT mitre_id, name, description, x_mitre_data_sources, x_mitre_platforms, kill_chain_phases
FROM techniques
ORDER BY mitre_id
LIMIT $1`

	tacticQuery = `SELECT mitre_id, name, description FROM tactics WHERE shortname = $1 LIMIT 1`
)

// entityQuery selects the common id, name and description columns of a MITRE table.
func entityQuery(table string) string {
	return "SELECT mitre_id, name, description FROM " + table + " ORDER BY mitre_id LIMIT $1"
}

// MITRE returns the technique, tool, campaign and malware sources in generation order.
func (c *Catalog) MITRE() []assemble.Source {
	return []assemble.Source{c.Techniques(), c.Tools(), c.Campaigns(), c.Malware()}
}

// Techniques returns the technique source. Each kill chain phase becomes one tactic
// variant.
func (c *Catalog) Techniques() assemble.Source {
	return &source{kind: TechniqueKind, query: techniqueQuery, args: limitArgs, build: c.buildTechnique, rows: c.rows}
}

// Tools returns the tool source.
func (c *Catalog) Tools() assemble.Source {
	return &source{kind: ToolKind, query: entityQuery("tools"), args: limitArgs, build: c.buildTool, rows: c.rows}
}

// Campaigns returns the campaign source.
func (c *Catalog) Campaigns() assemble.Source {
	return &source{kind: CampaignKind, query: entityQuery("campaigns"), args: limitArgs, build: c.buildCampaign, rows: c.rows}
}

// Malware returns the malware source.
func (c *Catalog) Malware() assemble.Source {
	return &source{kind: MalwareKind, query: entityQuery("malware"), args: limitArgs, build: c.buildMalware, rows: c.rows}
}

func (c *Catalog) buildTechnique(ctx context.Context, row store.Row) assemble.Entity {
	mitreID := id(row["mitre_id"])

	var variants []map[string]string
	for _, phase := range KillChainPhases(row["kill_chain_phases"]) {
		variants = append(variants, c.tactic(ctx, phase))
	}

	return assemble.Entity{
		ID: mitreID,
		Values: map[string]string{
			"technique_id":                   scalar(row["mitre_id"]),
			"technique_name":                 scalar(row["name"]),
			"brief_description_of_technique": render.FormatText(row["description"]),
			"x_mitre_data_sources":           render.FormatDataSources(row["x_mitre_data_sources"]),
			"platform_list":                  render.FormatPlatforms(row["x_mitre_platforms"]),
			"subtechnique_list":              c.related(ctx, mitreID, resolve.SubTechniques),
		},
		Variants: variants,
	}
}

func (c *Catalog) buildTool(ctx context.Context, row store.Row) assemble.Entity {
	mitreID := id(row["mitre_id"])
	return assemble.Entity{
		ID: mitreID,
		Values: map[string]string{
			"tool_id":          scalar(row["mitre_id"]),
			"tool_name":        scalar(row["name"]),
			"tool_description": render.FormatText(row["description"]),
			"technique_list":   c.related(ctx, mitreID, resolve.ToolTechniques),
		},
	}
}

func (c *Catalog) buildCampaign(ctx context.Context, row store.Row) assemble.Entity {
	mitreID := id(row["mitre_id"])
	return assemble.Entity{
		ID: mitreID,
		Values: map[string]string{
			"campaign_id":          scalar(row["mitre_id"]),
			"campaign_name":        scalar(row["name"]),
			"campaign_description": render.FormatText(row["description"]),
			"tool_list":            c.related(ctx, mitreID, resolve.CampaignTools),
			"technique_list":       c.related(ctx, mitreID, resolve.CampaignTechniques),
		},
	}
}

func (c *Catalog) buildMalware(ctx context.Context, row store.Row) assemble.Entity {
	mitreID := id(row["mitre_id"])
	return assemble.Entity{
		ID: mitreID,
		Values: map[string]string{
			"malware_id":          scalar(row["mitre_id"]),
			"malware_name":        scalar(row["name"]),
			"malware_description": render.FormatText(row["description"]),
			"technique_list":      c.related(ctx, mitreID, resolve.MalwareTechniques),
		},
	}
}

// KillChainPhases returns the distinct phase short names of a technique, in first-seen
// order. Phases may be stored as objects with a phase_name, as bare names, or as comma
// separated text. A phase listed under several kill chains is returned once.
func KillChainPhases(v any) []string {
	var out []string
	seen := make(map[string]bool)
	for _, it := range normalize.Normalize(v, normalize.Strings) {
		name := it.Text
		if it.IsRecord() {
			name = it.Record.Text("phase_name")
		}
		if name = strings.TrimSpace(name); name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// tactic looks up the tactic behind a kill chain phase. An unknown phase keeps its short
// name so the entry still reads sensibly.
func (c *Catalog) tactic(ctx context.Context, shortname string) map[string]string {
	variant := map[string]string{
		"tactic_name":    shortname,
		"tactic_purpose": resolve.None,
		"tactic_id":      resolve.None,
	}

	rows := c.rows.Rows(ctx, tacticQuery, shortname)
	if len(rows) == 0 {
		c.logger.Warn("no tactic for kill chain phase", logging.String("phase", shortname))
		return variant
	}

	row := rows[0]
	if name := id(row["name"]); name != "" {
		variant["tactic_name"] = name
	}
	variant["tactic_purpose"] = render.FormatText(row["description"])
	variant["tactic_id"] = scalar(row["mitre_id"])
	return variant
}
