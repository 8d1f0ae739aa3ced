// Package render turns normalized field values into the prose and bullet text substituted
// into template placeholders.
//
// Every renderer is a pure func(any) string that never panics and never returns an empty
// string: when a field is absent it returns the field's Empty text from Styles.
package render

import (
	"strconv"
	"strings"
)

// Field names a rendered template field.
type Field string

const (
	ExecutionFlow          Field = "execution_flow"
	Prerequisites          Field = "prerequisites"
	SkillsRequired         Field = "skills_required"
	ResourcesRequired      Field = "resources_required"
	Consequences           Field = "consequence"
	CAPECMitigations       Field = "mitigations"
	ExampleInstances       Field = "example_instances"
	CAPECRelatedWeaknesses Field = "capec_related_weaknesses"
	TaxonomyMappings       Field = "taxonomy_mappings"

	BackgroundDetails    Field = "background_details"
	CommonConsequences   Field = "common_consequences"
	DetectionMethods     Field = "detection_methods"
	CWEMitigations       Field = "potential_mitigations"
	ModesOfIntroduction  Field = "modes_of_introduction"
	CWERelatedWeaknesses Field = "cwe_related_weaknesses"
	ObservedExamples     Field = "observed_examples"

	Description Field = "description"
	Impact      Field = "potential_impact"

	DataSources Field = "x_mitre_data_sources"
	Platforms   Field = "platform_list"
	Plain       Field = "plain"
)

// Style is the layout of one field. Item may reference {n} (1-based position) and {item}.
type Style struct {
	Empty  string
	Item   string
	Joiner string
}

// Styles is the layout table consumed by the generic list renderer.
var Styles = map[Field]Style{
	ExecutionFlow:          {Empty: "None", Item: "{item}", Joiner: "\n"},
	Prerequisites:          {Empty: "- None", Item: "- {item}", Joiner: "\n"},
	SkillsRequired:         {Empty: "- None", Item: "- {item}", Joiner: "\n"},
	ResourcesRequired:      {Empty: "- None", Item: "- {item}", Joiner: "\n"},
	Consequences:           {Empty: "None", Item: "- {item}", Joiner: "\n"},
	CAPECMitigations:       {Empty: "No mitigations found", Item: "{item}", Joiner: "\n"},
	ExampleInstances:       {Empty: "No examples available", Item: "- {item}", Joiner: "\n"},
	CAPECRelatedWeaknesses: {Empty: "No related weaknesses found", Item: "{item}", Joiner: ", "},
	TaxonomyMappings:       {Empty: "None", Item: "{item}", Joiner: ", "},

	BackgroundDetails:    {Empty: "None", Item: "{item}", Joiner: " "},
	CommonConsequences:   {Empty: "no consequences available", Item: "{n}. {item}", Joiner: "\n"},
	DetectionMethods:     {Empty: "no detection methods available", Item: "{n}. {item}", Joiner: "\n"},
	CWEMitigations:       {Empty: "no mitigations available", Item: "{n}. {item}", Joiner: "\n"},
	ModesOfIntroduction:  {Empty: "unknown", Item: "- {item}", Joiner: "\n"},
	CWERelatedWeaknesses: {Empty: "none", Item: "{item}", Joiner: ", "},
	ObservedExamples:     {Empty: "no examples available", Item: "{n}. {item}", Joiner: "\n"},

	Description: {Empty: "No description available", Item: "{item}", Joiner: " "},
	Impact:      {Empty: "No impact information available", Item: "{item}", Joiner: "; "},

	DataSources: {Empty: "None", Item: "{item}", Joiner: ", "},
	Platforms:   {Empty: "None", Item: "{item}", Joiner: ", "},
	Plain:       {Empty: "None", Item: "{item}", Joiner: " "},
}

// Fallback returns the field's empty text, "None" for unknown fields.
func Fallback(field Field) string {
	if s := Styles[field].Empty; s != "" {
		return s
	}
	return "None"
}

// List lays out clauses with the field's style. Blank clauses are skipped and numbering
// follows the clauses actually written.
func List(field Field, clauses []string) string {
	st, ok := Styles[field]
	if !ok {
		st = Styles[Plain]
	}

	lines := make([]string, 0, len(clauses))
	for _, c := range clauses {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		r := strings.NewReplacer("{n}", strconv.Itoa(len(lines)+1), "{item}", c)
		lines = append(lines, r.Replace(st.Item))
	}

	if len(lines) == 0 {
		return Fallback(field)
	}
	return strings.Join(lines, st.Joiner)
}

// Series joins items as prose: "a", "a and b", "a, b, and c".
func Series(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}
