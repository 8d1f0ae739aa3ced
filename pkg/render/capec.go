package render

import (
	"fmt"
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/normalize"
)

// stepKeys lists the spellings seen for a step's ordinal, typos included.
var stepKeys = []string{"step", "ste p", "step_no", "stepNo", "step_number", "number"}

// FormatExecutionFlow renders attack steps as blocks of header, technique bullets and a
// description line. Text that is not a list of steps is passed through trimmed.
func FormatExecutionFlow(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	blocks := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			blocks = append(blocks, it.Text)
			continue
		}
		blocks = append(blocks, formatStep(it.Record))
	}
	return List(ExecutionFlow, blocks)
}

func formatStep(step normalize.Record) string {
	label := "Step"
	if no := step.Text(stepKeys...); no != "" {
		label += " " + no
	}

	var header string
	if phase := step.Text("phase"); phase != "" {
		header = fmt.Sprintf("%s: During the %s phase, the attacker uses:", label, phase)
	} else {
		header = label + ": The attacker uses:"
	}

	var b strings.Builder
	b.WriteString(header)

	techniques := step.Strings("techniques", "technique")
	if len(techniques) == 0 {
		b.WriteString("\n- (no specific techniques listed)")
	}
	for _, t := range techniques {
		b.WriteString("\n- ")
		b.WriteString(t)
	}

	if desc := step.Text("description", "desc"); desc != "" {
		b.WriteString("\nDescription: " + desc)
	} else {
		b.WriteString("\nDescription: None.")
	}
	return b.String()
}

// FormatPrerequisites renders one bullet per prerequisite.
func FormatPrerequisites(v any) string {
	return List(Prerequisites, normalize.Normalize(v, normalize.Strings).Texts())
}

// FormatResources renders one bullet per required resource.
func FormatResources(v any) string {
	return List(ResourcesRequired, normalize.Normalize(v, normalize.Strings).Texts())
}

// FormatSkills renders "level: description" bullets, dropping whichever half is missing.
func FormatSkills(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		level := it.Record.Text("level")
		desc := it.Record.Text("description", "skill")
		switch {
		case level != "" && desc != "":
			clauses = append(clauses, level+": "+desc)
		case desc != "":
			clauses = append(clauses, desc)
		case level != "":
			clauses = append(clauses, level)
		default:
			clauses = append(clauses, it.Record.Summary())
		}
	}
	return List(SkillsRequired, clauses)
}

// FormatConsequences renders "<impact> impacts <scopes>." clauses, degrading to whichever
// half is present.
func FormatConsequences(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		impact := it.Record.Text("impact")
		scopes := strings.Join(it.Record.Strings("scopes", "scope"), ", ")

		var clause string
		switch {
		case impact != "" && scopes != "":
			clause = fmt.Sprintf("%s impacts %s.", impact, scopes)
		case impact != "":
			clause = impact + " impact."
		case scopes != "":
			clause = fmt.Sprintf("Impacts %s.", scopes)
		}
		if note := it.Record.Text("note"); note != "" {
			clause = strings.TrimSpace(clause + " " + note)
		}
		if clause == "" {
			clause = it.Record.Summary()
		}
		clauses = append(clauses, clause)
	}
	return List(Consequences, clauses)
}

// FormatCAPECMitigations renders one mitigation per line.
func FormatCAPECMitigations(v any) string {
	return List(CAPECMitigations, normalize.Normalize(v, normalize.Prose).Texts())
}

// FormatExamples renders one bullet per example instance.
func FormatExamples(v any) string {
	return List(ExampleInstances, normalize.Normalize(v, normalize.Prose).Texts())
}

// FormatCAPECRelatedWeaknesses renders a comma-separated list of weakness ids.
func FormatCAPECRelatedWeaknesses(v any) string {
	return List(CAPECRelatedWeaknesses, normalize.Normalize(v, normalize.Strings).Texts())
}

// FormatTaxonomyMappings renders mappings as one sentence:
//
//	the taxonomy entries "A" (ID: 1, Taxonomy: ATTACK), "B" (ID: 2, Taxonomy: WASC), and ...
func FormatTaxonomyMappings(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	if len(items) == 1 && !items[0].IsRecord() && !isList(v) {
		return items[0].Text
	}

	entries := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			entries = append(entries, `"`+it.Text+`"`)
			continue
		}
		if e := formatMapping(it.Record); e != "" {
			entries = append(entries, e)
		}
	}

	switch len(entries) {
	case 0:
		return Fallback(TaxonomyMappings)
	case 1:
		return "the taxonomy entry " + entries[0]
	default:
		return "the taxonomy entries " + Series(entries)
	}
}

// isList reports whether v is a list, directly or as JSON text.
func isList(v any) bool {
	r := normalize.Classify(v)
	if t, ok := r.(normalize.JSONText); ok {
		parsed, ok := normalize.ParseLoose(string(t))
		if !ok {
			return false
		}
		r = normalize.Classify(parsed)
	}
	_, ok := r.(normalize.List)
	return ok
}

func formatMapping(m normalize.Record) string {
	id := m.Text("entry_id", "id")
	name := m.Text("entry_name", "name")
	taxonomy := m.Text("taxonomy_name", "taxonomy")
	if id == "" && name == "" && taxonomy == "" {
		return ""
	}

	var details []string
	if id != "" {
		details = append(details, "ID: "+id)
	}
	if taxonomy != "" {
		details = append(details, "Taxonomy: "+taxonomy)
	}

	entry := `"` + name + `"`
	if len(details) > 0 {
		entry += " (" + strings.Join(details, ", ") + ")"
	}
	return entry
}
