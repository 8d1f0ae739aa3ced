package render

import (
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/normalize"
)

// FormatBackgroundDetails joins background paragraphs with single spaces.
func FormatBackgroundDetails(v any) string {
	return List(BackgroundDetails, normalize.Normalize(v, normalize.Prose).Texts())
}

// FormatCommonConsequences renders numbered "note (Impact: x; Scope: y)" lines.
func FormatCommonConsequences(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		note := it.Record.Text("note")
		impact := it.Record.Text("impact", "impacts")
		scopes := strings.Join(it.Record.Strings("scopes", "scope"), ", ")

		var details []string
		if impact != "" {
			details = append(details, "Impact: "+impact)
		}
		if scopes != "" {
			details = append(details, "Scope: "+scopes)
		}

		clause := note
		if len(details) > 0 {
			clause = strings.TrimSpace(note + " (" + strings.Join(details, "; ") + ")")
		}
		if clause == "" {
			clause = it.Record.Summary()
		}
		clauses = append(clauses, clause)
	}
	return List(CommonConsequences, clauses)
}

// FormatDetectionMethods renders numbered "method: description" lines.
func FormatDetectionMethods(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		clause := labelled(it.Record.Text("method", "detection_method"), it.Record.Text("description"))
		if eff := it.Record.Text("effectiveness"); eff != "" {
			clause = strings.TrimSpace(clause + " (Effectiveness: " + eff + ")")
		}
		if clause == "" {
			clause = it.Record.Summary()
		}
		clauses = append(clauses, clause)
	}
	return List(DetectionMethods, clauses)
}

// FormatCWEMitigations renders numbered "(phase) description" lines.
func FormatCWEMitigations(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		phase := it.Record.Text("phase", "phases")
		desc := it.Record.Text("description", "mitigation")

		var clause string
		switch {
		case phase != "" && desc != "":
			clause = "(" + phase + ") " + desc
		case desc != "":
			clause = desc
		case phase != "":
			clause = "(" + phase + ")"
		default:
			clause = it.Record.Summary()
		}
		clauses = append(clauses, clause)
	}
	return List(CWEMitigations, clauses)
}

// FormatModesOfIntroduction renders "commonly introduced during A, B, and C" followed by one
// bullet per note. Items may be bare phase names or {phase, note} records.
func FormatModesOfIntroduction(v any) string {
	items := normalize.Normalize(v, normalize.Records)

	var phases, notes []string
	seen := make(map[string]bool)
	addPhase := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		phases = append(phases, p)
	}

	for _, it := range items {
		if !it.IsRecord() {
			addPhase(it.Text)
			continue
		}
		phase := it.Record.Text("phase")
		addPhase(phase)
		if note := it.Record.Text("note", "notes"); note != "" {
			notes = append(notes, labelled(phase, note))
		}
	}

	var lines []string
	if len(phases) > 0 {
		lines = append(lines, "commonly introduced during "+Series(phases))
	}
	if len(notes) > 0 {
		lines = append(lines, List(ModesOfIntroduction, notes))
	}
	if len(lines) == 0 {
		return Fallback(ModesOfIntroduction)
	}
	return strings.Join(lines, "\n")
}

// FormatCWERelatedWeaknesses renders "CWE-20 (ChildOf, Primary)" entries.
func FormatCWERelatedWeaknesses(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		id := it.Record.Text("cwe_id", "id")
		var details []string
		for _, d := range []string{it.Record.Text("nature"), it.Record.Text("ordinal")} {
			if d != "" {
				details = append(details, d)
			}
		}

		switch {
		case id == "" && len(details) == 0:
			clauses = append(clauses, it.Record.Summary())
		case id == "":
			clauses = append(clauses, "unknown weakness ("+strings.Join(details, ", ")+")")
		case len(details) == 0:
			clauses = append(clauses, id)
		default:
			clauses = append(clauses, id+" ("+strings.Join(details, ", ")+")")
		}
	}
	return List(CWERelatedWeaknesses, clauses)
}

// FormatObservedExamples renders numbered "reference: description" lines.
func FormatObservedExamples(v any) string {
	items := normalize.Normalize(v, normalize.Records)
	clauses := make([]string, 0, len(items))
	for _, it := range items {
		if !it.IsRecord() {
			clauses = append(clauses, it.Text)
			continue
		}
		clause := labelled(it.Record.Text("reference", "ref"), it.Record.Text("description"))
		if clause == "" {
			clause = it.Record.Summary()
		}
		clauses = append(clauses, clause)
	}
	return List(ObservedExamples, clauses)
}

// labelled joins "label: text", degrading to whichever half is present.
func labelled(label, text string) string {
	switch {
	case label != "" && text != "":
		return label + ": " + text
	case text != "":
		return text
	default:
		return label
	}
}
