package render

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var allFormatters = map[string]func(any) string{
	"execution_flow":         FormatExecutionFlow,
	"prerequisites":          FormatPrerequisites,
	"skills_required":        FormatSkills,
	"resources_required":     FormatResources,
	"consequence":            FormatConsequences,
	"mitigations":            FormatCAPECMitigations,
	"example_instances":      FormatExamples,
	"capec_related":          FormatCAPECRelatedWeaknesses,
	"taxonomy_mappings":      FormatTaxonomyMappings,
	"background_details":     FormatBackgroundDetails,
	"common_consequences":    FormatCommonConsequences,
	"detection_methods":      FormatDetectionMethods,
	"potential_mitigations":  FormatCWEMitigations,
	"modes_of_introduction":  FormatModesOfIntroduction,
	"cwe_related_weaknesses": FormatCWERelatedWeaknesses,
	"observed_examples":      FormatObservedExamples,
	"description":            FormatDescription,
	"potential_impact":       FormatImpact,
	"x_mitre_data_sources":   FormatDataSources,
	"platform_list":          FormatPlatforms,
	"plain":                  FormatText,
}

func TestRenderersNeverEmpty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("any text renders to a non-empty string", prop.ForAll(
		func(s string) bool {
			for _, format := range allFormatters {
				if strings.TrimSpace(format(s)) == "" {
					return false
				}
			}
			return true
		},
		gen.AnyString(),
	))

	properties.Property("n prerequisites render as n bullets", prop.ForAll(
		func(items []string) bool {
			values := make([]any, len(items))
			for i, s := range items {
				values[i] = s
			}
			got := FormatPrerequisites(values)
			if len(items) == 0 {
				return got == "- None"
			}
			return strings.Count(got, "- ") == len(items) && len(strings.Split(got, "\n")) == len(items)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func TestRenderersTolerateOddShapes(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"[",
		"{}",
		"[]",
		`[null, 1, true]`,
		`{"unexpected": {"nested": [1, 2]}}`,
		[]any{map[string]any{}},
		map[string]any{"x": nil},
		42,
		3.5,
		true,
		[]byte(`["a"]`),
	}

	for name, format := range allFormatters {
		for _, in := range inputs {
			if got := format(in); strings.TrimSpace(got) == "" {
				t.Errorf("%s(%#v) returned empty output", name, in)
			}
		}
	}
}
