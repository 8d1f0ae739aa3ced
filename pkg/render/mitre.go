package render

import "github.com/dd0wney/cluso-ift/pkg/normalize"

// FormatDataSources renders a comma-separated list of ATT&CK data sources.
func FormatDataSources(v any) string {
	return List(DataSources, normalize.Normalize(v, normalize.Strings).Texts())
}

// FormatPlatforms renders a comma-separated list of ATT&CK platforms.
func FormatPlatforms(v any) string {
	return List(Platforms, normalize.Normalize(v, normalize.Strings).Texts())
}

// FormatText renders a plain text column, "None" when empty.
func FormatText(v any) string {
	return List(Plain, normalize.Normalize(v, normalize.Prose).Texts())
}
