package corpus

import (
	"strings"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

// maxExamples caps the entries kept in a CVSSReport.
const maxExamples = 3

// CVSSReport summarizes a CVE corpus audit.
type CVSSReport struct {
	Total    int
	Missing  int
	Examples []template.Entry
}

// CheckCVSS counts the entries of a CVE corpus that carry no CVSS vector in either their
// input or output. The first few such entries are kept as examples.
func CheckCVSS(path string) (*CVSSReport, error) {
	entries, err := ReadEntries(path)
	if err != nil {
		return nil, err
	}

	report := &CVSSReport{Total: len(entries)}
	for _, e := range entries {
		if HasCVSSVector(e) {
			continue
		}
		report.Missing++
		if len(report.Examples) < maxExamples {
			report.Examples = append(report.Examples, e)
		}
	}
	return report, nil
}

// HasCVSSVector reports whether e mentions a CVSS vector.
func HasCVSSVector(e template.Entry) bool {
	for _, text := range []string{e.Input, e.Output} {
		if strings.Contains(text, "CVSS") || strings.Contains(text, "/AV:") {
			return true
		}
	}
	return false
}
