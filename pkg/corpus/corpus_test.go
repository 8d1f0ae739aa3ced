package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

func entry(n string) template.Entry {
	return template.Entry{Instruction: "i" + n, Input: "in" + n, Output: "out" + n}
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "filled_cwe_templates_5.jsonl", OutputName("cwe", 5, CompressionNone))
	assert.Equal(t, "filled_cve_templates_all.jsonl", OutputName("cve", 0, CompressionNone))
	assert.Equal(t, "filled_mitre_templates_all.jsonl.sz", OutputName("mitre", -1, CompressionSnappy))
}

func TestWriterLazyCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", OutputName("capec", 5, CompressionNone))
	w := NewWriter(path, CompressionNone)
	require.NoError(t, w.Close())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "no entries should leave no file")
}

func TestWriterDiscard(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, OutputName("cve", 0, CompressionNone))
	w := NewWriter(path, CompressionNone)
	require.NoError(t, w.Write(entry("1")))
	w.Discard()
	require.NoError(t, w.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestWriterEncoding(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filled_cwe_templates_1.jsonl")
	w := NewWriter(path, CompressionNone)
	require.NoError(t, w.Write(template.Entry{
		Instruction: "Explain",
		Input:       "What is <script> & café?",
		Output:      "naïve ✓",
	}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"instruction":"Explain","input":"What is <script> & café?","output":"naïve ✓"}`+"\n", string(data))
	assert.Equal(t, 1, w.Entries())
	assert.Equal(t, int64(len(data)), w.Bytes())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".*"))
	assert.Empty(t, leftovers)
}

func TestWriterSnappyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), OutputName("mitre", 2, CompressionSnappy))
	w := NewWriter(path, CompressionSnappy)
	want := []template.Entry{entry("1"), entry("2")}
	for _, e := range want {
		require.NoError(t, w.Write(e))
	}
	require.NoError(t, w.Close())

	got, err := ReadEntries(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadEntries() mismatch (-want +got):\n%s", diff)
	}
}

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "filled_cwe_templates_5.jsonl"),
		`{"instruction":"i3","input":"in3","output":"out3"}`,
		``,
		`{"instruction":"i4","input":"in4","output":"out4"}`,
	)
	writeLines(t, filepath.Join(dir, "filled_capec_templates_5.jsonl"),
		`{"instruction":"i1","input":"in1","output":"out1"}`,
		`{"instruction":"i2","input":"in2","output":"out2"}`,
	)
	writeLines(t, filepath.Join(dir, "notes.jsonl"), `{"instruction":"skip"}`)

	res, err := Combine(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Entries)
	assert.Len(t, res.Inputs, 2)

	combined, err := ReadEntries(res.Combined)
	require.NoError(t, err)
	want := []template.Entry{entry("1"), entry("2"), entry("3"), entry("4")}
	if diff := cmp.Diff(want, combined); diff != "" {
		t.Errorf("combined mismatch (-want +got):\n%s", diff)
	}

	shuffled, err := ReadEntries(res.Shuffled)
	require.NoError(t, err)
	expected := append([]template.Entry(nil), want...)
	Shuffle(expected, ShuffleSeed)
	if diff := cmp.Diff(expected, shuffled); diff != "" {
		t.Errorf("shuffled mismatch (-want +got):\n%s", diff)
	}

	// A second run must not pick up its own output.
	res, err = Combine(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Entries)
}

func TestCombineEmptyDir(t *testing.T) {
	res, err := Combine(t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, res.Entries)

	data, err := os.ReadFile(res.Combined)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCombineMalformed(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, filepath.Join(dir, "filled_cve_templates_all.jsonl"), `{"instruction":`)

	_, err := Combine(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestShuffleDeterministic(t *testing.T) {
	a := []template.Entry{entry("1"), entry("2"), entry("3"), entry("4"), entry("5")}
	b := append([]template.Entry(nil), a...)
	Shuffle(a, 42)
	Shuffle(b, 42)
	assert.Equal(t, a, b)
}

func TestCheckCVSS(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filled_cve_templates_all.jsonl")
	writeLines(t, path,
		`{"instruction":"a","input":"CVE-2025-1","output":"Vector CVSS:3.1/AV:N/AC:L"}`,
		`{"instruction":"b","input":"CVE-2025-2 /AV:L","output":"x"}`,
		`{"instruction":"c","input":"CVE-2025-3","output":"no vector"}`,
		`{"instruction":"d","input":"CVE-2025-4","output":""}`,
	)

	report, err := CheckCVSS(path)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Missing)
	require.Len(t, report.Examples, 2)
	assert.Equal(t, "c", report.Examples[0].Instruction)
}
