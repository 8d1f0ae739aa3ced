// Package corpus writes filled entries as JSONL corpora and post-processes them: combining
// per-kind files into one shuffled training set and auditing CVE output.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

// Compression selects the on-disk framing of a corpus file.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"

	// SnappyExt is appended to the names of snappy-framed files.
	SnappyExt = ".sz"
)

// OutputName returns the file name for one generation run, for example
// filled_cwe_templates_5.jsonl or filled_cve_templates_all.jsonl.
func OutputName(kind string, limit int, compression Compression) string {
	size := "all"
	if limit > 0 {
		size = strconv.Itoa(limit)
	}
	name := "filled_" + kind + "_templates_" + size + ".jsonl"
	if compression == CompressionSnappy {
		name += SnappyExt
	}
	return name
}

// Writer streams entries to a JSONL file. The file is created by the first Write, so a
// run that produces nothing leaves nothing behind. Content goes to a temporary file that
// Close renames into place.
type Writer struct {
	path        string
	compression Compression

	file   *os.File
	buf    *bufio.Writer
	snappy *snappy.Writer
	out    io.Writer

	entries int
	bytes   int64
}

// NewWriter creates a Writer for path.
func NewWriter(path string, compression Compression) *Writer {
	return &Writer{path: path, compression: compression}
}

// Path returns the destination path.
func (w *Writer) Path() string {
	return w.path
}

// Entries returns the number of entries written.
func (w *Writer) Entries() int {
	return w.entries
}

// Bytes returns the uncompressed JSONL size written.
func (w *Writer) Bytes() int64 {
	return w.bytes
}

func (w *Writer) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(w.path), "."+filepath.Base(w.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("failed to set output permissions: %w", err)
	}

	w.file = f
	w.buf = bufio.NewWriter(f)
	w.out = w.buf
	if w.compression == CompressionSnappy {
		w.snappy = snappy.NewBufferedWriter(w.buf)
		w.out = w.snappy
	}
	return nil
}

// Write appends one entry as a JSON line.
func (w *Writer) Write(e template.Entry) error {
	if w.file == nil {
		if err := w.open(); err != nil {
			return err
		}
	}

	line, err := EncodeLine(e)
	if err != nil {
		return err
	}
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	w.entries++
	w.bytes += int64(len(line))
	return nil
}

// Close flushes and publishes the file. It is a no-op when nothing was written.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	tmp := w.file.Name()
	defer func() { w.file = nil }()

	if w.snappy != nil {
		if err := w.snappy.Close(); err != nil {
			w.abort()
			return fmt.Errorf("failed to flush snappy stream: %w", err)
		}
	}
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		w.abort()
		return fmt.Errorf("failed to sync output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish output: %w", err)
	}
	return nil
}

// Discard drops everything written so far, leaving no file behind.
func (w *Writer) Discard() {
	if w.file == nil {
		return
	}
	w.abort()
	w.file = nil
}

func (w *Writer) abort() {
	w.file.Close()
	os.Remove(w.file.Name())
}

// EncodeLine renders e as one JSON line. HTML characters and non-ASCII text are kept
// as they are.
func EncodeLine(e template.Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

// OpenReader opens a corpus file, undoing snappy framing for names ending in SnappyExt.
func OpenReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, SnappyExt) {
		return f, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{snappy.NewReader(f), f}, nil
}

// ReadEntries reads every entry of a corpus file, skipping blank lines.
func ReadEntries(path string) (_ []template.Entry, retErr error) {
	rc, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 16<<20)

	var entries []template.Entry
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e template.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", path, lineNum, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}
