// Package audit keeps a hash-chained ledger of generated corpus files, so a training set
// can be traced back to the run, kind and limit that produced each file.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LedgerName is the ledger file kept next to the corpora.
const LedgerName = "runs.jsonl"

// ErrChainBroken is returned when a ledger record was altered, removed or reordered.
var ErrChainBroken = errors.New("ledger hash chain broken")

// Record describes one corpus file written by a generation run.
type Record struct {
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	Kind         string    `json:"kind"`
	Limit        int       `json:"limit"`
	File         string    `json:"file"`
	Entries      int       `json:"entries"`
	Bytes        int64     `json:"bytes"`
	SHA256       string    `json:"sha256"`
	PreviousHash string    `json:"previous_hash,omitempty"`
	RecordHash   string    `json:"record_hash"`
}

// Ledger appends records to a JSONL file.
type Ledger struct {
	path string
}

// Open returns the ledger in dir. The file is created by the first Append.
func Open(dir string) *Ledger {
	return &Ledger{path: filepath.Join(dir, LedgerName)}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Append chains r to the last record and writes it durably. Timestamp defaults to now.
func (l *Ledger) Append(r Record) (Record, error) {
	records, err := l.Records()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Record{}, err
	}
	if len(records) > 0 {
		r.PreviousHash = records[len(records)-1].RecordHash
	} else {
		r.PreviousHash = ""
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	r.Timestamp = r.Timestamp.UTC()

	r.RecordHash, err = hashRecord(r)
	if err != nil {
		return Record{}, err
	}
	line, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal record: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return Record{}, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return Record{}, fmt.Errorf("failed to open ledger: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return Record{}, fmt.Errorf("failed to write record: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Record{}, fmt.Errorf("failed to sync ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return Record{}, fmt.Errorf("failed to close ledger: %w", err)
	}
	return r, nil
}

// Records reads every record without checking the chain.
func (l *Ledger) Records() (_ []Record, retErr error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("failed to close ledger: %w", closeErr)
		}
	}()

	var records []Record
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			return nil, fmt.Errorf("line %d: failed to parse record: %w", lineNum, err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Verify checks the hash chain and returns the verified records.
func (l *Ledger) Verify() ([]Record, error) {
	records, err := l.Records()
	if err != nil {
		return nil, err
	}

	var previousHash string
	for i, r := range records {
		if r.PreviousHash != previousHash {
			return nil, fmt.Errorf("%w: record %d expected previous hash %q, got %q",
				ErrChainBroken, i+1, previousHash, r.PreviousHash)
		}
		calculated, err := hashRecord(r)
		if err != nil {
			return nil, err
		}
		if calculated != r.RecordHash {
			return nil, fmt.Errorf("%w: record %d hash mismatch", ErrChainBroken, i+1)
		}
		previousHash = r.RecordHash
	}
	return records, nil
}

func hashRecord(r Record) (string, error) {
	r.RecordHash = ""
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal record: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (_ string, retErr error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && retErr == nil {
			retErr = closeErr
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
