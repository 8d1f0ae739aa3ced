package corpus

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"sort"

	"github.com/dd0wney/cluso-ift/pkg/template"
)

const (
	// CombinedName holds every entry in file order.
	CombinedName = "combined_IFT.jsonl"
	// ShuffledName holds the same entries in a reproducible random order.
	ShuffledName = "combined_IFT_shuffled.jsonl"

	// ShuffleSeed fixes the shuffle so repeated runs produce identical files.
	ShuffleSeed = 42
)

// CombineResult reports what Combine read and wrote.
type CombineResult struct {
	Inputs   []string
	Entries  int
	Combined string
	Shuffled string
}

// Combine merges every filled*.jsonl corpus in dir, in name order, into CombinedName and
// a shuffled copy ShuffledName in the same directory.
func Combine(dir string) (*CombineResult, error) {
	var inputs []string
	for _, pattern := range []string{"filled*.jsonl", "filled*.jsonl" + SnappyExt} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		inputs = append(inputs, matches...)
	}
	sort.Strings(inputs)

	var all []template.Entry
	for _, path := range inputs {
		entries, err := ReadEntries(path)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}

	res := &CombineResult{
		Inputs:   inputs,
		Entries:  len(all),
		Combined: filepath.Join(dir, CombinedName),
		Shuffled: filepath.Join(dir, ShuffledName),
	}
	if err := writeAll(res.Combined, all); err != nil {
		return nil, err
	}

	Shuffle(all, ShuffleSeed)
	if err := writeAll(res.Shuffled, all); err != nil {
		return nil, err
	}
	return res, nil
}

// Shuffle reorders entries in place, deterministically for a given seed.
func Shuffle(entries []template.Entry, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(entries), func(i, j int) {
		entries[i], entries[j] = entries[j], entries[i]
	})
}

// writeAll writes entries to path, creating the file even when entries is empty.
func writeAll(path string, entries []template.Entry) error {
	w := NewWriter(path, CompressionNone)
	if err := w.open(); err != nil {
		return err
	}
	for _, e := range entries {
		if err := w.Write(e); err != nil {
			w.abort()
			return err
		}
	}
	return w.Close()
}
