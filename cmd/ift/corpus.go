package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-ift/pkg/audit"
	"github.com/dd0wney/cluso-ift/pkg/browse"
	"github.com/dd0wney/cluso-ift/pkg/corpus"
)

// combineCmd merges the per-kind corpora
var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge filled_*.jsonl corpora into combined and shuffled training files",
	Long: `Reads every filled*.jsonl (and .jsonl.sz) file in the output directory in name
order and writes combined_IFT.jsonl plus combined_IFT_shuffled.jsonl, shuffled with a
fixed seed so repeated runs give identical files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Output.Dir
		}
		return runCombine(cmd.OutOrStdout(), dir)
	},
}

// checkCmd audits a CVE corpus
var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Count CVE entries that carry no CVSS vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck(cmd.OutOrStdout(), args[0])
	},
}

// browseCmd opens a corpus in the terminal viewer
var browseCmd = &cobra.Command{
	Use:   "browse [file]",
	Short: "Page through and search a generated corpus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := corpus.ReadEntries(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s has no entries.\n", args[0])
			return nil
		}
		return browse.Run(filepath.Base(args[0]), entries)
	},
}

// verifyCmd checks the run ledger against the corpora on disk
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the run ledger and the corpora it records",
	Long: `Checks the hash chain of runs.jsonl in the output directory, then compares each
recorded corpus that is still on disk against its recorded SHA-256. Files written by a
later run of the same kind and limit replace earlier ones, so only the newest record of
each file is compared.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Output.Dir
		}
		return runVerify(cmd.OutOrStdout(), dir)
	},
}

var errCorpusModified = errors.New("corpus files differ from the ledger")

func init() {
	combineCmd.Flags().String("dir", "", "directory holding the corpora (default from config)")
	verifyCmd.Flags().String("dir", "", "directory holding the corpora (default from config)")
}

func runVerify(out io.Writer, dir string) error {
	records, err := audit.Open(dir).Verify()
	if err != nil {
		return err
	}

	latest := make(map[string]audit.Record)
	var order []string
	for _, r := range records {
		if _, seen := latest[r.File]; !seen {
			order = append(order, r.File)
		}
		latest[r.File] = r
	}

	modified := 0
	for _, file := range order {
		r := latest[file]
		digest, err := audit.FileDigest(filepath.Join(dir, file))
		switch {
		case errors.Is(err, os.ErrNotExist):
			fmt.Fprintf(out, "- %s (missing)\n", file)
		case err != nil:
			return err
		case digest != r.SHA256:
			modified++
			fmt.Fprintf(out, "✗ %s (modified since run %s)\n", file, r.RunID)
		default:
			fmt.Fprintf(out, "✓ %s (%d entries, run %s)\n", file, r.Entries, r.RunID)
		}
	}
	fmt.Fprintf(out, "Ledger intact: %d records\n", len(records))
	if modified > 0 {
		return errCorpusModified
	}
	return nil
}

func runCombine(out io.Writer, dir string) error {
	res, err := corpus.Combine(dir)
	if err != nil {
		return err
	}
	if len(res.Inputs) == 0 {
		fmt.Fprintf(out, "No filled*.jsonl files in %s.\n", dir)
	}
	for _, in := range res.Inputs {
		fmt.Fprintf(out, "  %s\n", filepath.Base(in))
	}
	fmt.Fprintf(out, "Combined %d entries from %d files into %s and %s\n",
		res.Entries, len(res.Inputs), res.Combined, res.Shuffled)
	return nil
}

func runCheck(out io.Writer, path string) error {
	report, err := corpus.CheckCVSS(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Total entries: %d\n", report.Total)
	fmt.Fprintf(out, "Entries without a CVSS vector: %d\n", report.Missing)
	for i, e := range report.Examples {
		fmt.Fprintf(out, "\nExample %d\n  input:  %s\n  output: %s\n", i+1, truncate(e.Input, 200), truncate(e.Output, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
