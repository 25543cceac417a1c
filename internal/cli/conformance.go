package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/conformance"
)

// ConformanceOptions holds flags for the conformance command.
type ConformanceOptions struct {
	*RootOptions
	Update bool   // rewrite golden snapshots
	Filter string // suite file filter (glob pattern)
}

// SuiteResult is the outcome of one suite file.
type SuiteResult struct {
	Name   string                   `json:"name"`
	Path   string                   `json:"path"`
	Pass   bool                     `json:"pass"`
	Errors []string                 `json:"errors,omitempty"`
	Cases  []conformance.CaseResult `json:"cases,omitempty"`
}

// ConformanceResult is the output of the conformance command.
type ConformanceResult struct {
	Suites []SuiteResult `json:"suites"`
	Passed int           `json:"passed"`
	Failed int           `json:"failed"`
	Total  int           `json:"total"`
}

// NewConformanceCommand creates the conformance command.
func NewConformanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConformanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "conformance <path>",
		Short: "Run envelope, frame, and matrix test vectors",
		Long: `Run YAML test vectors against the envelope, frame, and matrix code.

<path> is a suite file or a directory of .yaml/.yml suites. A suite with a
sibling .golden file must also reproduce that snapshot exactly.

Exit codes:
  0 - All cases passed
  1 - One or more cases failed
  2 - Command error (unreadable or invalid suites)

Examples:
  umicp conformance ./vectors
  umicp conformance ./vectors --filter "frame*"
  umicp conformance ./vectors --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConformance(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only suite files whose base name matches this glob")

	return cmd
}

func runConformance(opts *ConformanceOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	suites, err := loadSuites(path, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, "cannot load suites", err)
	}

	result := ConformanceResult{Suites: make([]SuiteResult, 0, len(suites)), Total: len(suites)}
	for _, suite := range suites {
		sr := runSuite(suite, opts.Update)
		f.VerboseLog("Ran %s (%d case(s))", sr.Path, len(sr.Cases))
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		if f.Format != "json" {
			printSuite(f, sr)
		}
		result.Suites = append(result.Suites, sr)
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d suite(s) failed", result.Failed), Reported: true}
	}
	return nil
}

// loadSuites loads one file, or every suite in a directory that matches
// filter.
func loadSuites(path, filter string) ([]*conformance.Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		s, err := conformance.LoadFile(path)
		if err != nil {
			return nil, err
		}
		return []*conformance.Suite{s}, nil
	}

	suites, err := conformance.LoadDir(path)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return suites, nil
	}

	var out []*conformance.Suite
	for _, s := range suites {
		base := filepath.Base(s.Path)
		matched, err := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			out = append(out, s)
		}
	}
	return out, nil
}

func runSuite(suite *conformance.Suite, update bool) SuiteResult {
	sr := SuiteResult{Name: suite.Name, Path: suite.Path, Pass: true}

	report, err := conformance.Run(suite)
	if err != nil {
		sr.Pass = false
		sr.Errors = []string{err.Error()}
		return sr
	}
	sr.Cases = report.Cases
	sr.Pass = report.Passed()

	snapshot, err := report.Snapshot()
	if err != nil {
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("snapshot: %v", err))
		return sr
	}

	golden := goldenPath(suite.Path)
	if update {
		if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return sr
	}

	want, err := os.ReadFile(golden)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(bytes.TrimSpace(want), snapshot):
		sr.Pass = false
		sr.Errors = append(sr.Errors, "output differs from "+filepath.Base(golden))
	}
	return sr
}

// goldenPath returns the snapshot file that sits next to a suite file.
func goldenPath(suitePath string) string {
	return strings.TrimSuffix(suitePath, filepath.Ext(suitePath)) + ".golden"
}

func printSuite(f *OutputFormatter, sr SuiteResult) {
	if sr.Pass {
		f.Pass("%s (%d cases)", sr.Name, len(sr.Cases))
		return
	}
	f.Failed("%s", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(f.Writer, "  %s\n", e)
	}
	for _, c := range sr.Cases {
		if c.Pass {
			continue
		}
		fmt.Fprintf(f.Writer, "  %s %s:\n", c.Kind, c.Name)
		for _, e := range c.Errors {
			fmt.Fprintf(f.Writer, "    %s\n", e)
		}
	}
}
