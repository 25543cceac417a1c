package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/envelope"
	"github.com/roach88/umicp/internal/store"
)

// LogEntry is one message log record as printed by the log commands.
type LogEntry struct {
	Seq       int64  `json:"seq"`
	Hash      string `json:"hash"`
	MessageID string `json:"message_id,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
	Operation string `json:"operation"`
	Canonical string `json:"canonical"`
	Inserted  *bool  `json:"inserted,omitempty"`
}

func newLogEntry(rec store.Record) LogEntry {
	return LogEntry{
		Seq:       rec.Seq,
		Hash:      rec.Hash,
		MessageID: rec.MessageID,
		From:      rec.From,
		To:        rec.To,
		Operation: rec.Operation.String(),
		Canonical: rec.Canonical,
	}
}

// String renders a one-line summary.
func (e LogEntry) String() string {
	s := fmt.Sprintf("%d %s %s -> %s %s", e.Seq, shortHash(e.Hash), e.From, e.To, e.Operation)
	if e.MessageID != "" {
		s += " " + e.MessageID
	}
	if e.Inserted != nil && !*e.Inserted {
		s += " (already logged)"
	}
	return s
}

// LogList is the output of log list.
type LogList struct {
	Entries []LogEntry `json:"entries"`
}

func (l LogList) String() string {
	if len(l.Entries) == 0 {
		return "no entries"
	}
	lines := make([]string, len(l.Entries))
	for i, e := range l.Entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// NewLogCommand creates the log command group.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Append to and query the durable message log",
		Long: `Append to and query the SQLite message log.

Envelopes are keyed by canonical hash, so appending the same envelope
twice is a no-op.`,
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (defaults to store.path from config)")

	cmd.AddCommand(newLogAppendCommand(rootOpts, &dbPath))
	cmd.AddCommand(newLogListCommand(rootOpts, &dbPath))
	cmd.AddCommand(newLogShowCommand(rootOpts, &dbPath))

	return cmd
}

// openStore opens the log named by --db, or store.path from config.
func openStore(rootOpts *RootOptions, f *OutputFormatter, dbPath string) (*store.Store, error) {
	cfg, err := rootOpts.settings()
	if err != nil {
		return nil, err
	}
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	f.VerboseLog("Opening message log %s", dbPath)
	st, err := store.Open(dbPath, cfg.StoreOptions()...)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeStore, "cannot open message log", err)
	}
	return st, nil
}

func newLogAppendCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	in := &envelopeInput{}
	cmd := &cobra.Command{
		Use:           "append",
		Short:         "Append an envelope to the log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			env, err := in.load(cmd)
			if err != nil {
				return envelopeFailure(f, err)
			}
			if err := env.Check(); err != nil {
				return envelopeFailure(f, err)
			}

			st, err := openStore(rootOpts, f, *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, inserted, err := st.WriteEnvelope(cmd.Context(), env)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot append envelope", err)
			}
			entry := newLogEntry(rec)
			entry.Inserted = &inserted
			return f.Success(entry)
		},
	}
	in.bind(cmd)
	return cmd
}

func newLogListCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	var (
		filter store.Filter
		op     string
	)
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List logged envelopes in log order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			if op != "" {
				parsed, err := envelope.ParseOperation(op)
				if err != nil {
					return f.Fail(ExitCommandError, ErrCodeInput, "invalid --op", err)
				}
				filter.Operation = parsed
			}

			st, err := openStore(rootOpts, f, *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.ListEnvelopes(cmd.Context(), filter)
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot list envelopes", err)
			}
			out := LogList{Entries: make([]LogEntry, len(recs))}
			for i, rec := range recs {
				out.Entries[i] = newLogEntry(rec)
			}
			return f.Success(out)
		},
	}
	cmd.Flags().StringVar(&filter.From, "from", "", "only envelopes from this sender")
	cmd.Flags().StringVar(&filter.To, "to", "", "only envelopes to this recipient")
	cmd.Flags().StringVar(&filter.MessageID, "id", "", "only envelopes with this message id")
	cmd.Flags().StringVar(&op, "op", "", "only envelopes with this operation")
	cmd.Flags().Int64Var(&filter.AfterSeq, "after", 0, "only entries with seq greater than this")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum entries (0 for all)")
	return cmd
}

func newLogShowCommand(rootOpts *RootOptions, dbPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <hash>",
		Short:         "Print the canonical envelope stored under a hash",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			st, err := openStore(rootOpts, f, *dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			rec, err := st.ReadEnvelope(cmd.Context(), strings.ToLower(args[0]))
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return f.Fail(ExitFailure, ErrCodeNotFound, "no envelope with hash "+args[0], err)
				}
				return f.Fail(ExitCommandError, ErrCodeStore, "cannot read envelope", err)
			}
			if f.Format == "json" {
				return f.Success(newLogEntry(rec))
			}
			return f.Success(rec.Canonical)
		},
	}
	return cmd
}
