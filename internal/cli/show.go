package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/roach88/framejoin/internal/ir"
	"github.com/roach88/framejoin/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	SameTable bool // list runs sharing the table of the selected run
}

// RunSummary is the listing form of a cached run.
type RunSummary struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	Name         string `json:"name"`
	SpecHash     string `json:"spec_hash"`
	TableHash    string `json:"table_hash"`
	States       int    `json:"states"`
	Transitions  int    `json:"transitions"`
	SynthVersion string `json:"synth_version"`
}

// RunDetail is a cached run with its configuration and table.
type RunDetail struct {
	RunSummary
	Spec  ir.JoinSpec `json:"spec"`
	Table *ir.Table   `json:"table"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <db> [run-id|spec-hash]",
		Short: "Inspect cached synthesis runs",
		Long: `List the runs cached in a SQLite database, or print one run's table.

A run is selected by its ID or by the hash of its join configuration.
With --same-table, lists every run whose table equals the selected one.

Examples:
  framejoin show runs.db
  framejoin show runs.db 0193a5c2-...
  framejoin show runs.db 0193a5c2-... --same-table`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 2 {
				key = args[1]
			}
			return runShow(cmd.Context(), opts, args[0], key, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SameTable, "same-table", false, "list runs that produced the same table")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, dbPath, key string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open would create a missing database.
	if _, err := os.Stat(dbPath); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath))
	}
	if key == "" && opts.SameTable {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--same-table requires a run ID or spec hash")
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer st.Close()

	if key == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		return outputRunList(formatter, runs)
	}

	run, err := findRun(ctx, st, key)
	if errors.Is(err, store.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, fmt.Sprintf("no run with ID or spec hash %q", key))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	if opts.SameTable {
		runs, err := st.RunsByTableHash(ctx, run.TableHash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
		}
		return outputRunList(formatter, runs)
	}
	return outputRunDetail(formatter, run)
}

// findRun resolves key as a run ID first, then as a spec hash.
func findRun(ctx context.Context, st *store.Store, key string) (store.Run, error) {
	run, err := st.GetRun(ctx, key)
	if !errors.Is(err, store.ErrNotFound) {
		return run, err
	}
	return st.LookupBySpecHash(ctx, key)
}

func summarize(run store.Run) RunSummary {
	return RunSummary{
		ID:           run.ID,
		Seq:          run.Seq,
		Name:         run.Name,
		SpecHash:     run.SpecHash,
		TableHash:    run.TableHash,
		States:       run.Table.StateCount,
		Transitions:  run.Table.TransitionCount(),
		SynthVersion: run.SynthVersion,
	}
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, summarize(run))
	}
	if formatter.JSON() {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs cached.")
		return nil
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SEQ", "ID", "NAME", "STATES", "TRANSITIONS", "SPEC").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, s := range summaries {
		t.Row(
			strconv.FormatInt(s.Seq, 10),
			s.ID,
			s.Name,
			strconv.Itoa(s.States),
			strconv.Itoa(s.Transitions),
			shortHash(s.SpecHash),
		)
	}
	fmt.Fprintln(formatter.Writer, t.Render())
	return nil
}

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true)
)

func outputRunDetail(formatter *OutputFormatter, run store.Run) error {
	if formatter.JSON() {
		return formatter.Success(RunDetail{RunSummary: summarize(run), Spec: run.Spec, Table: run.Table})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "run:        %s (seq %d)\n", run.ID, run.Seq)
	fmt.Fprintf(w, "join:       %s\n", run.Name)
	fmt.Fprintf(w, "spec_hash:  %s\n", run.SpecHash)
	fmt.Fprintf(w, "table_hash: %s\n", run.TableHash)
	fmt.Fprintf(w, "lookahead:  %v\n", run.Table.MaxLookahead)
	fmt.Fprintln(w)
	fmt.Fprint(w, run.Table.Repr())
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
