package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/framejoin/internal/compiler"
	"github.com/roach88/framejoin/internal/ir"
	"github.com/roach88/framejoin/internal/store"
	"github.com/roach88/framejoin/internal/synth"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Output string // JSON report path
	DB     string // run cache path
	Jobs   int    // concurrent syntheses
}

// JoinReport is the outcome of one join.
type JoinReport struct {
	Name         string     `json:"name"`
	SpecHash     string     `json:"spec_hash"`
	TableHash    string     `json:"table_hash,omitempty"`
	RunID        string     `json:"run_id,omitempty"`
	Cached       bool       `json:"cached"`
	States       int        `json:"states"`
	Transitions  int        `json:"transitions"`
	MaxLookahead []int      `json:"max_lookahead,omitempty"`
	Table        *ir.Table  `json:"table,omitempty"`
	Error        *JoinError `json:"error,omitempty"`
}

// JoinError describes why a join could not be synthesized.
type JoinError struct {
	Kind    string `json:"kind"` // routing_conflict | non_deterministic | invalid
	Message string `json:"message"`
}

// SynthReport is the result of a synth run, joins in configuration order.
type SynthReport struct {
	Joins       []JoinReport `json:"joins"`
	Synthesized int          `json:"synthesized"`
	Cached      int          `json:"cached"`
	Failed      int          `json:"failed"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <specs-dir>",
		Short: "Synthesize transition tables for every join",
		Long: `Compile the CUE join configurations in specs-dir and synthesize the
transition table of each join. Joins are synthesized concurrently.

With --db, tables are cached by spec hash and reused on later runs.

Exit codes:
  0 - All joins synthesized
  1 - One or more joins failed to synthesize
  2 - Command error (unreadable specs, cache errors)

Examples:
  framejoin synth ./joins
  framejoin synth ./joins --db runs.db --output tables.json
  framejoin synth ./joins --format json --jobs 4`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the JSON report to this file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "SQLite run cache")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", runtime.GOMAXPROCS(0), "maximum concurrent syntheses")

	return cmd
}

func runSynth(ctx context.Context, opts *SynthOptions, specsDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	runner, closeRunner, err := newJoinRunner(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}
	defer closeRunner()

	return synthRound(ctx, opts, specsDir, runner, formatter)
}

// newJoinRunner opens the run cache named by --db, if any.
func newJoinRunner(opts *SynthOptions, cmd *cobra.Command) (*joinRunner, func(), error) {
	var st *store.Store
	closeFn := func() {}
	if opts.DB != "" {
		var err error
		st, err = store.Open(opts.DB)
		if err != nil {
			return nil, nil, err
		}
		closeFn = func() { st.Close() }
	}

	logger := opts.Logger(cmd.ErrOrStderr())
	return &joinRunner{
		synth:  synth.New(logger),
		store:  st,
		jobs:   opts.Jobs,
		logger: logger,
	}, closeFn, nil
}

// synthRound loads, validates and synthesizes every join in specsDir once.
func synthRound(ctx context.Context, opts *SynthOptions, specsDir string, runner *joinRunner, formatter *OutputFormatter) error {
	loadResult, loadErrors := LoadJoins(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		le := asLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, le.Code, le.Message)
	}
	formatter.Debugf("Loaded %d join(s) from %d CUE file(s)", len(loadResult.Joins), loadResult.FileCount)

	if verrs := compiler.Validate(loadResult.Joins); len(verrs) > 0 {
		return reportInvalid(formatter, verrs)
	}

	report, err := runner.Run(ctx, loadResult.Joins)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
	}

	if opts.Output != "" {
		if err := writeJSONFile(opts.Output, report); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		formatter.Debugf("Wrote %s", opts.Output)
	}

	if err := outputSynthReport(formatter, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return exitf(ExitFailure, "%d of %d join(s) failed to synthesize", report.Failed, len(report.Joins))
	}
	return nil
}

// joinRunner synthesizes a set of joins, consulting the run cache when
// one is configured.
type joinRunner struct {
	synth  *synth.Synthesizer
	store  *store.Store // optional
	jobs   int
	logger *slog.Logger
}

// Run synthesizes every join. Synthesis failures are recorded in the
// report; cache failures abort the run.
func (r *joinRunner) Run(ctx context.Context, joins []ir.JoinSpec) (*SynthReport, error) {
	reports := make([]JoinReport, len(joins))

	g, gCtx := errgroup.WithContext(ctx)
	if r.jobs > 0 {
		g.SetLimit(r.jobs)
	}
	for i, spec := range joins {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			rep, err := r.one(gCtx, spec)
			if err != nil {
				return fmt.Errorf("join %q: %w", spec.Name, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &SynthReport{Joins: reports}
	for _, rep := range reports {
		switch {
		case rep.Error != nil:
			report.Failed++
		case rep.Cached:
			report.Cached++
		default:
			report.Synthesized++
		}
	}
	return report, nil
}

// one synthesizes a single join. The returned error is reserved for
// cache failures.
func (r *joinRunner) one(ctx context.Context, spec ir.JoinSpec) (JoinReport, error) {
	spec = spec.Normalized()
	specHash, err := ir.SpecHash(spec)
	if err != nil {
		return JoinReport{}, err
	}
	rep := JoinReport{Name: spec.Name, SpecHash: specHash}

	if r.store != nil {
		run, err := r.store.LookupBySpecHash(ctx, specHash)
		switch {
		case err == nil && run.SynthVersion == ir.SynthVersion:
			r.logger.Debug("cache hit", "join", spec.Name, "run_id", run.ID)
			rep.Cached = true
			rep.RunID = run.ID
			rep.fill(run.Table, run.TableHash)
			return rep, nil
		case err == nil:
			r.logger.Debug("cache stale", "join", spec.Name, "run_id", run.ID, "synth_version", run.SynthVersion)
		case !errors.Is(err, store.ErrNotFound):
			return JoinReport{}, err
		}
	}

	tt, err := r.synth.FromJoinSpec(spec)
	if err != nil {
		r.logger.Warn("synthesis failed", "join", spec.Name, "error", err)
		rep.Error = &JoinError{Kind: synthErrorKind(err), Message: err.Error()}
		return rep, nil
	}

	tableHash, err := ir.TableHash(tt)
	if err != nil {
		return JoinReport{}, err
	}
	rep.fill(tt, tableHash)

	if r.store != nil {
		run, _, err := r.store.SaveRun(ctx, store.Run{Spec: spec, Table: tt})
		if err != nil {
			return JoinReport{}, err
		}
		rep.RunID = run.ID
	}
	return rep, nil
}

func (rep *JoinReport) fill(tt *ir.Table, tableHash string) {
	rep.Table = tt
	rep.TableHash = tableHash
	rep.States = tt.StateCount
	rep.Transitions = tt.TransitionCount()
	rep.MaxLookahead = tt.MaxLookahead
}

func synthErrorKind(err error) string {
	switch {
	case synth.IsRoutingConflict(err):
		return "routing_conflict"
	case synth.IsNonDeterministic(err):
		return "non_deterministic"
	default:
		return "invalid"
	}
}

// outputSynthReport prints one line per join (text) or the full report
// with tables (json).
func outputSynthReport(formatter *OutputFormatter, report *SynthReport) error {
	if formatter.JSON() {
		status := "ok"
		var cliErr *CLIError
		if report.Failed > 0 {
			status = "error"
			cliErr = &CLIError{
				Code:    ErrCodeSynthFailed,
				Message: fmt.Sprintf("%d join(s) failed to synthesize", report.Failed),
			}
		}
		return formatter.emit(CLIResponse{Status: status, Data: report, Error: cliErr})
	}

	w := formatter.Writer
	for _, rep := range report.Joins {
		writeJoinLine(w, rep)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d synthesized, %d cached, %d failed\n", report.Synthesized, report.Cached, report.Failed)
	return nil
}

func writeJoinLine(w io.Writer, rep JoinReport) {
	if rep.Error != nil {
		fmt.Fprintf(w, "✗ %s\n", rep.Name)
		fmt.Fprintf(w, "  %s: %s\n", rep.Error.Kind, rep.Error.Message)
		return
	}
	suffix := ""
	if rep.Cached {
		suffix = " (cached)"
	}
	fmt.Fprintf(w, "✓ %s: %d states, %d transitions, lookahead %v%s\n",
		rep.Name, rep.States, rep.Transitions, rep.MaxLookahead, suffix)
}
