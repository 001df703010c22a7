package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/framejoin/internal/ir"
	"github.com/roach88/framejoin/internal/store"
	"github.com/roach88/framejoin/internal/synth"
	"github.com/roach88/framejoin/internal/testutil"
)

// Harness is the scenario execution engine.
// It synthesizes with a caller-supplied logger and round-trips join
// results through a private in-memory run cache.
type Harness struct {
	synth  *synth.Synthesizer
	store  *store.Store
	logger *slog.Logger
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory cache for isolation.
// The returned error reports harness failures only; scenario failures
// are recorded in the result.
//
// Execution flow:
// 1. Synthesize from the join (via the resolver) or the raw request
// 2. Match the outcome against expect_error
// 3. Compare every state against expect
// 4. Check table properties and the cache round trip
// 5. Evaluate assertions
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Sequential IDs and a fresh clock keep cached runs identical across executions
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("scenario")),
		store.WithClock(testutil.NewSeqClock(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		synth:  synth.New(logger),
		store:  st,
		logger: logger.With("scenario", scenario.Name),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()

	var (
		tt  *ir.Table
		err error
	)
	if scenario.Join != nil {
		tt, err = h.synth.FromJoinSpec(*scenario.Join)
	} else {
		tt, err = h.synth.Synthesize(scenario.Request.SynthRequest())
	}

	result.Table = tt
	result.SynthError = err
	if !h.checkOutcome(scenario, err, result) || err != nil {
		return result, nil
	}

	h.compareExpected(tt, scenario.Expect, result)
	h.checkProperties(tt, result)

	if scenario.Join != nil {
		if err := h.checkCacheRoundTrip(ctx, scenario, tt, result); err != nil {
			return nil, err
		}
	}

	for _, msg := range EvaluateAssertions(tt, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario completed",
		"pass", result.Pass,
		"states", tt.StateCount,
		"transitions", tt.TransitionCount(),
	)
	return result, nil
}

// checkOutcome matches the synthesis error against expect_error.
// Returns false when the outcome already failed the scenario.
func (h *Harness) checkOutcome(scenario *Scenario, err error, result *Result) bool {
	switch {
	case scenario.ExpectError == "" && err != nil:
		result.Failf("synthesis failed: %v", err)
		return false
	case scenario.ExpectError != "" && err == nil:
		result.Failf("expected %s error, synthesis succeeded", scenario.ExpectError)
		return false
	case scenario.ExpectError != "":
		if kind := errorKind(err); kind != scenario.ExpectError {
			result.Failf("expected %s error, got %s: %v", scenario.ExpectError, kind, err)
			return false
		}
		h.logger.Info("expected synthesis error", "kind", scenario.ExpectError, "error", err)
	}
	return true
}

// errorKind classifies a synthesis error by its expect_error name.
func errorKind(err error) string {
	switch {
	case synth.IsRoutingConflict(err):
		return ErrorRoutingConflict
	case synth.IsNonDeterministic(err):
		return ErrorNonDeterministic
	default:
		return "other"
	}
}

// compareExpected compares the table state by state against the expected
// edges. Order within a state is significant since tables are sorted.
func (h *Harness) compareExpected(tt *ir.Table, expect [][]string, result *Result) {
	if len(expect) == 0 {
		return
	}
	if len(expect) != tt.StateCount {
		result.Failf("expected %d states, got %d\n%s", len(expect), tt.StateCount, tt.Repr())
		return
	}

	for s, reprs := range expect {
		got := tt.States[s]
		if len(got) != len(reprs) {
			result.Failf("state %d: expected %d edges, got %d\n%s",
				s, len(reprs), len(got), stateRepr(got))
			continue
		}
		for i, repr := range reprs {
			want := ir.MustParseTransition(repr)
			if !got[i].Equal(want) {
				result.Failf("state %d edge %d:\n  expected: %s\n  actual:   %s",
					s, i, want.Repr(), got[i].Repr())
			}
		}
	}
}

func stateRepr(edges []*ir.Transition) string {
	var b strings.Builder
	for _, t := range edges {
		fmt.Fprintf(&b, "  %s\n", t.Repr())
	}
	return b.String()
}

// checkProperties verifies the invariants every synthesized table has.
func (h *Harness) checkProperties(tt *ir.Table, result *Result) {
	if err := synth.AssertDeterministic(tt); err != nil {
		result.Failf("table is not deterministic: %v", err)
	}

	again := cloneTable(tt)
	again.FilterUnique()
	if !again.Equal(tt) {
		result.AddError("deduplication is not idempotent on the synthesized table")
	}

	for i, st := range tt.States {
		for _, t := range st {
			if t.State != i || t.StateNext < 0 || t.StateNext >= tt.StateCount {
				result.Failf("state %d: edge %s has out-of-range state", i, t.Label())
			}
		}
	}
}

// checkCacheRoundTrip saves the run and verifies the reloaded table.
func (h *Harness) checkCacheRoundTrip(ctx context.Context, scenario *Scenario, tt *ir.Table, result *Result) error {
	spec := *scenario.Join
	if spec.Name == "" {
		spec.Name = scenario.Name
	}

	run, _, err := h.store.SaveRun(ctx, store.Run{Spec: spec, Table: tt})
	if err != nil {
		return fmt.Errorf("scenario %q: save run: %w", scenario.Name, err)
	}
	loaded, err := h.store.GetRun(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("scenario %q: reload run: %w", scenario.Name, err)
	}
	if !loaded.Table.Equal(tt) {
		result.AddError("table changed after a cache round trip")
	}

	result.Run = &loaded
	h.logger.Debug("run cached", "run_id", loaded.ID, "spec_hash", loaded.SpecHash)
	return nil
}

func cloneTable(tt *ir.Table) *ir.Table {
	c := ir.NewTable(tt.WordBytes, tt.MaxLookahead, tt.StateCount)
	for _, st := range tt.States {
		for _, t := range st {
			c.Add(t.Clone())
		}
	}
	return c
}
