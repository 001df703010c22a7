package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/framejoin/internal/ir"
)

// Assertion validates a property of the synthesized table.
type Assertion struct {
	// Type specifies the assertion type:
	// - "state_count": table has Count states
	// - "transition_count": State (or the table) has Count edges
	// - "contains": Transition appears in State
	// - "max_lookahead": per-stream lookahead depths equal Lookahead
	Type string `yaml:"type"`

	// State selects a state (used by transition_count and contains).
	State *int `yaml:"state,omitempty"`

	// Count is the expected number (used by state_count, transition_count).
	Count int `yaml:"count,omitempty"`

	// Transition is an edge in repr form (used by contains).
	Transition string `yaml:"transition,omitempty"`

	// Lookahead is the expected lookahead per stream (used by max_lookahead).
	Lookahead []int `yaml:"lookahead,omitempty"`
}

// Assertion type constants.
const (
	AssertStateCount      = "state_count"
	AssertTransitionCount = "transition_count"
	AssertContains        = "contains"
	AssertMaxLookahead    = "max_lookahead"
)

// AssertionError is returned when an assertion fails.
// It includes the table to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Table    string // Table repr for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Table != "" {
		fmt.Fprintf(&buf, "\nTable:\n%s", e.Table)
	}

	return buf.String()
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.State != nil && *a.State < 0 {
		return fmt.Errorf("assertions[%d]: state must be non-negative", index)
	}

	switch a.Type {
	case AssertStateCount, AssertTransitionCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertContains:
		if a.State == nil {
			return fmt.Errorf("assertions[%d]: state is required for contains", index)
		}
		if a.Transition == "" {
			return fmt.Errorf("assertions[%d]: transition is required for contains", index)
		}
		if _, err := ir.ParseTransition(a.Transition); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertMaxLookahead:
		if len(a.Lookahead) == 0 {
			return fmt.Errorf("assertions[%d]: lookahead list is required for max_lookahead", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// assertStateCount checks the number of states.
func assertStateCount(tt *ir.Table, a Assertion) error {
	if tt.StateCount == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStateCount,
		Expected: fmt.Sprintf("%d states", a.Count),
		Actual:   fmt.Sprintf("%d states", tt.StateCount),
		Table:    tt.Repr(),
	}
}

// assertTransitionCount checks the number of edges in one state, or in
// the whole table when no state is given.
func assertTransitionCount(tt *ir.Table, a Assertion) error {
	where := "table"
	var count int
	if a.State == nil {
		count = tt.TransitionCount()
	} else {
		where = fmt.Sprintf("state %d", *a.State)
		if *a.State >= tt.StateCount {
			return &AssertionError{
				Type:     AssertTransitionCount,
				Expected: fmt.Sprintf("%d edges in %s", a.Count, where),
				Actual:   fmt.Sprintf("no %s (table has %d states)", where, tt.StateCount),
				Table:    tt.Repr(),
			}
		}
		count = len(tt.States[*a.State])
	}

	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTransitionCount,
		Expected: fmt.Sprintf("%d edges in %s", a.Count, where),
		Actual:   fmt.Sprintf("%d edges", count),
		Table:    tt.Repr(),
	}
}

// assertContains checks that an edge is present in a state.
func assertContains(tt *ir.Table, a Assertion) error {
	want := ir.MustParseTransition(a.Transition)
	if *a.State < tt.StateCount {
		for _, t := range tt.States[*a.State] {
			if t.Equal(want) {
				return nil
			}
		}
	}
	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("state %d contains %s", *a.State, want.Repr()),
		Actual:   "not found",
		Table:    tt.Repr(),
	}
}

// assertMaxLookahead checks the per-stream lookahead depths.
func assertMaxLookahead(tt *ir.Table, a Assertion) error {
	if slices.Equal(tt.MaxLookahead, a.Lookahead) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMaxLookahead,
		Expected: fmt.Sprintf("%v", a.Lookahead),
		Actual:   fmt.Sprintf("%v", tt.MaxLookahead),
	}
}

// EvaluateAssertions runs all assertions against a table and returns
// error messages for the failed ones.
func EvaluateAssertions(tt *ir.Table, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStateCount:
			err = assertStateCount(tt, a)
		case AssertTransitionCount:
			err = assertTransitionCount(tt, a)
		case AssertContains:
			err = assertContains(tt, a)
		case AssertMaxLookahead:
			err = assertMaxLookahead(tt, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}
