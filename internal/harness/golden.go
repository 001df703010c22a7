package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a scenario outcome as stable text: a header, then the
// table repr or the error kind.
func Snapshot(scenarioName string, result *Result) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", scenarioName)

	if result.SynthError != nil {
		fmt.Fprintf(&buf, "error: %s\n", errorKind(result.SynthError))
		return buf.Bytes()
	}
	if result.Table == nil {
		return buf.Bytes()
	}

	tt := result.Table
	fmt.Fprintf(&buf, "word_bytes: %d\n", tt.WordBytes)
	fmt.Fprintf(&buf, "max_lookahead: %v\n", tt.MaxLookahead)
	fmt.Fprintf(&buf, "states: %d\n", tt.StateCount)
	fmt.Fprintf(&buf, "transitions: %d\n", tt.TransitionCount())
	buf.WriteString(tt.Repr())
	return buf.Bytes()
}

// RunWithGolden executes a scenario and compares the outcome against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, Snapshot(scenarioName, result))
}
