package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/framejoin/internal/ir"
	"github.com/roach88/framejoin/internal/synth"
)

// Scenario defines a synthesis test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Join is the join configuration to resolve and synthesize.
	// Exactly one of Join and Request must be set.
	Join *ir.JoinSpec `yaml:"join,omitempty"`

	// Request feeds a routing to the synthesizer directly, skipping the
	// alignment resolver.
	Request *RequestSpec `yaml:"request,omitempty"`

	// Expect lists the expected edges of every state in repr form, in
	// table order. Omit to skip the comparison.
	Expect [][]string `yaml:"expect,omitempty"`

	// ExpectError names the synthesis failure the scenario must produce.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions are checked against the synthesized table.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// RequestSpec is the YAML form of a synth.Request. The stream count is
// the length of Routing.
type RequestSpec struct {
	WordBytes    int        `yaml:"word_bytes"`
	Routing      ir.Routing `yaml:"routing"`
	CanBeZeroLen []bool     `yaml:"can_be_zero_len,omitempty"`
}

// SynthRequest converts r into a synthesizer request.
func (r RequestSpec) SynthRequest() synth.Request {
	return synth.Request{
		WordBytes:    r.WordBytes,
		StreamCount:  len(r.Routing),
		Routing:      r.Routing,
		CanBeZeroLen: r.CanBeZeroLen,
	}
}

// Expected error kinds.
const (
	ErrorRoutingConflict  = "routing_conflict"
	ErrorNonDeterministic = "non_deterministic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	// Reject unknown fields (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string)
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("%s: scenario name %q already used by %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Join == nil) == (s.Request == nil) {
		return fmt.Errorf("exactly one of join and request is required")
	}

	if s.Request != nil {
		if len(s.Request.Routing) == 0 {
			return fmt.Errorf("request.routing must be non-empty")
		}
		if err := s.Request.SynthRequest().Validate(); err != nil {
			return fmt.Errorf("request: %w", err)
		}
	}

	switch s.ExpectError {
	case "", ErrorRoutingConflict, ErrorNonDeterministic:
	default:
		return fmt.Errorf("expect_error: unknown error kind %q", s.ExpectError)
	}

	if s.ExpectError != "" && (len(s.Expect) > 0 || len(s.Assertions) > 0) {
		return fmt.Errorf("expect_error excludes expect and assertions")
	}

	// Expected edges must parse
	for i, state := range s.Expect {
		for j, repr := range state {
			if _, err := ir.ParseTransition(repr); err != nil {
				return fmt.Errorf("expect[%d][%d]: %w", i, j, err)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}
