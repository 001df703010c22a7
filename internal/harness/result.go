package harness

import (
	"fmt"

	"github.com/roach88/framejoin/internal/ir"
	"github.com/roach88/framejoin/internal/store"
)

// Result is what running one scenario produced.
type Result struct {
	Pass  bool      `json:"pass"`
	Table *ir.Table `json:"table,omitempty"` // nil when synthesis failed

	// SynthError holds the synthesizer's error. An error the scenario
	// expected is kept here without failing it.
	SynthError error `json:"-"`

	// Run is the cache record of a join scenario that synthesized.
	Run *store.Run `json:"-"`

	Errors []string `json:"errors,omitempty"`
}

// NewResult returns a passing Result with no findings.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a finding and fails the result.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

// Failf is AddError with formatting.
func (r *Result) Failf(format string, args ...any) {
	r.AddError(fmt.Sprintf(format, args...))
}
