package synth

import (
	"errors"
	"fmt"

	"github.com/roach88/framejoin/internal/ir"
)

// RoutingConflictError reports an output lane of one substate that two
// routing facts write to.
type RoutingConflictError struct {
	Label   ir.StateLabel
	OutLane int

	// Existing is the source already holding the lane, Incoming the one
	// that tried to overwrite it.
	Existing Output
	Incoming Output
}

// Error implements the error interface.
func (e *RoutingConflictError) Error() string {
	return fmt.Sprintf("routing conflict: substate %s output lane %d already driven by %s, cannot route %s",
		e.Label, e.OutLane, e.Existing, e.Incoming)
}

// NonDeterministicTransitionError reports two edges of one hardware state
// whose input conditions overlap.
type NonDeterministicTransitionError struct {
	State int
	A, B  *ir.Transition
}

// Error implements the error interface.
func (e *NonDeterministicTransitionError) Error() string {
	return fmt.Sprintf("non-deterministic transitions in state %d:\n  %s\n  %s",
		e.State, e.A.Repr(), e.B.Repr())
}

// IsRoutingConflict returns true if err is or wraps a RoutingConflictError.
func IsRoutingConflict(err error) bool {
	var rc *RoutingConflictError
	return errors.As(err, &rc)
}

// IsNonDeterministic returns true if err is or wraps a
// NonDeterministicTransitionError.
func IsNonDeterministic(err error) bool {
	var nd *NonDeterministicTransitionError
	return errors.As(err, &nd)
}
