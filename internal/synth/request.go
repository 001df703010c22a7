package synth

import (
	"fmt"

	"github.com/roach88/framejoin/internal/ir"
)

// Request is the input of a synthesis run.
type Request struct {
	WordBytes   int
	StreamCount int

	// Routing lists the destinations of every input byte, indexed
	// [stream][input lane].
	Routing ir.Routing

	// CanBeZeroLen flags the streams able to produce an empty frame.
	// A nil slice means none can.
	CanBeZeroLen []bool
}

// Validate checks the shape of the request. Problems reported here are
// caller errors found before synthesis starts.
func (r Request) Validate() error {
	if r.WordBytes <= 0 {
		return fmt.Errorf("synth: word bytes must be positive, got %d", r.WordBytes)
	}
	if r.StreamCount <= 0 {
		return fmt.Errorf("synth: stream count must be positive, got %d", r.StreamCount)
	}
	if len(r.Routing) != r.StreamCount {
		return fmt.Errorf("synth: routing has %d streams, want %d", len(r.Routing), r.StreamCount)
	}
	if r.CanBeZeroLen != nil && len(r.CanBeZeroLen) != r.StreamCount {
		return fmt.Errorf("synth: zero-length flags cover %d streams, want %d", len(r.CanBeZeroLen), r.StreamCount)
	}
	for s, lanes := range r.Routing {
		if len(lanes) != r.WordBytes {
			return fmt.Errorf("synth: stream %d routes %d input lanes, want %d", s, len(lanes), r.WordBytes)
		}
		for lane, targets := range lanes {
			for _, t := range targets {
				if t.OutLane < 0 || t.OutLane >= r.WordBytes {
					return fmt.Errorf("synth: stream %d lane %d: output lane %d out of range", s, lane, t.OutLane)
				}
				if t.Time < 0 {
					return fmt.Errorf("synth: stream %d lane %d: negative lookahead %d", s, lane, t.Time)
				}
			}
		}
	}
	return nil
}

func (r Request) zeroLen(stream int) bool {
	return stream < len(r.CanBeZeroLen) && r.CanBeZeroLen[stream]
}

// zeroLenPrefix counts the streams from 0 that can all be empty.
func (r Request) zeroLenPrefix() int {
	n := 0
	for n < r.StreamCount && r.zeroLen(n) {
		n++
	}
	return n
}
