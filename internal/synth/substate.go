package synth

import (
	"fmt"
	"sort"

	"github.com/roach88/framejoin/internal/ir"
)

// Output is the source of one output lane: byte Lane of the register
// Time cycles ahead on stream Stream. The zero value is an unused lane.
type Output struct {
	Stream       int
	Time         int
	Lane         int
	FromLastWord bool
	Valid        bool
}

func (o Output) String() string {
	if !o.Valid {
		return "X"
	}
	return fmt.Sprintf("(stream %d, time %d, lane %d, last %t)", o.Stream, o.Time, o.Lane, o.FromLastWord)
}

func (o Output) mux() ir.MuxSel {
	return ir.Mux(o.Stream, o.Time, o.Lane)
}

// differentInput reports whether a and b do not come from the same stream.
// An unused lane is different from everything.
func differentInput(a, b Output) bool {
	return !a.Valid || !b.Valid || a.Stream != b.Stream
}

// nextByteOfSameInput reports whether b is the input byte right after a.
func nextByteOfSameInput(a, b Output) bool {
	return !differentInput(a, b) && a.Lane == b.Lane-1
}

// Substate collects the sources of the output lanes of one labelled
// output word.
type Substate struct {
	Label   ir.StateLabel
	Outputs []Output

	next *Substate
}

func newSubstate(label ir.StateLabel, wordBytes int) *Substate {
	return &Substate{Label: label, Outputs: make([]Output, wordBytes)}
}

// SetOutput routes input byte inLane of the register time cycles ahead on
// stream to output lane outLane. Each lane can be set once.
func (s *Substate) SetOutput(outLane, stream, time, inLane int, fromLastWord bool) error {
	o := Output{Stream: stream, Time: time, Lane: inLane, FromLastWord: fromLastWord, Valid: true}
	if cur := s.Outputs[outLane]; cur.Valid {
		return &RoutingConflictError{Label: s.Label, OutLane: outLane, Existing: cur, Incoming: o}
	}
	s.Outputs[outLane] = o
	return nil
}

// HardwareState returns the lowest stream feeding this word. The lowest
// stream owns the output word.
func (s *Substate) HardwareState() int {
	st := -1
	for _, o := range s.Outputs {
		if o.Valid && (st < 0 || o.Stream < st) {
			st = o.Stream
		}
	}
	if st < 0 {
		return 0
	}
	return st
}

// Successor returns the substate of the next output word of the same
// frame format, or nil if this is the last word.
func (s *Substate) Successor() *Substate {
	return s.next
}

// firstOutput returns the leftmost used output lane source.
func (s *Substate) firstOutput() (Output, bool) {
	for _, o := range s.Outputs {
		if o.Valid {
			return o, true
		}
	}
	return Output{}, false
}

// BuildSubstates groups the routing facts of req by label. It returns the
// substates in label order, linked to their successors, and the deepest
// lookahead seen per stream.
func BuildSubstates(req Request) ([]*Substate, []int, error) {
	byLabel := map[ir.StateLabel]*Substate{}
	maxLookahead := make([]int, req.StreamCount)

	for _, d := range req.Routing.Destinations() {
		ss, ok := byLabel[d.Label]
		if !ok {
			ss = newSubstate(d.Label, req.WordBytes)
			byLabel[d.Label] = ss
		}
		if err := ss.SetOutput(d.OutLane, d.Stream, d.Time, d.InLane, d.FromLastWord); err != nil {
			return nil, nil, err
		}
		maxLookahead[d.Stream] = max(maxLookahead[d.Stream], d.Time)
	}

	sorted := make([]*Substate, 0, len(byLabel))
	for _, ss := range byLabel {
		ss.next = byLabel[ss.Label.Next()]
		sorted = append(sorted, ss)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Label.Compare(sorted[j].Label) < 0
	})
	return sorted, maxLookahead, nil
}
