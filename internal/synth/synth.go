package synth

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/framejoin/internal/align"
	"github.com/roach88/framejoin/internal/ir"
)

// Synthesizer builds transition tables from byte routings.
// A Synthesizer holds no per-run state and may be shared.
type Synthesizer struct {
	logger *slog.Logger
}

// New creates a Synthesizer. A nil logger discards output.
func New(logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Synthesizer{logger: logger}
}

// Synthesize runs req through a Synthesizer that discards logs.
func Synthesize(req Request) (*ir.Table, error) {
	return New(nil).Synthesize(req)
}

// FromJoinSpec resolves the routing of spec and synthesizes its table.
func FromJoinSpec(spec ir.JoinSpec) (*ir.Table, error) {
	return New(nil).FromJoinSpec(spec)
}

// FromJoinSpec resolves the routing of spec and synthesizes its table.
func (s *Synthesizer) FromJoinSpec(spec ir.JoinSpec) (*ir.Table, error) {
	req, err := RequestFor(spec)
	if err != nil {
		return nil, err
	}
	return s.Synthesize(req)
}

// RequestFor builds the synthesis request of a join specification.
func RequestFor(spec ir.JoinSpec) (Request, error) {
	routing, err := align.New(spec.WordBytes, spec.OutOffset).Resolve(spec.Streams)
	if err != nil {
		return Request{}, fmt.Errorf("resolve %q: %w", spec.Name, err)
	}
	return Request{
		WordBytes:    spec.WordBytes,
		StreamCount:  len(spec.Streams),
		Routing:      routing,
		CanBeZeroLen: align.CanProduceZeroLenFrame(spec.Streams),
	}, nil
}

// Synthesize computes the transition table of req. Any error aborts the
// run; no partial table is returned.
func (s *Synthesizer) Synthesize(req Request) (*ir.Table, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	substates, maxLookahead, err := BuildSubstates(req)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("substates built",
		"substates", len(substates),
		"max_lookahead", maxLookahead)

	tt := ir.NewTable(req.WordBytes, maxLookahead, req.StreamCount)
	relict := map[ir.StateLabel]bool{}
	for _, ss := range substates {
		tt.Add(deriveTransition(req, tt.Shape(), ss, relict))
	}

	if added := addZeroLengthTransitions(req, tt); added > 0 {
		s.logger.Debug("zero-length transitions added", "count", added)
	}

	before := tt.TransitionCount()
	tt.FilterUnique()
	s.logger.Debug("transitions deduplicated",
		"before", before,
		"after", tt.TransitionCount())

	if err := AssertDeterministic(tt); err != nil {
		return nil, err
	}
	s.logger.Info("table synthesized",
		"states", tt.StateCount,
		"transitions", tt.TransitionCount())
	return tt, nil
}

// AssertDeterministic fails if two edges of one state cannot be told apart
// by their known input fields.
func AssertDeterministic(tt *ir.Table) error {
	if st, a, b, ok := tt.FindAmbiguous(); ok {
		return &NonDeterministicTransitionError{
			State: st,
			A:     tt.States[st][a],
			B:     tt.States[st][b],
		}
	}
	return nil
}

// deriveTransition builds the edge of one substate. relict collects the
// labels whose first input word continues from the previous output word;
// it is written for successors and read for ss.
func deriveTransition(req Request, shape ir.Shape, ss *Substate, relict map[ir.StateLabel]bool) *ir.Transition {
	wb := req.WordBytes
	next := ss.Successor()
	nextState := 0
	if next != nil {
		nextState = next.HardwareState()
	}
	tr := ir.NewTransition(shape, ss.HardwareState(), nextState, next == nil)

	var prev Output
	for outLane, o := range ss.Outputs {
		if !o.Valid {
			prev = o
			continue
		}
		isLastLane := outLane == wb-1

		in := &tr.Input[o.Stream][o.Time]
		in.Keep[o.Lane] = ir.Hi
		in.Last = ir.Bit(o.FromLastWord)
		tr.OutByteMuxSel[outLane] = o.mux()
		tr.InputRd[o.Stream] = true
		// consumed this cycle
		tr.InputKeepMask[o.Stream][o.Time][o.Lane] = false
		tr.OutputKeep[outLane] = true

		var nextO Output
		switch {
		case !isLastLane:
			nextO = ss.Outputs[outLane+1]
		case next != nil:
			nextO = next.Outputs[0]
		}

		continuing := isLastLane && next != nil &&
			nextByteOfSameInput(o, nextO) && o.Lane != wb-1
		if continuing {
			relict[next.Label] = true
		}

		firstIn := differentInput(prev, o)
		lastIn := differentInput(o, nextO)

		if lastIn {
			nextInput := req.StreamCount
			if nextO.Valid {
				nextInput = nextO.Stream
			}
			// streams in between delivered an empty frame
			for skipped := o.Stream + 1; skipped < nextInput; skipped++ {
				tr.ConsumeZeroLength(skipped)
			}
			if !continuing && nextO.Valid && req.zeroLen(nextInput) {
				// the next stream has data, which tells this edge apart
				// from one skipping it with an empty frame
				tr.Input[nextO.Stream][nextO.Time].Keep[nextO.Lane] = ir.Hi
			}
		}

		if firstIn {
			for i := 0; i < o.Lane; i++ {
				in.Keep[i] = ir.Lo
			}
		}

		if (lastIn || continuing || isLastLane) &&
			!(o.FromLastWord && lastIn && o.Lane == wb-1) {
			nextKeep := !o.FromLastWord || continuing
			t := o.Time
			if o.Lane == wb-1 {
				// the pipeline shifts
				t++
			}
			if regs := tr.Input[o.Stream]; t < len(regs) {
				regs[t].Keep[(o.Lane+1)%wb] = ir.Bit(nextKeep)
			}
		}

		prev = o
	}

	for stream, regs := range tr.Input {
		for t, reg := range regs {
			for lane, k := range reg.Keep {
				if k.IsLo() {
					tr.InputKeepMask[stream][t][lane] = false
				}
			}
		}
	}

	// relict only matters on a word carrying last: it separates the start
	// of a single word frame from a partially consumed last word
	if o, ok := ss.firstOutput(); ok {
		v := &tr.Input[o.Stream][o.Time]
		if v.Last.IsHi() {
			v.Relict = ir.Bit(relict[ss.Label])
		}
	}
	return tr
}

// addZeroLengthTransitions covers frames in which a prefix of streams was
// empty. Edges derived from the lane walk leave the state of the lowest
// stream with data, so runs starting with empty streams 0..k-1 need clones
// of the state k edges leaving state 0. It returns the number of edges
// added.
func addZeroLengthTransitions(req Request, tt *ir.Table) int {
	if !req.zeroLen(0) {
		return 0
	}
	prefix := req.zeroLenPrefix()
	added := 0

	for orig := 1; orig < min(prefix+1, req.StreamCount); orig++ {
		for _, tr := range tt.States[orig] {
			n := tr.Clone()
			n.State = 0
			for s := 0; s < tr.State; s++ {
				n.ConsumeZeroLength(s)
			}
			tt.Add(n)
			added++
		}
	}

	if prefix == req.StreamCount {
		// no substate has zero used output lanes, so the frame made of
		// empty frames only never comes out of the lane walk
		tr := ir.NewTransition(tt.Shape(), 0, 0, true)
		for s := 0; s < req.StreamCount; s++ {
			tr.ConsumeZeroLength(s)
		}
		tt.Add(tr)
		added++
	}
	return added
}
