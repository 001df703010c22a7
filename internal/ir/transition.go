package ir

import "fmt"

// Shape carries the global widths a Transition is built against.
// It replaces a back-reference from records to their owning Table.
type Shape struct {
	WordBytes    int
	MaxLookahead []int // per stream; stream i has MaxLookahead[i]+1 register slots
}

// StreamCount returns the number of input streams.
func (s Shape) StreamCount() int {
	return len(s.MaxLookahead)
}

// Transition is one edge of the join FSM.
//
// Input[stream][time] describes what the register of the stream at that
// lookahead depth must contain for the edge to be taken. InputKeepMask has
// the same layout and is ANDed into the register keep when the pipeline
// shifts: InputKeepMask[0][0] = [1, 0] means reg0.in.keep = reg0.out.keep & 0b01.
type Transition struct {
	State         int              `json:"state"`
	StateNext     int              `json:"state_next"`
	Input         [][]RegisterSlot `json:"input"`
	InputKeepMask [][]Bits         `json:"input_keep_mask"`
	InputRd       Bits             `json:"input_rd"`
	OutputKeep    Bits             `json:"output_keep"`
	OutByteMuxSel []MuxSel         `json:"out_byte_mux_sel"`
	Last          bool             `json:"last"`
}

// NewTransition builds an edge with don't-care inputs, all-ones keep masks,
// no input read, no output byte and no mux selection.
func NewTransition(shape Shape, state, stateNext int, last bool) *Transition {
	t := &Transition{
		State:         state,
		StateNext:     stateNext,
		Input:         make([][]RegisterSlot, shape.StreamCount()),
		InputKeepMask: make([][]Bits, shape.StreamCount()),
		InputRd:       make(Bits, shape.StreamCount()),
		OutputKeep:    make(Bits, shape.WordBytes),
		OutByteMuxSel: make([]MuxSel, shape.WordBytes),
		Last:          last,
	}
	for i, maxT := range shape.MaxLookahead {
		t.Input[i] = make([]RegisterSlot, maxT+1)
		t.InputKeepMask[i] = make([]Bits, maxT+1)
		for j := 0; j <= maxT; j++ {
			t.Input[i][j] = NewRegisterSlot(shape.WordBytes)
			t.InputKeepMask[i][j] = Ones(shape.WordBytes)
		}
	}
	return t
}

// Clone returns a deep copy.
func (t *Transition) Clone() *Transition {
	c := &Transition{
		State:         t.State,
		StateNext:     t.StateNext,
		Input:         make([][]RegisterSlot, len(t.Input)),
		InputKeepMask: make([][]Bits, len(t.InputKeepMask)),
		InputRd:       t.InputRd.Clone(),
		OutputKeep:    t.OutputKeep.Clone(),
		OutByteMuxSel: append([]MuxSel(nil), t.OutByteMuxSel...),
		Last:          t.Last,
	}
	for i, regs := range t.Input {
		c.Input[i] = make([]RegisterSlot, len(regs))
		for j, r := range regs {
			c.Input[i][j] = r.Clone()
		}
	}
	for i, masks := range t.InputKeepMask {
		c.InputKeepMask[i] = make([]Bits, len(masks))
		for j, m := range masks {
			c.InputKeepMask[i][j] = m.Clone()
		}
	}
	return c
}

// ConsumeZeroLength marks the first register of stream as holding a
// zero-byte frame which is read and dropped by this edge.
func (t *Transition) ConsumeZeroLength(stream int) {
	t.Input[stream][0].MarkZeroLength()
	t.InputRd[stream] = true
	t.InputKeepMask[stream][0].Clear()
}

// Compare is the total order used to sort and deduplicate edges.
// Fields are compared in declaration order and X sorts after known values.
func (t *Transition) Compare(o *Transition) int {
	if c := cmpInt(t.State, o.State); c != 0 {
		return c
	}
	if c := cmpInt(t.StateNext, o.StateNext); c != 0 {
		return c
	}
	for i := 0; i < len(t.Input) && i < len(o.Input); i++ {
		a, b := t.Input[i], o.Input[i]
		for j := 0; j < len(a) && j < len(b); j++ {
			if c := a[j].Compare(b[j]); c != 0 {
				return c
			}
		}
		if c := cmpInt(len(a), len(b)); c != 0 {
			return c
		}
	}
	if c := cmpInt(len(t.Input), len(o.Input)); c != 0 {
		return c
	}
	for i := 0; i < len(t.InputKeepMask) && i < len(o.InputKeepMask); i++ {
		a, b := t.InputKeepMask[i], o.InputKeepMask[i]
		for j := 0; j < len(a) && j < len(b); j++ {
			if c := a[j].Compare(b[j]); c != 0 {
				return c
			}
		}
		if c := cmpInt(len(a), len(b)); c != 0 {
			return c
		}
	}
	if c := cmpInt(len(t.InputKeepMask), len(o.InputKeepMask)); c != 0 {
		return c
	}
	if c := t.InputRd.Compare(o.InputRd); c != 0 {
		return c
	}
	if c := t.OutputKeep.Compare(o.OutputKeep); c != 0 {
		return c
	}
	for i := 0; i < len(t.OutByteMuxSel) && i < len(o.OutByteMuxSel); i++ {
		if c := t.OutByteMuxSel[i].Compare(o.OutByteMuxSel[i]); c != 0 {
			return c
		}
	}
	if c := cmpInt(len(t.OutByteMuxSel), len(o.OutByteMuxSel)); c != 0 {
		return c
	}
	return cmpBool(t.Last, o.Last)
}

// Equal reports structural equality; X equals only X.
func (t *Transition) Equal(o *Transition) bool {
	return t == o || t.Compare(o) == 0
}

// InputsExactlyDifferent reports whether some register slot of t and o has
// a known field that disagrees. Two edges of one state must satisfy this or
// the hardware could not tell them apart.
func (t *Transition) InputsExactlyDifferent(o *Transition) bool {
	if len(t.Input) != len(o.Input) {
		panic(fmt.Sprintf("transition stream count mismatch: %d != %d", len(t.Input), len(o.Input)))
	}
	for i := range t.Input {
		a, b := t.Input[i], o.Input[i]
		if len(a) != len(b) {
			panic(fmt.Sprintf("stream %d lookahead mismatch: %d != %d", i, len(a), len(b)))
		}
		for j := range a {
			if a[j].ExactlyDifferent(b[j]) {
				return true
			}
		}
	}
	return false
}

// Label returns "state->state_next".
func (t *Transition) Label() string {
	return fmt.Sprintf("%d->%d", t.State, t.StateNext)
}

func (t *Transition) String() string {
	return "<Transition " + t.Repr() + ">"
}
