package ir

import "sort"

// Table is the synthesized join FSM: for every hardware state the list of
// edges leaving it. Hardware state i is "stream i owns the output word".
type Table struct {
	WordBytes    int              `json:"word_bytes"`
	MaxLookahead []int            `json:"max_lookahead"`
	StateCount   int              `json:"state_count"`
	States       [][]*Transition `json:"states"`
}

// NewTable returns an empty table with stateCount states.
func NewTable(wordBytes int, maxLookahead []int, stateCount int) *Table {
	states := make([][]*Transition, stateCount)
	for i := range states {
		states[i] = []*Transition{}
	}
	return &Table{
		WordBytes:    wordBytes,
		MaxLookahead: append([]int(nil), maxLookahead...),
		StateCount:   stateCount,
		States:       states,
	}
}

// Shape returns the widths records of this table are built with.
func (tt *Table) Shape() Shape {
	return Shape{WordBytes: tt.WordBytes, MaxLookahead: tt.MaxLookahead}
}

// StreamCount returns the number of input streams.
func (tt *Table) StreamCount() int {
	return len(tt.MaxLookahead)
}

// Add appends t to the edges of t.State.
func (tt *Table) Add(t *Transition) {
	tt.States[t.State] = append(tt.States[t.State], t)
}

// TransitionCount returns the number of edges over all states.
func (tt *Table) TransitionCount() int {
	n := 0
	for _, st := range tt.States {
		n += len(st)
	}
	return n
}

// FilterUnique sorts the edges of every state and drops duplicates.
// Applying it twice yields the same table as applying it once.
func (tt *Table) FilterUnique() {
	for i, st := range tt.States {
		sort.SliceStable(st, func(a, b int) bool {
			return st[a].Compare(st[b]) < 0
		})
		uniq := st[:0]
		for _, t := range st {
			if len(uniq) > 0 && uniq[len(uniq)-1].Equal(t) {
				continue
			}
			uniq = append(uniq, t)
		}
		tt.States[i] = uniq
	}
}

// FindAmbiguous returns the first pair of edges in one state whose inputs
// cannot be told apart. ok is false if every state is deterministic.
func (tt *Table) FindAmbiguous() (state, a, b int, ok bool) {
	for s, st := range tt.States {
		for i := range st {
			for j := i + 1; j < len(st); j++ {
				if !st[i].InputsExactlyDifferent(st[j]) {
					return s, i, j, true
				}
			}
		}
	}
	return 0, 0, 0, false
}

// Equal reports whether both tables have the same widths and edges.
func (tt *Table) Equal(o *Table) bool {
	if tt.WordBytes != o.WordBytes || tt.StateCount != o.StateCount ||
		len(tt.MaxLookahead) != len(o.MaxLookahead) || len(tt.States) != len(o.States) {
		return false
	}
	for i := range tt.MaxLookahead {
		if tt.MaxLookahead[i] != o.MaxLookahead[i] {
			return false
		}
	}
	for i := range tt.States {
		if len(tt.States[i]) != len(o.States[i]) {
			return false
		}
		for j := range tt.States[i] {
			if !tt.States[i][j].Equal(o.States[i][j]) {
				return false
			}
		}
	}
	return true
}
