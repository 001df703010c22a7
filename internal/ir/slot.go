package ir

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// RegisterSlot holds the per-byte-lane keep bits and the frame flags of one
// pipelined input register (one stream at one time offset).
type RegisterSlot struct {
	Keep   []Tri `json:"keep" yaml:"keep"`
	Relict Tri   `json:"relict" yaml:"relict"`
	Last   Tri   `json:"last" yaml:"last"`
}

// NewRegisterSlot returns a slot where every field is don't-care.
func NewRegisterSlot(wordBytes int) RegisterSlot {
	return RegisterSlot{Keep: make([]Tri, wordBytes)}
}

// Clone returns a deep copy.
func (s RegisterSlot) Clone() RegisterSlot {
	return RegisterSlot{
		Keep:   append([]Tri(nil), s.Keep...),
		Relict: s.Relict,
		Last:   s.Last,
	}
}

// MarkZeroLength sets the slot to describe a consumed zero-byte frame.
func (s *RegisterSlot) MarkZeroLength() {
	for i := range s.Keep {
		s.Keep[i] = Lo
	}
	s.Last = Hi
	s.Relict = Hi
}

// ExactlyDifferent reports whether some field is known in both slots and
// disagrees. X matches anything.
func (s RegisterSlot) ExactlyDifferent(o RegisterSlot) bool {
	if len(s.Keep) != len(o.Keep) {
		panic(fmt.Sprintf("register slot width mismatch: %d != %d", len(s.Keep), len(o.Keep)))
	}
	for i := range s.Keep {
		if s.Keep[i].Conflicts(o.Keep[i]) {
			return true
		}
	}
	return s.Relict.Conflicts(o.Relict) || s.Last.Conflicts(o.Last)
}

// Compare orders slots field by field: keep, relict, last.
func (s RegisterSlot) Compare(o RegisterSlot) int {
	if c := compareTris(s.Keep, o.Keep); c != 0 {
		return c
	}
	if c := s.Relict.Compare(o.Relict); c != 0 {
		return c
	}
	return s.Last.Compare(o.Last)
}

// Equal reports exact equality (X equals only X).
func (s RegisterSlot) Equal(o RegisterSlot) bool {
	return s.Compare(o) == 0
}

func compareTris(a, b []Tri) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := a[i].Compare(b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

// MuxSel selects the input byte driving one output byte lane.
// An invalid MuxSel means the output lane is not driven.
type MuxSel struct {
	Stream int
	Time   int
	Lane   int
	Valid  bool
}

// Mux returns a valid selector.
func Mux(stream, time, lane int) MuxSel {
	return MuxSel{Stream: stream, Time: time, Lane: lane, Valid: true}
}

// Compare orders selectors by (stream, time, lane); invalid sorts last.
func (m MuxSel) Compare(o MuxSel) int {
	if !m.Valid || !o.Valid {
		return cmpBool(!m.Valid, !o.Valid)
	}
	if c := cmpInt(m.Stream, o.Stream); c != 0 {
		return c
	}
	if c := cmpInt(m.Time, o.Time); c != 0 {
		return c
	}
	return cmpInt(m.Lane, o.Lane)
}

func (m MuxSel) String() string {
	if !m.Valid {
		return "X"
	}
	return fmt.Sprintf("[%d, %d, %d]", m.Stream, m.Time, m.Lane)
}

// MarshalJSON encodes a valid selector as [stream, time, lane] and an
// invalid one as "X".
func (m MuxSel) MarshalJSON() ([]byte, error) {
	if !m.Valid {
		return []byte(`"X"`), nil
	}
	return json.Marshal([3]int{m.Stream, m.Time, m.Lane})
}

// UnmarshalJSON is the inverse of MarshalJSON. null is accepted as "X".
func (m *MuxSel) UnmarshalJSON(data []byte) error {
	var s string
	if string(data) == "null" || json.Unmarshal(data, &s) == nil {
		if s != "" && s != "X" {
			return fmt.Errorf("invalid mux selector %q", s)
		}
		*m = MuxSel{}
		return nil
	}
	var v [3]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid mux selector: %w", err)
	}
	*m = Mux(v[0], v[1], v[2])
	return nil
}

// UnmarshalYAML accepts X or a sequence [stream, time, lane]. yaml.v3 never
// calls it for null; ParseTransition maps null items to X itself.
func (m *MuxSel) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "X" {
			*m = MuxSel{}
			return nil
		}
		return fmt.Errorf("line %d: invalid mux selector %q", value.Line, value.Value)
	case yaml.SequenceNode:
		if len(value.Content) != 3 {
			return fmt.Errorf("line %d: mux selector needs 3 items, got %d", value.Line, len(value.Content))
		}
		var v [3]int
		for i, n := range value.Content {
			x, err := strconv.Atoi(n.Value)
			if err != nil {
				return fmt.Errorf("line %d: mux selector item %d: %w", n.Line, i, err)
			}
			v[i] = x
		}
		*m = Mux(v[0], v[1], v[2])
		return nil
	}
	return fmt.Errorf("line %d: invalid mux selector", value.Line)
}
