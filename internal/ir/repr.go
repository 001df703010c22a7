package ir

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// transitionRepr is the decoded form of Transition.Repr.
type transitionRepr struct {
	St       string           `yaml:"st"`
	In       [][]RegisterSlot `yaml:"in"`
	KeepMask [][]Bits         `yaml:"in.keep_mask"`
	Rd       Bits             `yaml:"in.rd"`
	OutKeep  Bits             `yaml:"out.keep"`
	OutMux   []yaml.Node      `yaml:"out.mux"`
	OutLast  int              `yaml:"out.last"`
}

// Repr renders the edge as a single-line YAML flow mapping:
//
//	{st: "0->0", in: [[{keep: [0, 1], relict: 0, last: 1}]], in.keep_mask: [[[0, 0]]],
//	 in.rd: [1], out.keep: [1, 0], out.mux: [[0, 0, 1], X], out.last: 1}
//
// X marks a don't-care value or an undriven output byte.
func (t *Transition) Repr() string {
	var b strings.Builder
	fmt.Fprintf(&b, "{st: %q, in: [", t.Label())
	for i, regs := range t.Input {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, r := range regs {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.Repr())
		}
		b.WriteByte(']')
	}
	b.WriteString("], in.keep_mask: [")
	for i, masks := range t.InputKeepMask {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		for j, m := range masks {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(m.String())
		}
		b.WriteByte(']')
	}
	b.WriteString("], in.rd: ")
	b.WriteString(t.InputRd.String())
	b.WriteString(", out.keep: ")
	b.WriteString(t.OutputKeep.String())
	b.WriteString(", out.mux: [")
	for i, m := range t.OutByteMuxSel {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(m.String())
	}
	b.WriteString("], out.last: ")
	b.WriteString(bitString(t.Last))
	b.WriteByte('}')
	return b.String()
}

// Repr renders the slot as {keep: [...], relict: r, last: l}.
func (s RegisterSlot) Repr() string {
	keep := make([]string, len(s.Keep))
	for i, k := range s.Keep {
		keep[i] = k.String()
	}
	return fmt.Sprintf("{keep: [%s], relict: %s, last: %s}",
		strings.Join(keep, ", "), s.Relict, s.Last)
}

// ParseTransition parses the output of Transition.Repr.
// Unknown keys are rejected. Widths are taken from the text itself.
func ParseTransition(s string) (*Transition, error) {
	var r transitionRepr
	dec := yaml.NewDecoder(strings.NewReader(s))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("parse transition: %w", err)
	}

	state, next, err := parseStateLabel(r.St)
	if err != nil {
		return nil, fmt.Errorf("parse transition: %w", err)
	}
	if len(r.In) != len(r.KeepMask) || len(r.In) != len(r.Rd) {
		return nil, fmt.Errorf("parse transition: stream count mismatch: in=%d in.keep_mask=%d in.rd=%d",
			len(r.In), len(r.KeepMask), len(r.Rd))
	}
	mux, err := decodeMux(r.OutMux)
	if err != nil {
		return nil, fmt.Errorf("parse transition: %w", err)
	}
	width := len(r.OutKeep)
	if len(mux) != width {
		return nil, fmt.Errorf("parse transition: output width mismatch: out.keep=%d out.mux=%d",
			width, len(mux))
	}
	for i := range r.In {
		if len(r.In[i]) != len(r.KeepMask[i]) {
			return nil, fmt.Errorf("parse transition: stream %d lookahead mismatch: in=%d in.keep_mask=%d",
				i, len(r.In[i]), len(r.KeepMask[i]))
		}
		for t := range r.In[i] {
			if len(r.In[i][t].Keep) != width || len(r.KeepMask[i][t]) != width {
				return nil, fmt.Errorf("parse transition: stream %d slot %d keep width mismatch: keep=%d keep_mask=%d out.keep=%d",
					i, t, len(r.In[i][t].Keep), len(r.KeepMask[i][t]), width)
			}
		}
	}
	if r.OutLast != 0 && r.OutLast != 1 {
		return nil, fmt.Errorf("parse transition: out.last must be 0 or 1, got %d", r.OutLast)
	}

	return &Transition{
		State:         state,
		StateNext:     next,
		Input:         r.In,
		InputKeepMask: r.KeepMask,
		InputRd:       r.Rd,
		OutputKeep:    r.OutKeep,
		OutByteMuxSel: mux,
		Last:          r.OutLast == 1,
	}, nil
}

// MustParseTransition is like ParseTransition but panics on error.
// Use only in tests or with literal input.
func MustParseTransition(s string) *Transition {
	t, err := ParseTransition(s)
	if err != nil {
		panic(err)
	}
	return t
}

// decodeMux decodes out.mux item by item. yaml.v3 skips null items when
// decoding straight into []MuxSel, so null is mapped to X here.
func decodeMux(nodes []yaml.Node) ([]MuxSel, error) {
	mux := make([]MuxSel, len(nodes))
	for i := range nodes {
		if nodes[i].ShortTag() == "!!null" {
			continue
		}
		if err := nodes[i].Decode(&mux[i]); err != nil {
			return nil, fmt.Errorf("out.mux[%d]: %w", i, err)
		}
	}
	return mux, nil
}

func parseStateLabel(s string) (int, int, error) {
	from, to, ok := strings.Cut(s, "->")
	if !ok {
		return 0, 0, fmt.Errorf("invalid state label %q: want \"a->b\"", s)
	}
	a, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid state label %q: %w", s, err)
	}
	b, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid state label %q: %w", s, err)
	}
	return a, b, nil
}

// Repr renders every state followed by its edges, one per line.
func (tt *Table) Repr() string {
	var b bytes.Buffer
	for i, st := range tt.States {
		fmt.Fprintf(&b, "state %d:\n", i)
		for _, t := range st {
			fmt.Fprintf(&b, "  %s\n", t.Repr())
		}
	}
	return b.String()
}
