package ir

import "fmt"

// StateLabel identifies a synthesis-time position: output word Word of the
// joined frame format Frame. It is not a hardware state.
type StateLabel struct {
	Frame int `json:"frame" yaml:"frame"`
	Word  int `json:"word" yaml:"word"`
}

// Next returns the label of the following output word of the same frame.
func (l StateLabel) Next() StateLabel {
	return StateLabel{Frame: l.Frame, Word: l.Word + 1}
}

// Compare orders labels by frame, then word.
func (l StateLabel) Compare(o StateLabel) int {
	if c := cmpInt(l.Frame, o.Frame); c != 0 {
		return c
	}
	return cmpInt(l.Word, o.Word)
}

func (l StateLabel) String() string {
	return fmt.Sprintf("(%d, %d)", l.Frame, l.Word)
}

// RouteTarget is one place an input byte goes to: output byte OutLane of
// the word labelled Label, read from the register Time cycles ahead.
type RouteTarget struct {
	Label        StateLabel `json:"label" yaml:"label"`
	Time         int        `json:"time" yaml:"time"`
	OutLane      int        `json:"out_lane" yaml:"out_lane"`
	FromLastWord bool       `json:"from_last_word" yaml:"from_last_word"`
}

// Routing lists the targets of every input byte, indexed
// [stream][input byte lane]. Each inner list is a set.
type Routing [][][]RouteTarget

// NewRouting returns an empty routing for streamCount streams.
func NewRouting(streamCount, wordBytes int) Routing {
	r := make(Routing, streamCount)
	for i := range r {
		r[i] = make([][]RouteTarget, wordBytes)
	}
	return r
}

// ByteDestination is one flattened routing fact.
type ByteDestination struct {
	Label        StateLabel
	Stream       int
	Time         int
	InLane       int
	OutLane      int
	FromLastWord bool
}

// Destinations flattens the routing in stream, input lane, target order.
func (r Routing) Destinations() []ByteDestination {
	var out []ByteDestination
	for stream, lanes := range r {
		for inLane, targets := range lanes {
			for _, t := range targets {
				out = append(out, ByteDestination{
					Label:        t.Label,
					Stream:       stream,
					Time:         t.Time,
					InLane:       inLane,
					OutLane:      t.OutLane,
					FromLastWord: t.FromLastWord,
				})
			}
		}
	}
	return out
}
