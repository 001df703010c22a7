package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bits is a vector of plain bits, rendered as 0/1.
type Bits []bool

// Ones returns n set bits.
func Ones(n int) Bits {
	b := make(Bits, n)
	for i := range b {
		b[i] = true
	}
	return b
}

// Clear sets every bit to 0.
func (b Bits) Clear() {
	for i := range b {
		b[i] = false
	}
}

// Clone returns a copy.
func (b Bits) Clone() Bits {
	return append(Bits(nil), b...)
}

// Compare orders bit vectors lexicographically with 0 < 1.
func (b Bits) Compare(o Bits) int {
	for i := 0; i < len(b) && i < len(o); i++ {
		if c := cmpBool(b[i], o[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(b), len(o))
}

func (b Bits) String() string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = bitString(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// MarshalJSON encodes the vector as a list of 0/1.
func (b Bits) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		if v {
			ints[i] = 1
		}
	}
	return json.Marshal(ints)
}

// UnmarshalJSON accepts a list of 0/1.
func (b *Bits) UnmarshalJSON(data []byte) error {
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	out, err := bitsFromInts(ints)
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// UnmarshalYAML accepts a sequence of 0/1.
func (b *Bits) UnmarshalYAML(value *yaml.Node) error {
	var ints []int
	if err := value.Decode(&ints); err != nil {
		return err
	}
	out, err := bitsFromInts(ints)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*b = out
	return nil
}

func bitsFromInts(ints []int) (Bits, error) {
	out := make(Bits, len(ints))
	for i, v := range ints {
		switch v {
		case 0:
		case 1:
			out[i] = true
		default:
			return nil, fmt.Errorf("bit %d: invalid value %d", i, v)
		}
	}
	return out, nil
}

func bitString(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
