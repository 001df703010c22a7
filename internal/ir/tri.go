package ir

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tri is a three-valued bit. The zero value is X (don't care).
type Tri uint8

const (
	X  Tri = iota // don't care, matches anything
	Lo            // known 0
	Hi            // known 1
)

// Bit converts a bool to a known Tri.
func Bit(b bool) Tri {
	if b {
		return Hi
	}
	return Lo
}

// Known reports whether t carries a value.
func (t Tri) Known() bool {
	return t != X
}

// IsHi reports whether t is a known 1. X is not Hi.
func (t Tri) IsHi() bool {
	return t == Hi
}

// IsLo reports whether t is a known 0. X is not Lo.
func (t Tri) IsLo() bool {
	return t == Lo
}

// Conflicts reports whether both values are known and disagree.
func (t Tri) Conflicts(o Tri) bool {
	return t.Known() && o.Known() && t != o
}

// rank orders Lo < Hi < X so that don't-care sorts last.
func (t Tri) rank() int {
	switch t {
	case Lo:
		return 0
	case Hi:
		return 1
	default:
		return 2
	}
}

// Compare returns -1, 0 or 1 using the order Lo < Hi < X.
func (t Tri) Compare(o Tri) int {
	return cmpInt(t.rank(), o.rank())
}

func (t Tri) String() string {
	switch t {
	case Lo:
		return "0"
	case Hi:
		return "1"
	default:
		return "X"
	}
}

// ParseTri parses "0", "1" or "X".
func ParseTri(s string) (Tri, error) {
	switch s {
	case "0":
		return Lo, nil
	case "1":
		return Hi, nil
	case "X", "x":
		return X, nil
	}
	return X, fmt.Errorf("invalid tri-state value %q", s)
}

// MarshalJSON encodes known values as 0/1 and X as the string "X".
func (t Tri) MarshalJSON() ([]byte, error) {
	if !t.Known() {
		return []byte(`"X"`), nil
	}
	return []byte(t.String()), nil
}

// UnmarshalJSON accepts 0, 1 or "X".
func (t *Tri) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := ParseTri(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	}
	v, err := ParseTri(string(data))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// UnmarshalYAML accepts 0, 1 or X as a scalar.
func (t *Tri) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: tri-state value must be a scalar", value.Line)
	}
	v, err := ParseTri(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*t = v
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
