// Package ir provides the data model shared by the frame-join synthesizer,
// its input resolver and its consumers.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Don't-care values are a dedicated Tri state, never an overloaded zero value
//   - Records carry no reference to their owning Table; widths come from Shape
//   - Canonical JSON is the only serialization used for content hashes
//   - The repr form of a Transition is a YAML flow mapping and round-trips
package ir
