// Package synth turns a byte routing into the join FSM transition table.
//
// Synthesis runs in four steps:
//
//  1. Substates: every routing fact is written into the substate of its
//     label (one output word of one frame format). An output lane written
//     twice is a RoutingConflictError.
//  2. Edges: substates are visited in label order. Each becomes one
//     Transition leaving the hardware state of its lowest stream; the lane
//     walk derives register keep/last/relict requirements, keep masks, read
//     enables and the output mux.
//  3. Zero-length frames: when streams 0..k-1 can produce empty frames,
//     edges of states 1..k are cloned into state 0 with those streams
//     consuming an empty frame first. If every stream can be empty an
//     all-empty edge 0->0 is added.
//  4. Edges are sorted and deduplicated, then every pair inside one state
//     must differ in a known input field or synthesis fails with
//     NonDeterministicTransitionError.
//
// The zero-length prefix is contiguous from stream 0: the first stream
// that cannot be empty ends it, even if later streams can.
package synth
