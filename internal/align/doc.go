// Package align resolves where every input byte of a frame join ends up.
//
// For each input stream it enumerates a small set of representative frame
// layouts (lengths that change first/last word masks or the presence of
// body words, for every start offset), joins every combination of layouts
// into output words and records, per input byte lane, each
// (output word, lookahead, output lane) destination. The result is the
// ir.Routing consumed by the synthesizer.
package align
