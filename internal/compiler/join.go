package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/framejoin/internal/ir"
)

//go:embed schema.cue
var joinSchema string

// CompileJoin parses a CUE value into a JoinSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the join struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`join: eth: { word_bytes: 8, streams: [...] }`)
//	spec, err := CompileJoin(v.LookupPath(cue.ParsePath("join.eth")))
//
// The value is checked against the #Join schema first, so type errors
// carry source positions.
func CompileJoin(v cue.Value) (*ir.JoinSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(joinSchema, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("join schema: %w", err)
	}
	checked := schema.LookupPath(cue.ParsePath("#Join")).Unify(v)
	if err := checked.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.JoinSpec{}

	// Parse join name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	var err error
	if spec.WordBytes, err = intField(checked, "word_bytes"); err != nil {
		return nil, err
	}

	// out_offset is optional and defaults to 0
	if off := checked.LookupPath(cue.ParsePath("out_offset")); off.Exists() {
		if spec.OutOffset, err = intValue(off, "out_offset"); err != nil {
			return nil, err
		}
	}

	spec.Streams, err = parseStreams(checked)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseStreams extracts the ordered input streams.
func parseStreams(v cue.Value) ([]ir.StreamSpec, error) {
	iter, err := v.LookupPath(cue.ParsePath("streams")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var streams []ir.StreamSpec
	for i := 0; iter.Next(); i++ {
		sv := iter.Value()
		field := func(name string) string { return fmt.Sprintf("streams[%d].%s", i, name) }

		var s ir.StreamSpec
		if s.ElementBytes, err = intValue(sv.LookupPath(cue.ParsePath("element_bytes")), field("element_bytes")); err != nil {
			return nil, err
		}
		if s.LenMin, err = intValue(sv.LookupPath(cue.ParsePath("len_min")), field("len_min")); err != nil {
			return nil, err
		}
		if s.LenMax, err = parseLenMax(sv.LookupPath(cue.ParsePath("len_max")), field("len_max")); err != nil {
			return nil, err
		}

		if offs := sv.LookupPath(cue.ParsePath("start_offsets")); offs.Exists() {
			offIter, err := offs.List()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for j := 0; offIter.Next(); j++ {
				o, err := intValue(offIter.Value(), fmt.Sprintf("%s[%d]", field("start_offsets"), j))
				if err != nil {
					return nil, err
				}
				s.StartOffsets = append(s.StartOffsets, o)
			}
		}
		streams = append(streams, s)
	}
	return streams, nil
}

// parseLenMax accepts an int or "inf".
func parseLenMax(v cue.Value, field string) (int, error) {
	if s, err := v.String(); err == nil {
		if s == "inf" {
			return ir.Unbounded, nil
		}
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an int or \"inf\", got %q", s),
			Pos:     v.Pos(),
		}
	}
	return intValue(v, field)
}

func intField(v cue.Value, name string) (int, error) {
	return intValue(v.LookupPath(cue.ParsePath(name)), name)
}

func intValue(v cue.Value, field string) (int, error) {
	if !v.Exists() {
		return 0, &CompileError{
			Field:   field,
			Message: "is required",
			Pos:     v.Pos(),
		}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be an int: %v", err),
			Pos:     v.Pos(),
		}
	}
	return int(n), nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
