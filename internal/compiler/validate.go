package compiler

import (
	"fmt"

	"github.com/roach88/framejoin/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// JoinSpec errors (E101-E109)
	ErrWordBytes     = "E101" // word_bytes must be positive
	ErrNoStreams     = "E102" // at least one stream required
	ErrOutOffset     = "E103" // out_offset outside the word
	ErrDuplicateName = "E104" // duplicate join name
	ErrMissingName   = "E105" // join name is empty

	// StreamSpec errors (E110-E119)
	ErrElementBytes    = "E110" // element_bytes must be positive
	ErrLenRange        = "E111" // len_min/len_max out of order or negative
	ErrStartOffset     = "E112" // start offset outside the word
	ErrDuplicateOffset = "E113" // start offset listed twice
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports JoinSpec and slices of JoinSpec (checked for duplicate names).
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.JoinSpec:
		return validateJoinSpec(spec)
	case ir.JoinSpec:
		return validateJoinSpec(&spec)
	case []ir.JoinSpec:
		return validateJoinSet(spec)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateJoinSet(specs []ir.JoinSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i := range specs {
		if seen[specs[i].Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("join[%d].name", i),
				Message: fmt.Sprintf("duplicate join name: %q", specs[i].Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[specs[i].Name] = true
		errs = append(errs, validateJoinSpec(&specs[i])...)
	}
	return errs
}

// validateJoinSpec checks the rules the CUE schema cannot express.
func validateJoinSpec(spec *ir.JoinSpec) []ValidationError {
	var errs []ValidationError

	if spec.Name == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "join name is required",
			Code:    ErrMissingName,
		})
	}

	if spec.WordBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "word_bytes",
			Message: fmt.Sprintf("must be positive, got %d", spec.WordBytes),
			Code:    ErrWordBytes,
		})
	} else if spec.OutOffset < 0 || spec.OutOffset >= spec.WordBytes {
		errs = append(errs, ValidationError{
			Field:   "out_offset",
			Message: fmt.Sprintf("%d is outside the %d byte word", spec.OutOffset, spec.WordBytes),
			Code:    ErrOutOffset,
		})
	}

	if len(spec.Streams) == 0 {
		errs = append(errs, ValidationError{
			Field:   "streams",
			Message: "at least one stream is required",
			Code:    ErrNoStreams,
		})
	}

	for i, s := range spec.Streams {
		errs = append(errs, validateStream(i, s, spec.WordBytes)...)
	}
	return errs
}

func validateStream(i int, s ir.StreamSpec, wordBytes int) []ValidationError {
	var errs []ValidationError
	field := func(name string) string { return fmt.Sprintf("streams[%d].%s", i, name) }

	if s.ElementBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   field("element_bytes"),
			Message: fmt.Sprintf("must be positive, got %d", s.ElementBytes),
			Code:    ErrElementBytes,
		})
	}

	switch {
	case s.LenMin < 0:
		errs = append(errs, ValidationError{
			Field:   field("len_min"),
			Message: fmt.Sprintf("must not be negative, got %d", s.LenMin),
			Code:    ErrLenRange,
		})
	case !s.IsUnbounded() && s.LenMax < s.LenMin:
		errs = append(errs, ValidationError{
			Field:   field("len_max"),
			Message: fmt.Sprintf("%d is below len_min %d", s.LenMax, s.LenMin),
			Code:    ErrLenRange,
		})
	}

	seen := make(map[int]bool)
	for j, o := range s.StartOffsets {
		if wordBytes > 0 && (o < 0 || o >= wordBytes) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field("start_offsets"), j),
				Message: fmt.Sprintf("%d is outside the %d byte word", o, wordBytes),
				Code:    ErrStartOffset,
			})
		}
		if seen[o] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field("start_offsets"), j),
				Message: fmt.Sprintf("offset %d listed twice", o),
				Code:    ErrDuplicateOffset,
			})
		}
		seen[o] = true
	}
	return errs
}
