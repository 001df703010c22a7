package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framejoin/internal/ir"
)

func validJoin() ir.JoinSpec {
	return ir.JoinSpec{
		Name:      "ok",
		WordBytes: 2,
		Streams: []ir.StreamSpec{
			{ElementBytes: 1, LenMin: 0, LenMax: ir.Unbounded, StartOffsets: []int{0, 1}},
		},
	}
}

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateValidJoin(t *testing.T) {
	assert.Empty(t, Validate(validJoin()))
	spec := validJoin()
	assert.Empty(t, Validate(&spec))
}

func TestValidateJoinRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.JoinSpec)
		want   []string
	}{
		{"missing name", func(s *ir.JoinSpec) { s.Name = "" }, []string{ErrMissingName}},
		{"word bytes", func(s *ir.JoinSpec) { s.WordBytes = 0; s.Streams[0].StartOffsets = nil }, []string{ErrWordBytes}},
		{"out offset", func(s *ir.JoinSpec) { s.OutOffset = 2 }, []string{ErrOutOffset}},
		{"no streams", func(s *ir.JoinSpec) { s.Streams = nil }, []string{ErrNoStreams}},
		{"element bytes", func(s *ir.JoinSpec) { s.Streams[0].ElementBytes = 0 }, []string{ErrElementBytes}},
		{"negative len_min", func(s *ir.JoinSpec) { s.Streams[0].LenMin = -1 }, []string{ErrLenRange}},
		{"len_max below len_min", func(s *ir.JoinSpec) { s.Streams[0].LenMin = 3; s.Streams[0].LenMax = 2 }, []string{ErrLenRange}},
		{"start offset", func(s *ir.JoinSpec) { s.Streams[0].StartOffsets = []int{0, 2} }, []string{ErrStartOffset}},
		{"duplicate offset", func(s *ir.JoinSpec) { s.Streams[0].StartOffsets = []int{1, 1} }, []string{ErrDuplicateOffset}},
		{"collects all", func(s *ir.JoinSpec) {
			s.Name = ""
			s.Streams[0].ElementBytes = -1
			s.Streams[0].StartOffsets = []int{5}
		}, []string{ErrMissingName, ErrElementBytes, ErrStartOffset}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validJoin()
			tt.mutate(&spec)
			assert.Equal(t, tt.want, codes(Validate(spec)))
		})
	}
}

func TestValidateDuplicateJoinNames(t *testing.T) {
	errs := Validate([]ir.JoinSpec{validJoin(), validJoin()})
	require.Len(t, errs, 1)
	assert.Equal(t, ErrDuplicateName, errs[0].Code)
	assert.Equal(t, "join[1].name", errs[0].Field)
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "word_bytes", Message: "must be positive, got 0", Code: ErrWordBytes}
	assert.Equal(t, "[E101] word_bytes: must be positive, got 0", e.Error())

	e.Line = 3
	assert.Equal(t, "[E101] line 3: word_bytes: must be positive, got 0", e.Error())
}
