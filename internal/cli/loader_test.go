package cli

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/framejoin/internal/compiler"
	"github.com/roach88/framejoin/internal/ir"
)

func TestLoadJoins_Testdata(t *testing.T) {
	result, errs := LoadJoins(joinsDir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)

	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Joins, 2)

	first := result.Joins[0]
	assert.Equal(t, "one_byte_unaligned", first.Name)
	assert.Equal(t, 2, first.WordBytes)
	assert.Equal(t, []ir.StreamSpec{{ElementBytes: 1, LenMin: 1, LenMax: 1, StartOffsets: []int{1}}}, first.Streams)

	second := result.Joins[1]
	assert.Equal(t, "two_streams", second.Name)
	require.Len(t, second.Streams, 2)
	assert.Equal(t, 2, second.Streams[1].LenMax)
	assert.Nil(t, second.Streams[1].StartOffsets)
}

func TestLoadJoins_UnboundedLength(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "any.cue", `
package joins

join: any_length: {
	word_bytes: 4
	out_offset: 1
	streams: [{element_bytes: 1, len_min: 0, len_max: "inf"}]
}
`)

	result, errs := LoadJoins(dir, LoadModeFailFast)
	require.Empty(t, errs)
	require.Len(t, result.Joins, 1)
	assert.Equal(t, 1, result.Joins[0].OutOffset)
	assert.Equal(t, ir.Unbounded, result.Joins[0].Streams[0].LenMax)
}

func TestLoadJoins_NotFound(t *testing.T) {
	result, errs := LoadJoins("/nonexistent/specs", LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadJoins_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.cue")
	require.NoError(t, os.WriteFile(path, []byte("package joins"), 0644))

	result, errs := LoadJoins(path, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a directory")
}

func TestLoadJoins_NoFiles(t *testing.T) {
	result, errs := LoadJoins(t.TempDir(), LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoFiles)
}

func TestLoadJoins_NoJoinField(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "other.cue", "package joins\n\nsettings: verbose: true\n")

	result, errs := LoadJoins(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), ErrCodeNoJoins)
}

func TestLoadJoins_CollectAllKeepsValidJoins(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "joins.cue", `
package joins

join: broken: {
	word_bytes: 0
	streams: [{element_bytes: 1, len_min: 1, len_max: 1}]
}

join: fine: {
	word_bytes: 2
	streams: [{element_bytes: 1, len_min: 1, len_max: 1}]
}
`)

	result, errs := LoadJoins(dir, LoadModeCollectAll)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "join.broken")
	require.Len(t, result.Joins, 1)
	assert.Equal(t, "fine", result.Joins[0].Name)
}

func TestLoadJoins_FailFastStopsAtFirstError(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "joins.cue", `
package joins

join: broken: {
	word_bytes: 2
	streams: [{element_bytes: 1, len_min: 1, len_max: "forever"}]
}

join: fine: {
	word_bytes: 2
	streams: [{element_bytes: 1, len_min: 1, len_max: 1}]
}
`)

	result, errs := LoadJoins(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Empty(t, result.Joins)
}

func TestLoadJoins_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "bad.cue", "package joins\n\njoin: x: {word_bytes: \n")

	result, errs := LoadJoins(dir, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
}

func TestFindCUEFiles(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	require.NoError(t, os.MkdirAll(subDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "root.cue"), []byte("package joins"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notcue.txt"), []byte("not a cue file"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(subDir, "nested.cue"), []byte("package joins"), 0644))

	files, err := FindCUEFiles(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tmpDir, "root.cue"),
		filepath.Join(subDir, "nested.cue"),
	}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"cue", ErrCodeSchema},
		{"word_bytes", compiler.ErrWordBytes},
		{"out_offset", compiler.ErrOutOffset},
		{"streams[0].element_bytes", compiler.ErrElementBytes},
		{"streams[1].len_min", compiler.ErrLenRange},
		{"streams[1].len_max", compiler.ErrLenRange},
		{"streams[2].start_offsets[0]", compiler.ErrStartOffset},
		{"something_else", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapFieldToErrorCode(tt.field))
		})
	}
}

func TestConvertCompileError(t *testing.T) {
	err := convertCompileError(&compiler.CompileError{Field: "streams[0].len_max", Message: `must be an int or "inf"`}, "join.eth")
	assert.Equal(t, compiler.ErrLenRange, err.Code)
	assert.Equal(t, `join.eth: streams[0].len_max: must be an int or "inf"`, err.Message)
}

func TestLoadError_Format(t *testing.T) {
	err := &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files found in x"}
	assert.Equal(t, "E003: no CUE files found in x", err.Error())

	withPos := &LoadError{Code: ErrCodeSchema, Message: "bad", Pos: token.NoPos}
	assert.Equal(t, "E009: bad", withPos.Error())
}
