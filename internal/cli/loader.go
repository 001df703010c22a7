package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/framejoin/internal/compiler"
	"github.com/roach88/framejoin/internal/ir"
)

// Error codes shared by every command. Problems with a single join field
// reuse the compiler's E1xx codes.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
	ErrCodeWriteFailed = "E007"
	ErrCodeNoJoins     = "E008"
	ErrCodeSchema      = "E009" // rejected by the embedded CUE schema
	ErrCodeStore       = "E010"
	ErrCodeRunNotFound = "E011"
	ErrCodeSynthFailed = "E012"
	ErrCodeScenario    = "E013"
	ErrCodeWatch       = "E014"
)

// LoadMode selects whether LoadJoins stops at the first bad join.
type LoadMode int

const (
	LoadModeFailFast LoadMode = iota
	LoadModeCollectAll
)

// LoadResult is what LoadJoins found in a directory.
type LoadResult struct {
	Joins     []ir.JoinSpec // CUE field order
	CUEValue  cue.Value
	FileCount int
}

// LoadError is a load or compile failure with an optional CUE position.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if !e.Pos.IsValid() {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
}

func loadErrorf(code, format string, args ...any) *LoadError {
	return &LoadError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// LoadJoins builds the CUE package in dir and compiles each field of its
// top-level join struct:
//
//	join: eth_rx: {
//		word_bytes: 8
//		streams: [{element_bytes: 1, len_min: 14, len_max: 14}, ...]
//	}
//
// A nil result means the package itself could not be built. Otherwise the
// result carries the joins that compiled; in LoadModeCollectAll the errors
// of every other join come back with it.
func LoadJoins(dir string, mode LoadMode) (*LoadResult, []error) {
	value, files, lerr := buildPackage(dir)
	if lerr != nil {
		return nil, []error{lerr}
	}
	result := &LoadResult{CUEValue: value, FileCount: files}

	joins := value.LookupPath(cue.ParsePath("join"))
	if !joins.Exists() {
		return result, []error{loadErrorf(ErrCodeNoJoins, "no join configurations found in %s", dir)}
	}
	iter, err := joins.Fields()
	if err != nil {
		return result, []error{loadErrorf(ErrCodeGeneric, "join is not a struct: %v", err)}
	}

	var errs []error
	for iter.Next() {
		spec, err := compiler.CompileJoin(iter.Value())
		if err == nil {
			result.Joins = append(result.Joins, *spec)
			continue
		}
		errs = append(errs, convertCompileError(err, "join."+iter.Selector().String()))
		if mode == LoadModeFailFast {
			break
		}
	}
	if len(result.Joins) == 0 && len(errs) == 0 {
		errs = append(errs, loadErrorf(ErrCodeNoJoins, "join struct in %s is empty", dir))
	}
	return result, errs
}

// buildPackage checks dir and evaluates the single CUE package inside it.
func buildPackage(dir string) (cue.Value, int, *LoadError) {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cue.Value{}, 0, loadErrorf(ErrCodeNotFound, "specs directory not found: %s", dir)
	case err != nil:
		return cue.Value{}, 0, loadErrorf(ErrCodeScanError, "stat %s: %v", dir, err)
	case !info.IsDir():
		return cue.Value{}, 0, loadErrorf(ErrCodeNotFound, "not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeScanError, "scan %s: %v", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, 0, loadErrorf(ErrCodeNoFiles, "no CUE files found in %s", dir)
	}

	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return cue.Value{}, 0, loadErrorf(ErrCodeLoadFailed, "no CUE instance in %s", dir)
	}
	if insts[0].Err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeLoadFailed, "load %s: %v", dir, insts[0].Err)
	}

	value := cuecontext.New().BuildInstance(insts[0])
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, loadErrorf(ErrCodeBuildFailed, "build %s: %v", dir, err)
	}
	return value, len(files), nil
}

// FindCUEFiles returns every .cue file under dir in lexical order.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}

// convertCompileError attaches the join path and error code to a compiler error.
func convertCompileError(err error, joinPath string) *LoadError {
	var ce *compiler.CompileError
	if !errors.As(err, &ce) {
		return loadErrorf(ErrCodeGeneric, "%s: %v", joinPath, err)
	}
	return &LoadError{
		Code:    MapFieldToErrorCode(ce.Field),
		Message: fmt.Sprintf("%s: %s: %s", joinPath, ce.Field, ce.Message),
		Pos:     ce.Pos,
	}
}

// fieldCodes maps the last segment of a compiler field path to its code.
var fieldCodes = []struct {
	match func(field string) bool
	code  string
}{
	{func(f string) bool { return f == "cue" }, ErrCodeSchema},
	{func(f string) bool { return f == "word_bytes" }, compiler.ErrWordBytes},
	{func(f string) bool { return f == "out_offset" }, compiler.ErrOutOffset},
	{func(f string) bool { return strings.HasSuffix(f, ".element_bytes") }, compiler.ErrElementBytes},
	{func(f string) bool { return strings.HasSuffix(f, ".len_min") || strings.HasSuffix(f, ".len_max") }, compiler.ErrLenRange},
	{func(f string) bool { return strings.Contains(f, ".start_offsets") }, compiler.ErrStartOffset},
}

// MapFieldToErrorCode returns the error code for a compiler field path.
func MapFieldToErrorCode(field string) string {
	for _, fc := range fieldCodes {
		if fc.match(field) {
			return fc.code
		}
	}
	return ErrCodeGeneric
}
