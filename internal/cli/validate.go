package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/framejoin/internal/compiler"
)

// ValidationResult is the JSON payload of validate.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Joins  []string                   `json:"joins,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Check join configurations without synthesizing",
		Long: `Check CUE join configurations without synthesizing tables.

Every join is checked against the CUE schema and the value ranges
(word sizes, offsets, length bounds). All problems are reported, not
just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loaded, loadErrs := LoadJoins(specsDir, LoadModeCollectAll)
	if loaded == nil {
		le := asLoadError(loadErrs[0])
		return formatter.Fail(ExitCommandError, le.Code, le.Message)
	}
	formatter.Debugf("Found %d CUE file(s) in %s", loaded.FileCount, specsDir)

	problems := make([]compiler.ValidationError, 0, len(loadErrs))
	for _, err := range loadErrs {
		problems = append(problems, asLoadError(err).validationError())
	}

	names := make([]string, len(loaded.Joins))
	for i, j := range loaded.Joins {
		formatter.Debugf("Validating join: %s", j.Name)
		names[i] = j.Name
	}
	problems = append(problems, compiler.Validate(loaded.Joins)...)

	if len(problems) > 0 {
		return reportInvalid(formatter, problems)
	}
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Joins: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d join(s) valid\n", len(names))
	return nil
}

// asLoadError returns err as a LoadError, coding foreign errors E001.
func asLoadError(err error) *LoadError {
	var le *LoadError
	if errors.As(err, &le) {
		return le
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

func (e *LoadError) validationError() compiler.ValidationError {
	ve := compiler.ValidationError{Code: e.Code, Field: "load", Message: e.Message}
	if e.Pos.IsValid() {
		ve.Line = e.Pos.Line()
	}
	return ve
}

// reportInvalid prints every problem and fails with ExitFailure.
func reportInvalid(formatter *OutputFormatter, problems []compiler.ValidationError) error {
	failure := exitf(ExitFailure, "validation failed with %d error(s)", len(problems))

	if formatter.JSON() {
		first := problems[0]
		if err := formatter.emit(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: problems},
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return failure
	}

	w := formatter.Writer
	fmt.Fprint(w, "✗ Validation failed\n\n")
	for _, p := range problems {
		if p.Line > 0 {
			fmt.Fprintf(w, "line %d\n", p.Line)
		}
		fmt.Fprintf(w, "  %s: %s: %s\n\n", p.Code, p.Field, p.Message)
	}
	return failure
}
