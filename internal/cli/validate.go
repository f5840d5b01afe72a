package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/simtree/internal/compiler"
	"github.com/roach88/simtree/internal/registry"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Records  []RecordSummary            `json:"records,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
}

// RecordSummary is the dynamic/static split of one registered record.
type RecordSummary struct {
	Name    string   `json:"name"`
	Dynamic []string `json:"dynamic"`
	Static  []string `json:"static"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Validate record declarations and classify their fields",
		Long: `Validate CUE record declarations from a .cue file or a directory.

Every declaration error is reported, not just the first. When the schema is
valid each record is registered and its fields are split into dynamic
(array-bearing) and static groups. Records that require themselves through
plain record fields are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadSchema(schemaPath, LoadModeCollectAll)
	if loadResult == nil {
		return failLoad(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, schemaPath)

	if len(loadErrors) > 0 {
		return outputValidationErrors(formatter, toValidationErrors(loadErrors))
	}

	reg := registry.New()
	result := ValidationResult{Valid: true}
	for _, rt := range loadResult.Records {
		formatter.VerboseLog("Registering record: %s", rt.Name)
		class, err := reg.Register(rt)
		if err != nil {
			return formatter.Fail(ExitFailure, registrationCode(err), err.Error(), rt.Name)
		}
		result.Records = append(result.Records, RecordSummary{
			Name:    rt.Name,
			Dynamic: nonNil(class.Dynamic),
			Static:  nonNil(class.Static),
		})
	}
	result.Warnings = compiler.AnalyzeCycles(loadResult.Records)

	return outputValidateSuccess(formatter, result)
}

// failLoad reports an error that stopped loading altogether.
func failLoad(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

func toValidationErrors(errs []error) []compiler.ValidationError {
	out := make([]compiler.ValidationError, 0, len(errs))
	for _, err := range errs {
		var verr compiler.ValidationError
		var loadErr *LoadError
		switch {
		case errors.As(err, &verr):
			out = append(out, verr)
		case errors.As(err, &loadErr):
			out = append(out, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr),
			})
		default:
			out = append(out, compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric})
		}
	}
	return out
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %d record(s) valid\n", len(result.Records))
	for _, r := range result.Records {
		fmt.Fprintf(w, "  %s  dynamic: [%s]  static: [%s]\n",
			r.Name, strings.Join(r.Dynamic, " "), strings.Join(r.Static, " "))
	}
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠ %s\n", warn.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.IsJSON() {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return exitErr
}
