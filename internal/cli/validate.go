package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sidefx/internal/compiler"
	"github.com/roach88/sidefx/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ValidationError `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate dialects and root trees without analyzing them",
		Long: `Validate CUE op definitions and root trees.

Checks op names, traits, effect lists and speculatability values, then
walks every root tree. Unregistered ops are reported as warnings since
they are analyzed as opaque; a terminator carrying regions is an error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Fail fast: a broken op definition makes every later root suspect.
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)

	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.fail(code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	result := validateLoaded(loadResult, formatter)

	// Compile errors surface as validation errors
	for _, err := range loadErrors {
		code, message := parseCompileError(err)
		result.Errors = append(result.Errors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
		})
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateLoaded runs schema validation over every op definition and root
// tree, splitting warnings from errors.
func validateLoaded(loaded *LoadResult, formatter *OutputFormatter) ValidationResult {
	var result ValidationResult

	add := func(prefix string, errs []compiler.ValidationError) {
		for _, e := range errs {
			e.Field = prefix + "." + e.Field
			if e.Warning {
				result.Warnings = append(result.Warnings, e)
			} else {
				result.Errors = append(result.Errors, e)
			}
		}
	}

	for _, def := range loaded.Definitions() {
		formatter.VerboseLog("Validating op: %s", def.Name)
		add("op."+def.Name, compiler.Validate(def))
	}
	for _, root := range loaded.Roots {
		formatter.VerboseLog("Validating root: %s", root.Name)
		add("root."+root.Name, compiler.Validate(ir.Operation(root.Op)))
	}

	return result
}

// outputValidateSuccess outputs successful validation results.
// Warnings are listed but do not change the outcome.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning %s: %s: %s\n", w.Code, w.Field, w.Message)
	}
	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	return nil
}

// outputValidationErrors outputs every validation error and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning %s: %s: %s\n", w.Code, w.Field, w.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateSpecsDir validates all specs in a directory.
// This is a helper function for external callers.
func ValidateSpecsDir(specsDir string) (ValidationResult, error) {
	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if loadResult == nil && len(loadErrors) > 0 {
		return ValidationResult{}, loadErrors[0]
	}
	if len(loadErrors) > 0 {
		return ValidationResult{}, errors.Join(loadErrors...)
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	result := validateLoaded(loadResult, silent)
	result.Valid = len(result.Errors) == 0
	return result, nil
}
