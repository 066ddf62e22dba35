package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sidefx/internal/compiler"
	"github.com/roach88/sidefx/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// OpSummary is the JSON view of a compiled op definition.
// Effects is nil when the op has no effect interface.
type OpSummary struct {
	Name            string    `json:"name"`
	Summary         string    `json:"summary,omitempty"`
	Traits          []string  `json:"traits"`
	Effects         *[]string `json:"effects,omitempty"`
	Speculatability string    `json:"speculatability,omitempty"`
}

// RootSummary is the JSON view of a compiled root tree.
type RootSummary struct {
	Name        string         `json:"name"`
	Op          string         `json:"op"`
	OpCount     int            `json:"op_count"`
	Depth       int            `json:"depth"`
	Fingerprint string         `json:"fingerprint"`
	Tree        map[string]any `json:"tree"`
}

// CompilationResult holds the compiled dialect and root trees.
type CompilationResult struct {
	IRVersion string        `json:"ir_version"`
	Ops       []OpSummary   `json:"ops"`
	Roots     []RootSummary `json:"roots"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <specs-dir>",
		Short: "Compile CUE dialects and root trees to IR",
		Long: `Compile CUE op definitions and root trees.

Op definitions are read from op: and root trees from root:. Each root is
reported with its op count, nesting depth, fingerprint and canonical tree.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, specsDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeCollectAll)

	// Directory not found, no files, etc.
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseCompileError(loadErrors[0])
		return formatter.fail(code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)
	for _, name := range loadResult.Registry.Names() {
		formatter.VerboseLog("Compiled op: %s", name)
	}
	for _, root := range loadResult.Roots {
		formatter.VerboseLog("Compiled root: %s", root.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result, err := buildCompilationResult(loadResult)
	if err != nil {
		return formatter.fail(ErrCodeGeneric, "building compilation result", err)
	}

	if opts.Output != "" {
		if err := writeIRToFile(result, opts.Output); err != nil {
			return formatter.fail(ErrCodeWriteFailed, "writing output file", err)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func buildCompilationResult(loaded *LoadResult) (*CompilationResult, error) {
	result := &CompilationResult{
		IRVersion: ir.IRVersion,
		Ops:       []OpSummary{},
		Roots:     []RootSummary{},
	}

	for _, def := range loaded.Definitions() {
		result.Ops = append(result.Ops, summarizeOp(def))
	}

	for _, root := range loaded.Roots {
		fp, err := ir.Fingerprint(root.Op)
		if err != nil {
			return nil, err
		}
		result.Roots = append(result.Roots, RootSummary{
			Name:        root.Name,
			Op:          root.Op.Name(),
			OpCount:     ir.Count(root.Op),
			Depth:       ir.Depth(root.Op),
			Fingerprint: fp,
			Tree:        ir.CanonicalTree(root.Op),
		})
	}

	return result, nil
}

func summarizeOp(def *ir.OpDefinition) OpSummary {
	s := OpSummary{
		Name:    def.Name,
		Summary: def.Summary,
		Traits:  def.Traits.Names(),
	}
	if s.Traits == nil {
		s.Traits = []string{}
	}
	if def.MemoryEffects != nil {
		effects := append([]string{}, def.MemoryEffects.Effects...)
		s.Effects = &effects
	}
	if def.Speculation != nil {
		s.Speculatability = def.Speculation.String()
	}
	return s
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d op(s), %d root(s)\n\n", len(result.Ops), len(result.Roots))

	if len(result.Ops) > 0 {
		fmt.Fprintln(w, "Ops:")
		for _, op := range result.Ops {
			effects := "no effect interface"
			if op.Effects != nil {
				effects = fmt.Sprintf("effects %v", *op.Effects)
			}
			spec := op.Speculatability
			if spec == "" {
				spec = "no speculation interface"
			}
			fmt.Fprintf(w, "  %s: traits %v, %s, %s\n", op.Name, op.Traits, effects, spec)
		}
		fmt.Fprintln(w)
	}

	if len(result.Roots) > 0 {
		fmt.Fprintln(w, "Roots:")
		for _, root := range result.Roots {
			fmt.Fprintf(w, "  %s: %s, %d op(s), depth %d\n", root.Name, root.Op, root.OpCount, root.Depth)
		}
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs every compilation error and returns exit code 2.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.IsJSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}); err != nil {
			return err
		}

		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeIRToFile writes the compilation result as indented JSON.
// Canonical JSON is reserved for hashing.
func writeIRToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
