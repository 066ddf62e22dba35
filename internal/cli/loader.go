package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sidefx/internal/compiler"
	"github.com/roach88/sidefx/internal/ir"
)

// LoadMode controls how errors are handled during spec loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading specs from a directory.
type LoadResult struct {
	Registry  *ir.Registry            // ops declared under op:
	Roots     []compiler.CompiledRoot // trees declared under root:, in label order
	CUEValue  cue.Value               // The raw CUE value for additional processing
	FileCount int                     // Number of CUE files found
}

// Definitions returns every registered op definition in name order.
func (r *LoadResult) Definitions() []*ir.OpDefinition {
	names := r.Registry.Names()
	defs := make([]*ir.OpDefinition, 0, len(names))
	for _, name := range names {
		def, _ := r.Registry.Lookup(name)
		defs = append(defs, def)
	}
	return defs
}

// LoadError represents an error that occurred during spec loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs loads and compiles CUE specs from a directory.
// Op definitions are compiled first so that roots resolve against them.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadSpecs(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("specs directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing specs directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		Registry:  ir.NewRegistry(),
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	// Ops
	opsVal := value.LookupPath(cue.ParsePath("op"))
	if opsVal.Exists() {
		iter, iterErr := opsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating ops: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				def, compileErr := compiler.CompileOpDefinition(iter.Value())
				if compileErr == nil {
					if regErr := result.Registry.Register(def); regErr != nil {
						compileErr = &compiler.CompileError{Field: "op", Message: regErr.Error(), Pos: iter.Value().Pos()}
					}
				}
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, "op."+iter.Selector().String()))
					if mode == LoadModeFailFast {
						return result, errs
					}
				}
			}
		}
	}

	// Roots
	rootsVal := value.LookupPath(cue.ParsePath("root"))
	if rootsVal.Exists() {
		iter, iterErr := rootsVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating roots: %v", iterErr)})
			if mode == LoadModeFailFast {
				return result, errs
			}
		} else {
			for iter.Next() {
				label := iter.Selector().String()
				op, compileErr := compiler.CompileRoot(iter.Value(), result.Registry)
				if compileErr != nil {
					errs = append(errs, convertCompileError(compileErr, "root."+label))
					if mode == LoadModeFailFast {
						return result, errs
					}
					continue
				}
				result.Roots = append(result.Roots, compiler.CompiledRoot{Name: unquote(label), Op: op})
			}
		}
	}

	if result.Registry.Len() == 0 && len(result.Roots) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no ops or roots found in specs"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

func unquote(label string) string {
	if len(label) >= 2 && label[0] == '"' && label[len(label)-1] == '"' {
		return label[1 : len(label)-1]
	}
	return label
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeUnknownRoot = "E008" // --root names a root that does not exist
	ErrCodeStore       = "E009" // Report store error

	// Op definition errors
	ErrCodeInvalidOp          = "E101" // Malformed or duplicate op definition
	ErrCodeInvalidTrait       = "E102" // Unknown trait
	ErrCodeInvalidEffects     = "E103" // effects is not a list of strings
	ErrCodeInvalidSpeculation = "E105" // Unknown speculatability

	// Root errors
	ErrCodeInvalidRoot = "E120" // Malformed root tree
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "op":
		return ErrCodeInvalidOp
	case field == "traits":
		return ErrCodeInvalidTrait
	case field == "effects":
		return ErrCodeInvalidEffects
	case field == "speculatability":
		return ErrCodeInvalidSpeculation
	case strings.HasPrefix(field, "root"):
		return ErrCodeInvalidRoot
	default:
		return ErrCodeGeneric
	}
}
