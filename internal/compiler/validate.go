package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/sidefx/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// OpDefinition errors (E101-E109)
	ErrInvalidOpName          = "E101" // name must be dialect.op
	ErrUnknownTrait           = "E102" // trait bit outside the known set
	ErrEmptyEffect            = "E103" // blank effect name
	ErrDuplicateEffect        = "E104" // effect listed twice
	ErrInvalidSpeculatability = "E105" // speculatability outside the enum

	// Root errors (E110-E119)
	ErrUnregisteredOp = "E110" // op in a root tree has no definition (warning)
	ErrTerminatorNest = "E111" // terminator op carries regions
)

// ValidationError represents a schema validation error.
// Warnings are reported but do not fail validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether errs contains anything other than warnings.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}

var opNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)+$`)

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports *ir.OpDefinition, ir.OpDefinition and ir.Operation trees.
func Validate(v any) []ValidationError {
	switch val := v.(type) {
	case *ir.OpDefinition:
		return validateOpDefinition(val)
	case ir.OpDefinition:
		return validateOpDefinition(&val)
	case ir.Operation:
		return validateTree(val)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateOpDefinition(def *ir.OpDefinition) []ValidationError {
	var errs []ValidationError

	if !opNamePattern.MatchString(def.Name) {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("invalid op name %q, expected dialect.op in lower snake case", def.Name),
			Code:    ErrInvalidOpName,
		})
	}

	known := ir.NewTraitSet()
	for _, name := range ir.KnownTraits() {
		t, _ := ir.ParseTrait(name)
		known = known.With(t)
	}
	if unknown := def.Traits &^ known; unknown != 0 {
		errs = append(errs, ValidationError{
			Field:   "traits",
			Message: fmt.Sprintf("unknown trait bits %#x", uint32(unknown)),
			Code:    ErrUnknownTrait,
		})
	}

	if def.MemoryEffects != nil {
		seen := make(map[string]bool)
		for i, effect := range def.MemoryEffects.Effects {
			field := fmt.Sprintf("effects[%d]", i)
			if strings.TrimSpace(effect) == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "effect name must be non-empty",
					Code:    ErrEmptyEffect,
				})
				continue
			}
			if seen[effect] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("duplicate effect %q", effect),
					Code:    ErrDuplicateEffect,
				})
			}
			seen[effect] = true
		}
	}

	if def.Speculation != nil && !def.Speculation.Valid() {
		errs = append(errs, ValidationError{
			Field:   "speculatability",
			Message: fmt.Sprintf("invalid value %s", def.Speculation.String()),
			Code:    ErrInvalidSpeculatability,
		})
	}

	return errs
}

// validateTree flags unregistered ops (as warnings) and terminators that
// carry regions.
func validateTree(root ir.Operation) []ValidationError {
	var errs []ValidationError

	ir.Walk(root, func(op ir.Operation, depth int) bool {
		if g, ok := op.(*ir.GenericOp); ok && !g.Registered() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("depth %d", depth),
				Message: fmt.Sprintf("op %q is not registered and will be treated as opaque", op.Name()),
				Code:    ErrUnregisteredOp,
				Warning: true,
			})
		}
		if op.HasTrait(ir.Terminator) && len(op.Regions()) > 0 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("depth %d", depth),
				Message: fmt.Sprintf("terminator %q must not have regions", op.Name()),
				Code:    ErrTerminatorNest,
			})
		}
		return true
	})

	return errs
}
