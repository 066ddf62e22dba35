package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"

	"github.com/roach88/sidefx/internal/ir"
)

// CompileOpDefinition parses a CUE value into an OpDefinition.
//
// The value should be the op struct itself, labelled with the op name:
//
//	op: "scf.if": {
//		traits: ["recursive_memory_effects"]
//		effects: []
//		speculatability: "recursively_speculatable"
//	}
//
// An absent effects field means the op does not implement the memory effect
// interface; an empty list declares it effect-free. Likewise an absent
// speculatability field means no speculation interface.
func CompileOpDefinition(v cue.Value) (*ir.OpDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.OpDefinition{}

	selectors := v.Path().Selectors()
	if len(selectors) > 0 {
		def.Name = unquoteLabel(selectors[len(selectors)-1].String())
	}
	if def.Name == "" {
		return nil, &CompileError{Field: "op", Message: "op name is required", Pos: v.Pos()}
	}

	if summaryVal := v.LookupPath(cue.ParsePath("summary")); summaryVal.Exists() {
		summary, err := summaryVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Summary = summary
	}

	traits, err := parseTraits(v)
	if err != nil {
		return nil, err
	}
	def.Traits = traits

	effectsVal := v.LookupPath(cue.ParsePath("effects"))
	if effectsVal.Exists() {
		effects, err := parseStringList(effectsVal)
		if err != nil {
			return nil, err
		}
		def.MemoryEffects = &ir.MemoryEffects{Effects: effects}
	}

	specVal := v.LookupPath(cue.ParsePath("speculatability"))
	if specVal.Exists() {
		name, err := specVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		s, err := ir.ParseSpeculatability(name)
		if err != nil {
			return nil, &CompileError{
				Field:   "speculatability",
				Message: fmt.Sprintf("%v: must be one of not_speculatable, speculatable, recursively_speculatable", err),
				Pos:     specVal.Pos(),
			}
		}
		def.Speculation = &s
	}

	return def, nil
}

// CompileDialect compiles every field of an `op:` struct into a registry.
// Returns all compile errors rather than stopping at the first.
func CompileDialect(v cue.Value) (*ir.Registry, []error) {
	reg := ir.NewRegistry()
	if !v.Exists() {
		return reg, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return reg, []error{formatCUEError(err)}
	}

	var errs []error
	for iter.Next() {
		def, err := CompileOpDefinition(iter.Value())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := reg.Register(def); err != nil {
			errs = append(errs, &CompileError{Field: "op", Message: err.Error(), Pos: iter.Value().Pos()})
		}
	}
	return reg, errs
}

func parseTraits(v cue.Value) (ir.TraitSet, error) {
	var set ir.TraitSet

	traitsVal := v.LookupPath(cue.ParsePath("traits"))
	if !traitsVal.Exists() {
		return set, nil
	}

	iter, err := traitsVal.List()
	if err != nil {
		return set, formatCUEError(err)
	}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return set, formatCUEError(err)
		}
		t, err := ir.ParseTrait(name)
		if err != nil {
			return set, &CompileError{
				Field:   "traits",
				Message: fmt.Sprintf("%v: known traits are %v", err, ir.KnownTraits()),
				Pos:     iter.Value().Pos(),
			}
		}
		set = set.With(t)
	}
	return set, nil
}

func parseStringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// unquoteLabel strips CUE quoting from labels such as "arith.addi".
func unquoteLabel(label string) string {
	if s, err := strconv.Unquote(label); err == nil {
		return s
	}
	return label
}
