// Package sideeffect decides whether IR operations are free of memory side
// effects and whether they may be executed speculatively.
//
// Both predicates are pure functions of the tree rooted at the queried op:
// they never mutate the IR, keep no state between calls and are safe for
// concurrent use on trees that are not being mutated. Recursion depth equals
// the nesting depth of the tree.
package sideeffect

import (
	"fmt"

	"github.com/roach88/sidefx/internal/ir"
)

// The speculation dispatch below handles exactly three classifications.
// Adding one to ir.Speculatability breaks this line until the switch in
// IsSpeculatable and speculationStep are updated.
var _ = [1]struct{}{}[ir.SpeculatabilityKinds-3]

// IsMemoryEffectFree reports whether op and every op nested in it are free
// of memory side effects.
//
// An op that declares an effect is never effect-free. An op that declares no
// effect and lacks ir.RecursiveMemoryEffects is effect-free regardless of its
// regions. An op with neither the interface nor the trait is unknown and
// therefore not effect-free. Everything else is effect-free iff all nested
// ops are.
func IsMemoryEffectFree(op ir.Operation) bool {
	if effects, ok := ir.AsEffectInterface(op); ok {
		if !effects.HasNoEffect() {
			return false
		}
		if !op.HasTrait(ir.RecursiveMemoryEffects) {
			return true
		}
	} else if !op.HasTrait(ir.RecursiveMemoryEffects) {
		return false
	}

	for _, region := range op.Regions() {
		for _, nested := range region.Operations() {
			if !IsMemoryEffectFree(nested) {
				return false
			}
		}
	}
	return true
}

// IsSpeculatable reports whether op may be executed speculatively.
//
// Ops without a speculation interface are never speculatable. Speculatable
// ops are accepted without looking at their regions; recursively
// speculatable ops require every nested op to be speculatable.
func IsSpeculatable(op ir.Operation) bool {
	handle, ok := ir.AsSpeculatable(op)
	if !ok {
		return false
	}

	switch s := handle.Speculatability(); s {
	case ir.NotSpeculatable:
		return false
	case ir.Speculatable:
		return true
	case ir.RecursivelySpeculatable:
		for _, region := range op.Regions() {
			for _, nested := range region.Operations() {
				if !IsSpeculatable(nested) {
					return false
				}
			}
		}
		return true
	default:
		panic(invalidSpeculatability(op, s))
	}
}

func invalidSpeculatability(op ir.Operation, s ir.Speculatability) string {
	return fmt.Sprintf("sideeffect: op %s reports undeclared %s", op.Name(), s)
}
