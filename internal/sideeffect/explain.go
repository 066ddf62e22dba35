package sideeffect

import (
	"slices"
	"strings"

	"github.com/roach88/sidefx/internal/ir"
)

// Reason identifies which rule produced a negative verdict.
type Reason string

const (
	// ReasonEffectDeclared: the op's effect interface reports an effect.
	ReasonEffectDeclared Reason = "effect_declared"

	// ReasonOpaque: the op has neither an effect interface nor the
	// recursive memory effects trait.
	ReasonOpaque Reason = "opaque"

	// ReasonNoInterface: the op has no speculation interface.
	ReasonNoInterface Reason = "no_interface"

	// ReasonNotSpeculatable: the op classifies itself as not speculatable.
	ReasonNotSpeculatable Reason = "not_speculatable"
)

// Explanation is a verdict together with the op that decided it.
// Path and Reason are empty when Verdict is true.
type Explanation struct {
	Verdict bool     `json:"verdict"`
	Reason  Reason   `json:"reason,omitempty"`
	Path    []string `json:"path,omitempty"` // op names from the queried op to the blocker
}

// Blocker returns the name of the op that made the verdict negative.
func (e Explanation) Blocker() string {
	if len(e.Path) == 0 {
		return ""
	}
	return e.Path[len(e.Path)-1]
}

// String renders the explanation for humans.
func (e Explanation) String() string {
	if e.Verdict {
		return "yes"
	}
	return "no (" + string(e.Reason) + " at " + strings.Join(e.Path, " > ") + ")"
}

func blocked(reason Reason, path []string) Explanation {
	return Explanation{Reason: reason, Path: slices.Clone(path)}
}

// ExplainMemoryEffects applies the same rules as IsMemoryEffectFree and
// reports the first op, in visitation order, that made the verdict negative.
func ExplainMemoryEffects(op ir.Operation) Explanation {
	return explainMemory(op, nil)
}

func explainMemory(op ir.Operation, path []string) Explanation {
	path = append(path, op.Name())

	if effects, ok := ir.AsEffectInterface(op); ok {
		if !effects.HasNoEffect() {
			return blocked(ReasonEffectDeclared, path)
		}
		if !op.HasTrait(ir.RecursiveMemoryEffects) {
			return Explanation{Verdict: true}
		}
	} else if !op.HasTrait(ir.RecursiveMemoryEffects) {
		return blocked(ReasonOpaque, path)
	}

	for _, region := range op.Regions() {
		for _, nested := range region.Operations() {
			if e := explainMemory(nested, path); !e.Verdict {
				return e
			}
		}
	}
	return Explanation{Verdict: true}
}

// ExplainSpeculation applies the same rules as IsSpeculatable and reports
// the first op, in visitation order, that made the verdict negative.
func ExplainSpeculation(op ir.Operation) Explanation {
	return speculationStep(op, nil)
}

func speculationStep(op ir.Operation, path []string) Explanation {
	path = append(path, op.Name())

	handle, ok := ir.AsSpeculatable(op)
	if !ok {
		return blocked(ReasonNoInterface, path)
	}

	switch s := handle.Speculatability(); s {
	case ir.NotSpeculatable:
		return blocked(ReasonNotSpeculatable, path)
	case ir.Speculatable:
		return Explanation{Verdict: true}
	case ir.RecursivelySpeculatable:
		for _, region := range op.Regions() {
			for _, nested := range region.Operations() {
				if e := speculationStep(nested, path); !e.Verdict {
					return e
				}
			}
		}
		return Explanation{Verdict: true}
	default:
		panic(invalidSpeculatability(op, s))
	}
}
