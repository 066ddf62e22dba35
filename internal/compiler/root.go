package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/sidefx/internal/ir"
)

// CompiledRoot is a named top-level op tree.
type CompiledRoot struct {
	Name string
	Op   *ir.GenericOp
}

// CompileRoot builds an op tree from a CUE node:
//
//	root: hoist_candidate: {
//		op: "scf.if"
//		regions: [
//			[{op: "arith.addi"}],
//			[{op: "memref.load"}],
//		]
//	}
//
// Op names are resolved against reg; names reg does not know produce
// opaque ops.
func CompileRoot(v cue.Value, reg *ir.Registry) (*ir.GenericOp, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compileNode(v, reg, "root")
}

// CompileRoots compiles every field of a `root:` struct, collecting errors.
func CompileRoots(v cue.Value, reg *ir.Registry) ([]CompiledRoot, []error) {
	if !v.Exists() {
		return nil, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, []error{formatCUEError(err)}
	}

	var roots []CompiledRoot
	var errs []error
	for iter.Next() {
		name := unquoteLabel(iter.Selector().String())
		op, err := CompileRoot(iter.Value(), reg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		roots = append(roots, CompiledRoot{Name: name, Op: op})
	}
	return roots, errs
}

func compileNode(v cue.Value, reg *ir.Registry, field string) (*ir.GenericOp, error) {
	opVal := v.LookupPath(cue.ParsePath("op"))
	if !opVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".op",
			Message: "op name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := opVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	op := reg.Create(name)

	regionsVal := v.LookupPath(cue.ParsePath("regions"))
	if !regionsVal.Exists() {
		return op, nil
	}

	regionIter, err := regionsVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field + ".regions",
			Message: "regions must be a list of op lists",
			Pos:     regionsVal.Pos(),
		}
	}
	for ri := 0; regionIter.Next(); ri++ {
		region := op.AddRegion()

		opIter, err := regionIter.Value().List()
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("%s.regions[%d]", field, ri),
				Message: "region must be a list of ops",
				Pos:     regionIter.Value().Pos(),
			}
		}
		for oi := 0; opIter.Next(); oi++ {
			nested, err := compileNode(opIter.Value(), reg, fmt.Sprintf("%s.regions[%d][%d]", field, ri, oi))
			if err != nil {
				return nil, err
			}
			region.Append(nested)
		}
	}
	return op, nil
}
