package ir

// Operation is a node of the IR tree.
//
// Capabilities are queried, never assumed: every variant answers
// EffectInterface and SpeculationInterface explicitly, returning ok=false
// when it does not declare that information.
type Operation interface {
	// Name is the fully qualified op name, e.g. "scf.for".
	Name() string

	// Regions returns the nested regions in declaration order (possibly empty).
	Regions() []*Region

	// HasTrait reports whether the op carries the given structural trait.
	HasTrait(t Trait) bool

	// EffectInterface returns the op's memory effect declaration, if any.
	EffectInterface() (EffectHandle, bool)

	// SpeculationInterface returns the op's speculation declaration, if any.
	SpeculationInterface() (SpeculatabilityHandle, bool)
}

// EffectHandle answers whether the op itself (excluding nested regions)
// has any memory side effect.
type EffectHandle interface {
	HasNoEffect() bool
}

// SpeculatabilityHandle exposes the op's own speculation classification.
type SpeculatabilityHandle interface {
	Speculatability() Speculatability
}

// AsEffectInterface is the capability lookup for memory effect declarations.
func AsEffectInterface(op Operation) (EffectHandle, bool) {
	h, ok := op.EffectInterface()
	if !ok || h == nil {
		return nil, false
	}
	return h, true
}

// AsSpeculatable is the capability lookup for speculation declarations.
func AsSpeculatable(op Operation) (SpeculatabilityHandle, bool) {
	h, ok := op.SpeculationInterface()
	if !ok || h == nil {
		return nil, false
	}
	return h, true
}

// Region is an ordered sequence of sibling operations owned by exactly one
// parent operation.
type Region struct {
	parent Operation
	ops    []Operation
}

// NewRegion creates an empty region owned by parent.
func NewRegion(parent Operation) *Region {
	return &Region{parent: parent}
}

// Parent returns the operation that owns the region.
func (r *Region) Parent() Operation {
	return r.parent
}

// Operations returns the region's operations in insertion order.
func (r *Region) Operations() []Operation {
	return r.ops
}

// Append adds ops to the end of the region.
func (r *Region) Append(ops ...Operation) *Region {
	r.ops = append(r.ops, ops...)
	return r
}

// Empty reports whether the region holds no operations.
func (r *Region) Empty() bool {
	return len(r.ops) == 0
}
