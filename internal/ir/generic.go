package ir

// GenericOp is the concrete Operation backed by an OpDefinition.
type GenericOp struct {
	name    string
	def     *OpDefinition // nil for unregistered ops
	regions []*Region
}

// NewOp creates an op instance of def.
func NewOp(def *OpDefinition) *GenericOp {
	return &GenericOp{name: def.Name, def: def}
}

// NewUnregisteredOp creates an op that declares nothing about itself.
func NewUnregisteredOp(name string) *GenericOp {
	return &GenericOp{name: name}
}

// Name implements Operation.
func (o *GenericOp) Name() string {
	return o.name
}

// Definition returns the op's registered definition, or nil.
func (o *GenericOp) Definition() *OpDefinition {
	return o.def
}

// Registered reports whether the op has a definition.
func (o *GenericOp) Registered() bool {
	return o.def != nil
}

// Regions implements Operation.
func (o *GenericOp) Regions() []*Region {
	return o.regions
}

// AddRegion appends a new empty region owned by o and returns it.
func (o *GenericOp) AddRegion() *Region {
	r := NewRegion(o)
	o.regions = append(o.regions, r)
	return r
}

// HasTrait implements Operation.
func (o *GenericOp) HasTrait(t Trait) bool {
	if o.def == nil {
		return false
	}
	return o.def.Traits.Has(t)
}

// EffectInterface implements Operation.
func (o *GenericOp) EffectInterface() (EffectHandle, bool) {
	if o.def == nil || o.def.MemoryEffects == nil {
		return nil, false
	}
	return o.def.MemoryEffects, true
}

// SpeculationInterface implements Operation.
func (o *GenericOp) SpeculationInterface() (SpeculatabilityHandle, bool) {
	if o.def == nil || o.def.Speculation == nil {
		return nil, false
	}
	return *o.def.Speculation, true
}
