// Package testutil provides hand-built IR operations for tests.
//
// Op is an ir.Operation whose capabilities are set directly by options,
// independent of any registry. It counts capability queries so tests can
// observe whether an analysis visited it.
//
// Thread-safety: an Op is safe for concurrent reads once built.
package testutil

import (
	"sync/atomic"

	"github.com/roach88/sidefx/internal/ir"
)

// Op is a configurable test operation.
type Op struct {
	name    string
	traits  ir.TraitSet
	effect  effectHandle
	spec    ir.Speculatability
	hasEff  bool
	hasSpec bool
	regions []*ir.Region
	queries atomic.Int64
}

// Option configures an Op.
type Option func(*Op)

type effectHandle struct {
	noEffect bool
}

func (h effectHandle) HasNoEffect() bool {
	return h.noEffect
}

// NewOp builds an op. With no options it is opaque: no capabilities, no
// traits, no regions.
func NewOp(name string, opts ...Option) *Op {
	op := &Op{name: name}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// NoEffect declares the effect interface reporting no effect.
func NoEffect() Option {
	return func(o *Op) {
		o.hasEff = true
		o.effect = effectHandle{noEffect: true}
	}
}

// WithEffect declares the effect interface reporting an effect.
func WithEffect() Option {
	return func(o *Op) {
		o.hasEff = true
		o.effect = effectHandle{noEffect: false}
	}
}

// Traits attaches structural traits.
func Traits(traits ...ir.Trait) Option {
	return func(o *Op) {
		for _, t := range traits {
			o.traits = o.traits.With(t)
		}
	}
}

// Recursive is shorthand for Traits(ir.RecursiveMemoryEffects).
func Recursive() Option {
	return Traits(ir.RecursiveMemoryEffects)
}

// Speculation declares the speculation interface with classification s.
// s is not validated, so tests may inject out-of-range values.
func Speculation(s ir.Speculatability) Option {
	return func(o *Op) {
		o.hasSpec = true
		o.spec = s
	}
}

// Region appends a region holding ops.
func Region(ops ...ir.Operation) Option {
	return func(o *Op) {
		r := ir.NewRegion(o)
		r.Append(ops...)
		o.regions = append(o.regions, r)
	}
}

// Name implements ir.Operation.
func (o *Op) Name() string { return o.name }

// Regions implements ir.Operation.
func (o *Op) Regions() []*ir.Region { return o.regions }

// HasTrait implements ir.Operation.
func (o *Op) HasTrait(t ir.Trait) bool { return o.traits.Has(t) }

// EffectInterface implements ir.Operation.
func (o *Op) EffectInterface() (ir.EffectHandle, bool) {
	o.queries.Add(1)
	if !o.hasEff {
		return nil, false
	}
	return o.effect, true
}

// SpeculationInterface implements ir.Operation.
func (o *Op) SpeculationInterface() (ir.SpeculatabilityHandle, bool) {
	o.queries.Add(1)
	if !o.hasSpec {
		return nil, false
	}
	return o.spec, true
}

// Queries returns how many capability lookups hit this op.
func (o *Op) Queries() int64 {
	return o.queries.Load()
}

// Visited reports whether any capability lookup hit this op.
func (o *Op) Visited() bool {
	return o.Queries() > 0
}
