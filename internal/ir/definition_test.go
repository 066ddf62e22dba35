package ir

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specPtr(s Speculatability) *Speculatability {
	return &s
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	def := &OpDefinition{
		Name:          "arith.addi",
		MemoryEffects: &MemoryEffects{},
		Speculation:   specPtr(Speculatable),
	}
	require.NoError(t, reg.Register(def))

	got, ok := reg.Lookup("arith.addi")
	require.True(t, ok)
	assert.Same(t, def, got)
	assert.Equal(t, "arith", got.Dialect())

	_, ok = reg.Lookup("arith.subi")
	assert.False(t, ok)
}

func TestRegistryRejectsDuplicate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&OpDefinition{Name: "scf.for"}))

	err := reg.Register(&OpDefinition{Name: "scf.for"})
	require.Error(t, err)

	var dupErr *DuplicateOpError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, "scf.for", dupErr.Name)
}

func TestRegistryRejectsUnnamed(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(&OpDefinition{}))
	assert.Error(t, reg.Register(nil))
}

func TestRegistryNamesSorted(t *testing.T) {
	reg := NewRegistry().MustRegister(
		&OpDefinition{Name: "scf.if"},
		&OpDefinition{Name: "arith.addi"},
		&OpDefinition{Name: "memref.load"},
	)
	assert.Equal(t, []string{"arith.addi", "memref.load", "scf.if"}, reg.Names())
	assert.Equal(t, 3, reg.Len())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = reg.Register(&OpDefinition{Name: "test.op"})
			reg.Lookup("test.op")
			reg.Names()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, reg.Len())
}

func TestGenericOpCapabilities(t *testing.T) {
	reg := NewRegistry().MustRegister(
		&OpDefinition{
			Name:          "memref.store",
			MemoryEffects: &MemoryEffects{Effects: []string{"write"}},
			Speculation:   specPtr(NotSpeculatable),
		},
		&OpDefinition{
			Name:   "scf.execute_region",
			Traits: NewTraitSet(RecursiveMemoryEffects),
		},
	)

	store := reg.Create("memref.store")
	assert.True(t, store.Registered())

	effects, ok := AsEffectInterface(store)
	require.True(t, ok)
	assert.False(t, effects.HasNoEffect())

	spec, ok := AsSpeculatable(store)
	require.True(t, ok)
	assert.Equal(t, NotSpeculatable, spec.Speculatability())
	assert.False(t, store.HasTrait(RecursiveMemoryEffects))

	region := reg.Create("scf.execute_region")
	_, ok = AsEffectInterface(region)
	assert.False(t, ok, "trait-only op must not expose an effect interface")
	_, ok = AsSpeculatable(region)
	assert.False(t, ok)
	assert.True(t, region.HasTrait(RecursiveMemoryEffects))
}

func TestUnregisteredOpIsOpaque(t *testing.T) {
	op := NewRegistry().Create("vendor.mystery")
	assert.False(t, op.Registered())
	assert.Nil(t, op.Definition())
	assert.Equal(t, "vendor.mystery", op.Name())

	_, ok := AsEffectInterface(op)
	assert.False(t, ok)
	_, ok = AsSpeculatable(op)
	assert.False(t, ok)
	for _, name := range KnownTraits() {
		tr, err := ParseTrait(name)
		require.NoError(t, err)
		assert.False(t, op.HasTrait(tr))
	}
}

func TestRegionOwnership(t *testing.T) {
	reg := NewRegistry()
	parent := reg.Create("scf.if")
	then := parent.AddRegion()
	elseRegion := parent.AddRegion()

	child := reg.Create("arith.addi")
	then.Append(child)

	require.Len(t, parent.Regions(), 2)
	assert.Same(t, parent, then.Parent())
	assert.Same(t, parent, elseRegion.Parent())
	assert.Equal(t, []Operation{child}, then.Operations())
	assert.True(t, elseRegion.Empty())
}

func TestWalkCountDepth(t *testing.T) {
	reg := NewRegistry()
	root := reg.Create("builtin.module")
	fn := reg.Create("func.func")
	root.AddRegion().Append(fn)
	loop := reg.Create("scf.for")
	body := fn.AddRegion()
	body.Append(loop, reg.Create("func.return"))
	loop.AddRegion().Append(reg.Create("arith.addi"))

	var order []string
	Walk(root, func(op Operation, _ int) bool {
		order = append(order, op.Name())
		return true
	})
	assert.Equal(t, []string{"builtin.module", "func.func", "scf.for", "arith.addi", "func.return"}, order)
	assert.Equal(t, 5, Count(root))
	assert.Equal(t, 3, Depth(root))
	assert.Equal(t, 0, Depth(reg.Create("arith.addi")))

	var pruned []string
	Walk(root, func(op Operation, _ int) bool {
		pruned = append(pruned, op.Name())
		return op.Name() != "func.func"
	})
	assert.Equal(t, []string{"builtin.module", "func.func"}, pruned)
}

func TestTraitSet(t *testing.T) {
	s := NewTraitSet(Terminator, RecursiveMemoryEffects)
	assert.True(t, s.Has(Terminator))
	assert.True(t, s.Has(RecursiveMemoryEffects))
	assert.False(t, s.Has(IsolatedFromAbove))
	assert.Equal(t, []string{"recursive_memory_effects", "terminator"}, s.Names())
	assert.Equal(t, "[recursive_memory_effects,terminator]", s.String())

	tr, err := ParseTrait("isolated_from_above")
	require.NoError(t, err)
	assert.Equal(t, IsolatedFromAbove, tr)

	_, err = ParseTrait("pure")
	assert.Error(t, err)
}

func TestSpeculatabilityNames(t *testing.T) {
	for i := 0; i < SpeculatabilityKinds; i++ {
		s := Speculatability(i)
		require.True(t, s.Valid())

		parsed, err := ParseSpeculatability(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)

		text, err := s.MarshalText()
		require.NoError(t, err)

		var back Speculatability
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}

	invalid := Speculatability(SpeculatabilityKinds)
	assert.False(t, invalid.Valid())
	assert.Equal(t, "speculatability(3)", invalid.String())
	_, err := invalid.MarshalText()
	assert.Error(t, err)

	_, err = ParseSpeculatability("maybe")
	assert.Error(t, err)
}
