package ir

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryEffects is an op's declared memory effect interface.
// An empty Effects list declares the op itself effect-free.
type MemoryEffects struct {
	Effects []string `json:"effects"` // e.g. "read", "write", "allocate"
}

// HasNoEffect implements EffectHandle.
func (m *MemoryEffects) HasNoEffect() bool {
	return len(m.Effects) == 0
}

// OpDefinition registers one op variant: its traits and the capabilities it
// declares. A nil MemoryEffects or Speculation means the op does not
// implement that interface.
type OpDefinition struct {
	Name          string           `json:"name"`
	Summary       string           `json:"summary,omitempty"`
	Traits        TraitSet         `json:"-"`
	MemoryEffects *MemoryEffects   `json:"memory_effects,omitempty"`
	Speculation   *Speculatability `json:"speculatability,omitempty"`
}

// Dialect returns the prefix before the first dot of the op name.
func (d *OpDefinition) Dialect() string {
	dialect, _, found := strings.Cut(d.Name, ".")
	if !found {
		return ""
	}
	return dialect
}

// DuplicateOpError is returned when an op name is registered twice.
type DuplicateOpError struct {
	Name string
}

func (e *DuplicateOpError) Error() string {
	return fmt.Sprintf("op %q already registered", e.Name)
}

// Registry maps op names to their definitions.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*OpDefinition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*OpDefinition)}
}

// Register adds a definition. Names must be unique.
func (r *Registry) Register(def *OpDefinition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("register: op definition must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return &DuplicateOpError{Name: def.Name}
	}
	r.defs[def.Name] = def
	return nil
}

// MustRegister is like Register but panics on error. Intended for tests and
// static dialect tables.
func (r *Registry) MustRegister(defs ...*OpDefinition) *Registry {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*OpDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns all registered op names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Create instantiates an op of the named variant. Unregistered names
// produce an opaque op with no capabilities and no traits.
func (r *Registry) Create(name string) *GenericOp {
	def, ok := r.Lookup(name)
	if !ok {
		return NewUnregisteredOp(name)
	}
	return NewOp(def)
}
