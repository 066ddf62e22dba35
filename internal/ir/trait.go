package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Trait is a tag-only structural marker attached to an op definition.
type Trait uint32

const (
	// RecursiveMemoryEffects marks ops whose memory effects are not fully
	// described by their own effect interface: nested regions must be
	// checked as well.
	RecursiveMemoryEffects Trait = 1 << iota

	// Terminator marks ops that end a region.
	Terminator

	// IsolatedFromAbove marks ops whose regions cannot reference values
	// defined outside them.
	IsolatedFromAbove
)

var traitNames = map[Trait]string{
	RecursiveMemoryEffects: "recursive_memory_effects",
	Terminator:             "terminator",
	IsolatedFromAbove:      "isolated_from_above",
}

// String returns the trait's canonical name.
func (t Trait) String() string {
	if name, ok := traitNames[t]; ok {
		return name
	}
	return fmt.Sprintf("trait(%d)", uint32(t))
}

// ParseTrait maps a canonical name to a Trait.
func ParseTrait(name string) (Trait, error) {
	for t, n := range traitNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown trait %q", name)
}

// KnownTraits lists the canonical names of every trait, sorted.
func KnownTraits() []string {
	names := make([]string, 0, len(traitNames))
	for _, n := range traitNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TraitSet is a set of traits stored as a bitmask.
type TraitSet uint32

// NewTraitSet builds a set from the given traits.
func NewTraitSet(traits ...Trait) TraitSet {
	var s TraitSet
	for _, t := range traits {
		s = s.With(t)
	}
	return s
}

// Has reports membership.
func (s TraitSet) Has(t Trait) bool {
	return s&TraitSet(t) != 0
}

// With returns the set plus t.
func (s TraitSet) With(t Trait) TraitSet {
	return s | TraitSet(t)
}

// Names returns the canonical names of the traits in the set, sorted.
func (s TraitSet) Names() []string {
	var names []string
	for t, n := range traitNames {
		if s.Has(t) {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// String renders the set as a comma-separated list.
func (s TraitSet) String() string {
	return "[" + strings.Join(s.Names(), ",") + "]"
}
