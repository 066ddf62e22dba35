package ir

import "fmt"

// Speculatability classifies whether an op may execute speculatively.
type Speculatability uint8

const (
	// NotSpeculatable ops must never be hoisted out of their guard.
	NotSpeculatable Speculatability = iota

	// Speculatable ops are safe to execute speculatively regardless of what
	// their regions contain.
	Speculatable

	// RecursivelySpeculatable ops are safe only if every op nested in their
	// regions is speculatable too.
	RecursivelySpeculatable

	// SpeculatabilityKinds is the number of classifications. Dispatch sites
	// assert on it at compile time.
	SpeculatabilityKinds = iota
)

var speculatabilityNames = [SpeculatabilityKinds]string{
	NotSpeculatable:         "not_speculatable",
	Speculatable:            "speculatable",
	RecursivelySpeculatable: "recursively_speculatable",
}

// Valid reports whether s is one of the declared classifications.
func (s Speculatability) Valid() bool {
	return s < SpeculatabilityKinds
}

// String returns the canonical name of s.
func (s Speculatability) String() string {
	if !s.Valid() {
		return fmt.Sprintf("speculatability(%d)", uint8(s))
	}
	return speculatabilityNames[s]
}

// ParseSpeculatability maps a canonical name to a classification.
func ParseSpeculatability(name string) (Speculatability, error) {
	for i, n := range speculatabilityNames {
		if n == name {
			return Speculatability(i), nil
		}
	}
	return 0, fmt.Errorf("unknown speculatability %q", name)
}

// Speculatability implements SpeculatabilityHandle so a bare classification
// can be returned as a handle.
func (s Speculatability) Speculatability() Speculatability {
	return s
}

// MarshalText implements encoding.TextMarshaler.
func (s Speculatability) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid speculatability %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Speculatability) UnmarshalText(text []byte) error {
	v, err := ParseSpeculatability(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
