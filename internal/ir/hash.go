package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOp     = "sidefx/op/v1"
	DomainReport = "sidefx/report/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes a stable content hash of the op tree rooted at op:
// names, traits, declared capabilities and region structure.
func Fingerprint(op Operation) (string, error) {
	canonical, err := MarshalCanonical(CanonicalTree(op))
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", op.Name(), err)
	}
	return HashWithDomain(DomainOp, canonical), nil
}

// CanonicalTree converts an op tree into plain maps suitable for
// MarshalCanonical. Absent capabilities are omitted rather than encoded as
// null.
func CanonicalTree(op Operation) map[string]any {
	node := map[string]any{
		"name": op.Name(),
	}

	var traits []string
	for _, name := range KnownTraits() {
		t, _ := ParseTrait(name)
		if op.HasTrait(t) {
			traits = append(traits, name)
		}
	}
	if len(traits) > 0 {
		node["traits"] = traits
	}

	if h, ok := AsEffectInterface(op); ok {
		node["has_no_effect"] = h.HasNoEffect()
	}
	if h, ok := AsSpeculatable(op); ok {
		node["speculatability"] = h.Speculatability().String()
	}

	if regions := op.Regions(); len(regions) > 0 {
		rs := make([]any, len(regions))
		for i, region := range regions {
			ops := make([]any, len(region.Operations()))
			for j, nested := range region.Operations() {
				ops[j] = CanonicalTree(nested)
			}
			rs[i] = ops
		}
		node["regions"] = rs
	}

	return node
}
