// Package ir provides the region-nested operation model analysed by sidefx.
//
// This package contains the IR contract and its generic implementation only.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Capabilities (memory effects, speculation) are optional and queried
//     through AsEffectInterface / AsSpeculatable, never assumed present
//   - Traits are tag-only bitflags, queried independently of capabilities
//   - Op variants are registered in a Registry; unregistered ops are opaque
//   - Fingerprints use canonical JSON and SHA-256 with domain separation
//
// Trees are assumed finite and acyclic. Nothing here guards against a
// region that (transitively) contains its own parent.
package ir
