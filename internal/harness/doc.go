// Package harness runs analysis scenarios described in YAML.
//
// # Scenario Format
//
//	name: hoist_guarded_add
//	description: "An if whose branches only add is safe to hoist"
//	dialect:
//	  - name: scf.if
//	    traits: [recursive_memory_effects]
//	    effects: []
//	    speculatability: recursively_speculatable
//	  - name: arith.addi
//	    effects: []
//	    speculatability: speculatable
//	roots:
//	  guarded_add:
//	    op: scf.if
//	    regions:
//	      - - op: arith.addi
//	expect:
//	  guarded_add:
//	    memory_effect_free: true
//	    speculatable: true
//
// Leaving out effects gives an op no effect interface, while an empty list
// declares it effect-free. Leaving out speculatability gives it no
// speculation interface. Ops used in roots but missing from the dialect
// are opaque.
//
// # Determinism
//
// Each scenario runs with its name as the run ID and a fresh in-memory
// store, so the report and its hash are identical across runs. Golden files
// hold a canonical JSON snapshot of the verdicts and explanations.
package harness
