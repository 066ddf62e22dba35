package sideeffect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/sidefx/internal/ir"
	"github.com/roach88/sidefx/internal/testutil"
)

func TestExplainMemoryEffects(t *testing.T) {
	tests := []struct {
		name   string
		op     ir.Operation
		want   Explanation
		render string
	}{
		{
			name:   "pure leaf",
			op:     testutil.NewOp("arith.addi", testutil.NoEffect()),
			want:   Explanation{Verdict: true},
			render: "yes",
		},
		{
			name:   "opaque root",
			op:     testutil.NewOp("vendor.call"),
			want:   Explanation{Reason: ReasonOpaque, Path: []string{"vendor.call"}},
			render: "no (opaque at vendor.call)",
		},
		{
			name: "effect nested two levels down",
			op: testutil.NewOp("scf.for", testutil.NoEffect(), testutil.Recursive(),
				testutil.Region(
					testutil.NewOp("arith.addi", testutil.NoEffect()),
					testutil.NewOp("scf.if", testutil.Recursive(),
						testutil.Region(testutil.NewOp("memref.store", testutil.WithEffect()))),
				)),
			want:   Explanation{Reason: ReasonEffectDeclared, Path: []string{"scf.for", "scf.if", "memref.store"}},
			render: "no (effect_declared at scf.for > scf.if > memref.store)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExplainMemoryEffects(tt.op)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.render, got.String())
		})
	}
}

func TestExplainSpeculation(t *testing.T) {
	tests := []struct {
		name string
		op   ir.Operation
		want Explanation
	}{
		{
			name: "sealed speculatable",
			op: testutil.NewOp("test.sealed", testutil.Speculation(ir.Speculatable),
				testutil.Region(testutil.NewOp("test.div", testutil.Speculation(ir.NotSpeculatable)))),
			want: Explanation{Verdict: true},
		},
		{
			name: "missing interface",
			op:   testutil.NewOp("test.opaque"),
			want: Explanation{Reason: ReasonNoInterface, Path: []string{"test.opaque"}},
		},
		{
			name: "not speculatable in second region",
			op: testutil.NewOp("scf.if", testutil.Speculation(ir.RecursivelySpeculatable),
				testutil.Region(testutil.NewOp("arith.addi", testutil.Speculation(ir.Speculatable))),
				testutil.Region(testutil.NewOp("arith.divsi", testutil.Speculation(ir.NotSpeculatable))),
			),
			want: Explanation{Reason: ReasonNotSpeculatable, Path: []string{"scf.if", "arith.divsi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExplainSpeculation(tt.op))
		})
	}
}

func TestExplanationPathsDoNotAlias(t *testing.T) {
	// Siblings share the parent's path prefix; the returned path must not
	// be overwritten by later traversal.
	op := testutil.NewOp("root", testutil.Recursive(),
		testutil.Region(
			testutil.NewOp("a", testutil.Recursive(), testutil.Region(testutil.NewOp("a.leaf", testutil.NoEffect()))),
			testutil.NewOp("b", testutil.Recursive(), testutil.Region(testutil.NewOp("b.leaf"))),
		))

	got := ExplainMemoryEffects(op)
	assert.Equal(t, []string{"root", "b", "b.leaf"}, got.Path)
	assert.Equal(t, "b.leaf", got.Blocker())
	assert.Equal(t, "", Explanation{Verdict: true}.Blocker())
}
