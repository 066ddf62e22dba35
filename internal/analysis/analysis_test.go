package analysis

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sidefx/internal/ir"
	"github.com/roach88/sidefx/internal/sideeffect"
	"github.com/roach88/sidefx/internal/testutil"
)

func quietOptions() Options {
	return Options{Logger: testutil.DiscardLogger()}
}

func sampleRoots() []Root {
	return []Root{
		{Name: "store_in_if", Op: testutil.NewOp("scf.if",
			testutil.NoEffect(), testutil.Recursive(), testutil.Speculation(ir.RecursivelySpeculatable),
			testutil.Region(testutil.NewOp("memref.store", testutil.WithEffect(), testutil.Speculation(ir.NotSpeculatable))),
		)},
		{Name: "add", Op: testutil.NewOp("arith.addi", testutil.NoEffect(), testutil.Speculation(ir.Speculatable))},
		{Name: "call", Op: testutil.NewOp("func.call")},
	}
}

func TestRun_Verdicts(t *testing.T) {
	report, err := Run(context.Background(), sampleRoots(), quietOptions())
	require.NoError(t, err)

	require.Len(t, report.Roots, 3)
	assert.Equal(t, []string{"add", "call", "store_in_if"},
		[]string{report.Roots[0].Name, report.Roots[1].Name, report.Roots[2].Name},
		"results are ordered by root name")

	add, ok := report.Root("add")
	require.True(t, ok)
	assert.True(t, add.MemoryEffectFree)
	assert.True(t, add.Speculatable)
	assert.Equal(t, 1, add.OpCount)
	assert.Equal(t, 0, add.Depth)

	call, _ := report.Root("call")
	assert.False(t, call.MemoryEffectFree)
	assert.Equal(t, sideeffect.ReasonOpaque, call.Memory.Reason)
	assert.Equal(t, sideeffect.ReasonNoInterface, call.Speculation.Reason)

	store, _ := report.Root("store_in_if")
	assert.False(t, store.MemoryEffectFree)
	assert.False(t, store.Speculatable)
	assert.Equal(t, "memref.store", store.Memory.Blocker())
	assert.Equal(t, "memref.store", store.Speculation.Blocker())
	assert.Equal(t, 2, store.OpCount)
	assert.Equal(t, 1, store.Depth)

	assert.Equal(t, Summary{Roots: 3, Ops: 4, MemoryEffectFree: 1, Speculatable: 1}, report.Summary)
	assert.Len(t, report.Hash, 64)
	assert.Equal(t, ir.AnalyzerVersion, report.Version)

	_, ok = report.Root("missing")
	assert.False(t, ok)
}

func TestRun_GeneratesUUIDv7RunID(t *testing.T) {
	report, err := Run(context.Background(), sampleRoots(), quietOptions())
	require.NoError(t, err)

	id, err := uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
}

func TestRun_HashIndependentOfRunAndOrder(t *testing.T) {
	opts := quietOptions()
	opts.RunID = "run-a"
	opts.Concurrency = 1
	a, err := Run(context.Background(), sampleRoots(), opts)
	require.NoError(t, err)

	reversed := sampleRoots()
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	opts.RunID = "run-b"
	opts.Concurrency = 8
	b, err := Run(context.Background(), reversed, opts)
	require.NoError(t, err)

	assert.Equal(t, "run-a", a.RunID)
	assert.Equal(t, "run-b", b.RunID)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Roots, b.Roots)
}

func TestRun_HashChangesWithVerdict(t *testing.T) {
	a, err := Run(context.Background(), []Root{{Name: "x", Op: testutil.NewOp("test.op", testutil.NoEffect())}}, quietOptions())
	require.NoError(t, err)
	b, err := Run(context.Background(), []Root{{Name: "x", Op: testutil.NewOp("test.op", testutil.WithEffect())}}, quietOptions())
	require.NoError(t, err)

	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestRun_RejectsBadRoots(t *testing.T) {
	op := testutil.NewOp("test.op")
	tests := []struct {
		name  string
		roots []Root
		msg   string
	}{
		{"empty name", []Root{{Op: op}}, "name is required"},
		{"nil op", []Root{{Name: "a"}}, "op is nil"},
		{"duplicate", []Root{{Name: "a", Op: op}, {Name: "a", Op: op}}, "duplicate name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.roots, quietOptions())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, sampleRoots(), quietOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyRoots(t *testing.T) {
	report, err := Run(context.Background(), nil, quietOptions())
	require.NoError(t, err)
	assert.Empty(t, report.Roots)
	assert.Equal(t, Summary{}, report.Summary)
	assert.NotEmpty(t, report.Hash)
}

func deepChain(depth int) ir.Operation {
	op := testutil.NewOp("test.leaf", testutil.NoEffect())
	for i := 0; i < depth; i++ {
		op = testutil.NewOp("test.region", testutil.Recursive(), testutil.Region(op))
	}
	return op
}

func TestRun_DepthWarnings(t *testing.T) {
	opts := quietOptions()
	opts.MaxDepth = 8

	report, err := Run(context.Background(), []Root{
		{Name: "deep", Op: deepChain(10)},
		{Name: "near", Op: deepChain(7)},
		{Name: "shallow", Op: deepChain(2)},
	}, opts)
	require.NoError(t, err)

	require.Len(t, report.Warnings, 2)
	assert.Equal(t, "deep", report.Warnings[0].Root)
	assert.Equal(t, "warning", report.Warnings[0].Level)
	assert.Equal(t, 10, report.Warnings[0].Depth)
	assert.Equal(t, "near", report.Warnings[1].Root)
	assert.Equal(t, "info", report.Warnings[1].Level)

	deep, _ := report.Root("deep")
	assert.True(t, deep.MemoryEffectFree, "depth warnings never change verdicts")
}

func TestCheckDepth_Disabled(t *testing.T) {
	results := []RootResult{{Name: "deep", Depth: 1000}}
	assert.Nil(t, CheckDepth(results, -1))
	assert.Len(t, CheckDepth(results, 10), 1)
}
