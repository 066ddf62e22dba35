package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sidefx/internal/ir"
)

const minimalScenario = `
name: minimal
description: "one op"
dialect:
  - name: arith.addi
    effects: []
    speculatability: speculatable
roots:
  add:
    op: arith.addi
expect:
  add:
    memory_effect_free: true
    speculatable: true
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	require.Len(t, s.Dialect, 1)
	require.NotNil(t, s.Dialect[0].Effects)
	assert.Empty(t, *s.Dialect[0].Effects)
	assert.Equal(t, "arith.addi", s.Roots["add"].Op)
	assert.True(t, *s.Expect["add"].MemoryEffectFree)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "name: x\ndescription: y\nrootz: {}\n",
			wantErr: "field rootz not found",
		},
		{
			name:    "missing name",
			yaml:    "description: y\nroots: {a: {op: x.y}}\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: x\nroots: {a: {op: x.y}}\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: "description is required",
		},
		{
			name:    "no roots",
			yaml:    "name: x\ndescription: y\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: "roots map is required",
		},
		{
			name:    "no expectations",
			yaml:    "name: x\ndescription: y\nroots: {a: {op: x.y}}\n",
			wantErr: "expect map is required",
		},
		{
			name:    "expectation for unknown root",
			yaml:    "name: x\ndescription: y\nroots: {a: {op: x.y}}\nexpect: {b: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: "expect.b: no root with that name",
		},
		{
			name:    "missing verdict",
			yaml:    "name: x\ndescription: y\nroots: {a: {op: x.y}}\nexpect: {a: {speculatable: true}}\n",
			wantErr: "memory_effect_free is required",
		},
		{
			name:    "blocker on positive verdict",
			yaml:    "name: x\ndescription: y\nroots: {a: {op: x.y}}\nexpect: {a: {memory_effect_free: true, speculatable: true, memory_blocker: x.y}}\n",
			wantErr: "memory_blocker set on a memory effect free root",
		},
		{
			name:    "nested op missing",
			yaml:    "name: x\ndescription: y\nroots: {a: {op: x.y, regions: [[{}]]}}\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: "roots.a.regions[0][0]: op is required",
		},
		{
			name:    "unknown trait",
			yaml:    "name: x\ndescription: y\ndialect: [{name: x.y, traits: [pure]}]\nroots: {a: {op: x.y}}\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: `unknown trait "pure"`,
		},
		{
			name:    "unknown speculatability",
			yaml:    "name: x\ndescription: y\ndialect: [{name: x.y, speculatability: maybe}]\nroots: {a: {op: x.y}}\nexpect: {a: {memory_effect_free: true, speculatable: true}}\n",
			wantErr: `unknown speculatability "maybe"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadDir(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "hoisting", scenarios[0].Name)
	assert.Equal(t, "opaque", scenarios[1].Name)
}

func TestLoadDir_SkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), []byte(minimalScenario), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# scenarios"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "golden"), 0755))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "minimal", scenarios[0].Name)
}

func TestLoadDir_ReportsBadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: [unterminated"), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yaml")
}

func TestOpSpecDefinition(t *testing.T) {
	empty := []string{}
	tests := []struct {
		name       string
		spec       OpSpec
		hasEffects bool
		noEffect   bool
		hasSpec    bool
		recursive  bool
	}{
		{"opaque", OpSpec{Name: "a.b"}, false, false, false, false},
		{"effect free", OpSpec{Name: "a.b", Effects: &empty}, true, true, false, false},
		{"effectful", OpSpec{Name: "a.b", Effects: &[]string{"write"}}, true, false, false, false},
		{"speculatable container", OpSpec{Name: "a.b", Traits: []string{"recursive_memory_effects"}, Speculatability: "speculatable"}, false, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := tt.spec.Definition()
			require.NoError(t, err)

			op := ir.NewOp(def)
			effects, ok := op.EffectInterface()
			assert.Equal(t, tt.hasEffects, ok)
			if ok {
				assert.Equal(t, tt.noEffect, effects.HasNoEffect())
			}
			_, ok = op.SpeculationInterface()
			assert.Equal(t, tt.hasSpec, ok)
			assert.Equal(t, tt.recursive, op.HasTrait(ir.RecursiveMemoryEffects))
		})
	}
}

func TestNodeBuild(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	reg, err := s.Registry()
	require.NoError(t, err)

	node := Node{Op: "scf.if", Regions: [][]Node{
		{{Op: "arith.addi"}, {Op: "arith.addi"}},
		{},
	}}
	op := node.Build(reg)

	assert.False(t, op.Registered())
	require.Len(t, op.Regions(), 2)
	assert.Len(t, op.Regions()[0].Operations(), 2)
	assert.True(t, op.Regions()[1].Empty())
	assert.Equal(t, 3, ir.Count(op))
}

func TestScenarioRegistry_Duplicate(t *testing.T) {
	s := &Scenario{Dialect: []OpSpec{{Name: "a.b"}, {Name: "a.b"}}}
	_, err := s.Registry()
	require.Error(t, err)
}
