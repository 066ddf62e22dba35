package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileValidSpecs(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{sampleSpecsDir})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "✓ Compiled 7 op(s), 4 root(s)")
	assert.Contains(t, output, "scf.execute_region: traits [recursive_memory_effects], no effect interface, no speculation interface")
	assert.Contains(t, output, "guarded_add: scf.if, 4 op(s), depth 1")
}

func TestCompileValidSpecsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{sampleSpecsDir})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1", resp.Data.IRVersion)
	require.Len(t, resp.Data.Ops, 7)
	require.Len(t, resp.Data.Roots, 4)

	ops := make(map[string]OpSummary)
	for _, op := range resp.Data.Ops {
		ops[op.Name] = op
	}
	assert.Nil(t, ops["scf.execute_region"].Effects)
	require.NotNil(t, ops["arith.addi"].Effects)
	assert.Empty(t, *ops["arith.addi"].Effects)
	assert.Equal(t, []string{"write"}, *ops["memref.store"].Effects)
	assert.Equal(t, "recursively_speculatable", ops["scf.if"].Speculatability)

	for _, root := range resp.Data.Roots {
		assert.Len(t, root.Fingerprint, 64, root.Name)
		assert.Equal(t, root.Op, root.Tree["name"], root.Name)
	}
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{sampleSpecsDir, "--output", outputFile})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote IR to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Len(t, result.Roots, 4)
}

func TestCompileFingerprintStable(t *testing.T) {
	run := func() CompilationResult {
		buf := &bytes.Buffer{}
		cmd := NewCompileCommand(&RootOptions{Format: "json"})
		cmd.SetOut(buf)
		cmd.SetArgs([]string{sampleSpecsDir})
		require.NoError(t, cmd.Execute())

		var resp struct {
			Data CompilationResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		return resp.Data
	}

	first, second := run(), run()
	for i := range first.Roots {
		assert.Equal(t, first.Roots[i].Fingerprint, second.Roots[i].Fingerprint)
	}
}

func TestCompileNonExistentDir(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/specs"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestCompileEmptyDir(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Error [E003]")
}

func TestCompileCollectsAllErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"bad.cue": `package bad

op: "a.one": {traits: ["bogus"]}
op: "a.two": {speculatability: "sometimes"}
root: broken: {regions: []}
`,
	})

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   []CLIError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data, 3)

	var codes []string
	for _, e := range resp.Data {
		codes = append(codes, e.Code)
	}
	assert.ElementsMatch(t, []string{ErrCodeInvalidTrait, ErrCodeInvalidSpeculation, ErrCodeInvalidRoot}, codes)
}

func TestCompileTextErrors(t *testing.T) {
	dir := writeSpecs(t, map[string]string{
		"bad.cue": "package bad\n\nop: \"a.one\": {traits: [\"bogus\"]}\n",
	})

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.Error(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✗ Compilation failed")
	assert.Contains(t, buf.String(), "E102")
	assert.Contains(t, buf.String(), `unknown trait "bogus"`)
}
