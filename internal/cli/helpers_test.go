package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleSpecsDir is the shared CUE fixture at the repository root.
var sampleSpecsDir = filepath.Join("..", "..", "testdata", "specs")

// writeSpecs writes CUE files into a fresh temp dir and returns it.
func writeSpecs(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}
