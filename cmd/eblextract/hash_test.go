package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNameList(t *testing.T) {
	dir := t.TempDir()

	clean := filepath.Join(dir, "clean.txt")
	require.NoError(t, os.WriteFile(clean, []byte("/a.txt\n/b.txt\n/a.txt\n/A.TXT\n\\b.txt\n"), 0o644))
	assert.NoError(t, checkNameList(clean))

	colliding := filepath.Join(dir, "colliding.txt")
	require.NoError(t, os.WriteFile(colliding, []byte("/a_\n/b:\n"), 0o644))
	assert.Error(t, checkNameList(colliding))

	assert.Error(t, checkNameList(filepath.Join(dir, "missing.txt")))
}
