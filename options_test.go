package stchunk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestLoadOptionsMissingFile(t *testing.T) {
	opts, err := LoadOptions(filepath.Join(t.TempDir(), "stchunk.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
	assert.True(t, opts.EmitBlocks())
}

func TestLoadOptionsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stchunk.yaml")
	content := `namespace: Plant
block_chunks: false
comment_chunks: true
max_block_depth: 3
`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	opts, err := LoadOptions(path)
	assert.NoError(t, err)
	assert.Equal(t, "Plant", opts.Namespace)
	assert.False(t, opts.EmitBlocks())
	assert.True(t, opts.CommentChunks)
	assert.Equal(t, 3, opts.MaxBlockDepth)
}

func TestLoadOptionsRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stchunk.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("namespce: typo\n"), 0o644))

	_, err := LoadOptions(path)
	assert.Error(t, err)
}

func TestNamespaceEnvOverride(t *testing.T) {
	t.Setenv("STCHUNK_NAMESPACE", "Cell01")

	opts, err := LoadOptions(filepath.Join(t.TempDir(), "stchunk.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, "Cell01", opts.Namespace)
}
