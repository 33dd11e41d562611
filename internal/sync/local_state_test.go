package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feishu-sync/feishu-sync/internal/manifest"
	"github.com/feishu-sync/feishu-sync/internal/utils"
)

func TestBuildLocalState(t *testing.T) {
	dir := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, utils.EnsureParent(path))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	write("top.md", "one")
	write("sub/nested.md", "two")
	write("readme.txt", "not markdown")
	write("conflict.remote.md", "conflict copy")
	write(manifest.FileName, "{}")
	write(".git/objects/blob.md", "inside git")
	write("node_modules/pkg/doc.md", "inside node_modules")

	state, err := BuildLocalState(context.Background(), dir)
	require.NoError(t, err)

	assert.Len(t, state, 2)
	require.Contains(t, state, "top.md")
	require.Contains(t, state, "sub/nested.md")

	lf := state["top.md"]
	assert.Equal(t, filepath.Join(dir, "top.md"), lf.Path)
	assert.Equal(t, utils.ContentHash([]byte("one")), lf.Hash)
}

func TestIsSyncable(t *testing.T) {
	assert.True(t, IsSyncable("doc.md"))
	assert.False(t, IsSyncable("doc.txt"))
	assert.False(t, IsSyncable("doc.remote.md"))
	assert.False(t, IsSyncable(manifest.FileName))
}
