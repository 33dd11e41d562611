package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMissingManifest(t *testing.T) {
	dir := t.TempDir()
	m := Read(dir)
	require.NotNil(t, m)
	assert.Empty(t, m.SpaceID)
	assert.Empty(t, m.Docs)
}

func TestReadCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(Path(dir), []byte("{not json"), 0o644))

	m := Read(dir)
	require.NotNil(t, m)
	assert.Empty(t, m.Docs)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := New("spc1")
	m.Docs["doc1"] = &Entry{
		File:       "Notes.md",
		RevisionID: 42,
		Title:      "Notes",
		FileType:   "docx",
		Hash:       "abc123",
		NodeToken:  "node1",
	}
	require.NoError(t, Write(dir, m))

	got := Read(dir)
	assert.Equal(t, "spc1", got.SpaceID)
	assert.False(t, got.UpdatedAt.IsZero())
	require.Contains(t, got.Docs, "doc1")
	assert.Equal(t, m.Docs["doc1"], got.Docs["doc1"])
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, New("spc1")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())
}

func TestWriteReplacesExisting(t *testing.T) {
	dir := t.TempDir()

	m := New("spc1")
	m.Docs["doc1"] = &Entry{File: "a.md", Hash: "h1"}
	require.NoError(t, Write(dir, m))

	m.Docs["doc1"].Hash = "h2"
	require.NoError(t, Write(dir, m))

	assert.Equal(t, "h2", Read(dir).Docs["doc1"].Hash)
}

func TestEntryByFile(t *testing.T) {
	m := New("spc1")
	m.Docs["doc1"] = &Entry{File: "a.md"}
	m.Docs["doc2"] = &Entry{File: "sub/b.md"}

	id, entry := m.EntryByFile("sub/b.md")
	assert.Equal(t, "doc2", id)
	require.NotNil(t, entry)

	id, entry = m.EntryByFile("missing.md")
	assert.Empty(t, id)
	assert.Nil(t, entry)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/x", FileName), Path("/x"))
}
