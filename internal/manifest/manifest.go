// Package manifest persists the paired state between wiki documents and
// local markdown files.
package manifest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// FileName is the manifest file kept at the root of the synced folder.
const FileName = ".feishu-sync.json"

// Entry records the last-known server identity of one paired document.
type Entry struct {
	// File is the markdown path relative to the sync root, `/`-separated.
	File string `json:"file"`
	// RevisionID is the last observed server revision. 0 means unknown.
	RevisionID int64 `json:"revisionId"`
	// Title is the last known server title.
	Title string `json:"title"`
	// FileType is "doc" or "docx".
	FileType string `json:"fileType"`
	// Hash is the SHA-256 of the markdown content last known to match the
	// server. Empty means no completed transfer yet.
	Hash string `json:"hash"`
	// NodeToken is the document's position in the wiki tree.
	NodeToken string `json:"nodeToken,omitempty"`
}

type Manifest struct {
	SpaceID   string            `json:"spaceId"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Docs      map[string]*Entry `json:"docs"`
}

func New(spaceID string) *Manifest {
	return &Manifest{
		SpaceID: spaceID,
		Docs:    make(map[string]*Entry),
	}
}

// Path returns the manifest location for a sync root.
func Path(rootDir string) string {
	return filepath.Join(rootDir, FileName)
}

// Read loads the manifest from rootDir. A missing or malformed file yields
// an empty manifest, never an error: reconciliation re-derives state from
// scratch and a corrupt manifest must not wedge the engine.
func Read(rootDir string) *Manifest {
	m := New("")
	data, err := os.ReadFile(Path(rootDir))
	if err != nil {
		return m
	}
	if err := json.Unmarshal(data, m); err != nil {
		slog.Warn("manifest unreadable, starting empty", "path", Path(rootDir), "error", err)
		return New("")
	}
	if m.Docs == nil {
		m.Docs = make(map[string]*Entry)
	}
	return m
}

// Write persists the manifest atomically. The file on disk is always either
// the previous or the new complete JSON (write-temp-then-rename); a reader
// never observes a partial document.
func Write(rootDir string, m *Manifest) error {
	m.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest marshal: %w", err)
	}
	data = append(data, '\n')

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(rootDir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("manifest temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("manifest sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("manifest close: %w", err)
	}

	if err := os.Rename(tmpName, Path(rootDir)); err != nil {
		return fmt.Errorf("manifest rename: %w", err)
	}
	return nil
}

// EntryByFile finds the documentId paired with a relative path.
func (m *Manifest) EntryByFile(relPath string) (string, *Entry) {
	for docID, entry := range m.Docs {
		if entry.File == relPath {
			return docID, entry
		}
	}
	return "", nil
}
