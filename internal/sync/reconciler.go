package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
	"github.com/feishu-sync/feishu-sync/internal/manifest"
	"github.com/feishu-sync/feishu-sync/internal/utils"
)

// Counters summarizes one reconciliation pass.
type Counters struct {
	Downloaded    int
	Uploaded      int
	DeletedLocal  int
	DeletedRemote int
	Conflicts     int
	Skipped       int
}

func (c *Counters) String() string {
	return fmt.Sprintf("downloaded=%d uploaded=%d deletedLocal=%d deletedRemote=%d conflicts=%d skipped=%d",
		c.Downloaded, c.Uploaded, c.DeletedLocal, c.DeletedRemote, c.Conflicts, c.Skipped)
}

// Reconciler converges the wiki space and the local directory in a single
// pass: enumerate both sides, pair through the manifest, act per pairing,
// persist the manifest once at the end.
type Reconciler struct {
	api      RemoteAPI
	transfer *Transfer
	rootDir  string
	spaceID  string
	guard    *EchoGuard // nil in one-shot mode
}

func NewReconciler(api RemoteAPI, rootDir, spaceID string, guard *EchoGuard) *Reconciler {
	return &Reconciler{
		api:      api,
		transfer: NewTransfer(api),
		rootDir:  rootDir,
		spaceID:  spaceID,
		guard:    guard,
	}
}

// Run executes one full reconciliation pass. Per-document failures are
// logged and skipped so one bad document cannot wedge the pass; enumeration
// failures abort it.
func (r *Reconciler) Run(ctx context.Context) (*Counters, error) {
	m := manifest.Read(r.rootDir)
	if m.SpaceID != "" && m.SpaceID != r.spaceID {
		slog.Warn("manifest belongs to a different wiki space, repairing",
			"manifestSpaceId", m.SpaceID, "configuredSpaceId", r.spaceID)
	}
	m.SpaceID = r.spaceID

	if err := utils.EnsureDir(r.rootDir); err != nil {
		return nil, err
	}

	local, err := BuildLocalState(ctx, r.rootDir)
	if err != nil {
		return nil, fmt.Errorf("enumerate local files: %w", err)
	}
	remote, err := BuildRemoteState(ctx, r.api, r.spaceID)
	if err != nil {
		return nil, fmt.Errorf("enumerate wiki space: %w", err)
	}

	used := make(map[string]struct{}, len(local)+len(m.Docs))
	for rel := range local {
		used[rel] = struct{}{}
	}
	for _, e := range m.Docs {
		used[e.File] = struct{}{}
	}

	c := &Counters{}

	for docID, doc := range remote {
		if err := r.reconcileRemoteDoc(ctx, m, local, used, docID, doc, c); err != nil {
			slog.Error("reconcile document failed", "documentId", docID, "error", err)
		}
	}

	// manifest entries whose document vanished from the wiki
	for docID, entry := range m.Docs {
		if _, alive := remote[docID]; alive {
			continue
		}
		if lf, ok := local[entry.File]; ok {
			if err := r.removeLocal(lf.Path); err != nil {
				slog.Error("remove local file failed", "file", entry.File, "error", err)
				continue
			}
			delete(local, entry.File)
		}
		delete(used, entry.File)
		delete(m.Docs, docID)
		c.DeletedLocal++
		slog.Info("removed local copy of deleted document", "documentId", docID, "file", entry.File)
	}

	// local files with no manifest pairing become new documents
	paired := make(map[string]struct{}, len(m.Docs))
	for _, e := range m.Docs {
		paired[e.File] = struct{}{}
	}
	for rel, lf := range local {
		if _, ok := paired[rel]; ok {
			continue
		}
		if err := r.createRemoteDoc(ctx, m, lf, c); err != nil {
			slog.Error("create document from local file failed", "file", rel, "error", err)
		}
	}

	if err := manifest.Write(r.rootDir, m); err != nil {
		return c, fmt.Errorf("persist manifest: %w", err)
	}

	slog.Info("reconciliation pass complete", "counters", c.String())
	return c, nil
}

func (r *Reconciler) reconcileRemoteDoc(ctx context.Context, m *manifest.Manifest, local map[string]*LocalFile, used map[string]struct{}, docID string, doc *RemoteDoc, c *Counters) error {
	entry := m.Docs[docID]

	if entry == nil {
		// new remote document: download to a fresh unique path
		rel := UniqueRelPath(DesiredFileName(doc.Title, docID), used)
		meta, md, err := r.transfer.Download(ctx, docID)
		if err != nil {
			return err
		}
		if err := r.writeLocal(rel, md); err != nil {
			return err
		}
		m.Docs[docID] = &manifest.Entry{
			File:       rel,
			RevisionID: meta.RevisionID,
			Title:      meta.Title,
			FileType:   doc.FileType,
			Hash:       utils.ContentHash([]byte(md)),
			NodeToken:  doc.NodeToken,
		}
		used[rel] = struct{}{}
		c.Downloaded++
		slog.Info("downloaded new document", "documentId", docID, "file", rel)
		return nil
	}

	// title renames move the local file before content is compared
	delete(used, entry.File)
	desired := UniqueRelPath(DesiredFileName(doc.Title, docID), used)
	if desired != entry.File {
		if lf, ok := local[entry.File]; ok {
			newPath := filepath.Join(r.rootDir, filepath.FromSlash(desired))
			if err := r.renameLocal(lf.Path, newPath); err != nil {
				used[entry.File] = struct{}{}
				return fmt.Errorf("rename %s to %s: %w", entry.File, desired, err)
			}
			lf.Path = newPath
			lf.RelPath = desired
			local[desired] = lf
			delete(local, entry.File)
		}
		slog.Info("renamed local file to follow title", "from", entry.File, "to", desired)
		entry.File = desired
	}
	used[entry.File] = struct{}{}

	lf := local[entry.File]
	if lf == nil {
		// local file gone; only delete remote when the manifest proves we
		// once held its content
		if entry.Hash == "" {
			meta, md, err := r.transfer.Download(ctx, docID)
			if err != nil {
				return err
			}
			if err := r.writeLocal(entry.File, md); err != nil {
				return err
			}
			entry.RevisionID = meta.RevisionID
			entry.Title = meta.Title
			entry.Hash = utils.ContentHash([]byte(md))
			entry.NodeToken = doc.NodeToken
			c.Downloaded++
			slog.Info("restored missing local file", "documentId", docID, "file", entry.File)
			return nil
		}
		if err := r.api.DeleteFile(ctx, docID, fileTypeOf(entry, doc)); err != nil && !feishu.IsNotFound(err) {
			return fmt.Errorf("delete remote document: %w", err)
		}
		delete(used, entry.File)
		delete(m.Docs, docID)
		c.DeletedRemote++
		slog.Info("deleted remote document after local removal", "documentId", docID, "file", entry.File)
		return nil
	}

	// an unknown baseline counts as changed on that side, so a document with
	// a partial manifest entry can only converge through the conflict path,
	// never by overwriting one side
	localChanged := entry.Hash == "" || lf.Hash != entry.Hash
	remoteChanged := entry.RevisionID == 0 || doc.RevisionID != entry.RevisionID

	switch {
	case localChanged && remoteChanged:
		// both sides moved: keep the local file, drop the remote next to it
		_, md, err := r.transfer.Download(ctx, docID)
		if err != nil {
			return err
		}
		conflictRel := strings.TrimSuffix(entry.File, ".md") + remoteCopySuffix
		if err := r.writeLocal(conflictRel, md); err != nil {
			return err
		}
		c.Conflicts++
		slog.Warn("conflicting edits, wrote remote copy alongside local file",
			"documentId", docID, "file", entry.File, "remoteCopy", conflictRel)

	case remoteChanged:
		meta, md, err := r.transfer.Download(ctx, docID)
		if err != nil {
			return err
		}
		if err := r.writeLocal(entry.File, md); err != nil {
			return err
		}
		entry.RevisionID = meta.RevisionID
		entry.Title = meta.Title
		entry.FileType = doc.FileType
		entry.Hash = utils.ContentHash([]byte(md))
		entry.NodeToken = doc.NodeToken
		c.Downloaded++
		slog.Info("downloaded updated document", "documentId", docID, "file", entry.File)

	case localChanged:
		data, err := os.ReadFile(lf.Path)
		if err != nil {
			return err
		}
		if err := r.transfer.Upload(ctx, docID, string(data)); err != nil {
			return err
		}
		meta, err := r.api.GetDocumentMeta(ctx, docID)
		if err != nil {
			return err
		}
		entry.RevisionID = meta.RevisionID
		entry.Title = meta.Title
		entry.Hash = lf.Hash
		entry.NodeToken = doc.NodeToken
		c.Uploaded++
		slog.Info("uploaded local changes", "documentId", docID, "file", entry.File)

	default:
		entry.RevisionID = doc.RevisionID
		entry.Title = doc.Title
		entry.FileType = doc.FileType
		entry.NodeToken = doc.NodeToken
		c.Skipped++
	}

	return nil
}

func (r *Reconciler) createRemoteDoc(ctx context.Context, m *manifest.Manifest, lf *LocalFile, c *Counters) error {
	data, err := os.ReadFile(lf.Path)
	if err != nil {
		return err
	}
	docID, nodeToken, err := r.transfer.CreateFromLocal(ctx, r.spaceID, string(data))
	if err != nil {
		return err
	}
	meta, err := r.api.GetDocumentMeta(ctx, docID)
	if err != nil {
		return err
	}
	m.Docs[docID] = &manifest.Entry{
		File:       lf.RelPath,
		RevisionID: meta.RevisionID,
		Title:      meta.Title,
		FileType:   feishu.FileTypeDocx,
		Hash:       lf.Hash,
		NodeToken:  nodeToken,
	}
	c.Uploaded++
	slog.Info("created remote document from local file", "documentId", docID, "file", lf.RelPath)
	return nil
}

// writeLocal writes content under the sync root with the echo guard raised.
func (r *Reconciler) writeLocal(relPath, content string) error {
	path := filepath.Join(r.rootDir, filepath.FromSlash(relPath))
	if err := utils.EnsureParent(path); err != nil {
		return err
	}
	if r.guard != nil {
		r.guard.SetIgnoring(true)
		defer r.guard.SetIgnoring(false)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func (r *Reconciler) renameLocal(oldPath, newPath string) error {
	if r.guard != nil {
		r.guard.SetIgnoring(true)
		defer r.guard.SetIgnoring(false)
	}
	return os.Rename(oldPath, newPath)
}

func (r *Reconciler) removeLocal(path string) error {
	if r.guard != nil {
		r.guard.SetIgnoring(true)
		defer r.guard.SetIgnoring(false)
	}
	return os.Remove(path)
}

func fileTypeOf(entry *manifest.Entry, doc *RemoteDoc) string {
	if entry.FileType != "" {
		return entry.FileType
	}
	if doc != nil && doc.FileType != "" {
		return doc.FileType
	}
	return feishu.FileTypeDocx
}
