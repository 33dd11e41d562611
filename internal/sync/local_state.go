package sync

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/feishu-sync/feishu-sync/internal/manifest"
	"github.com/feishu-sync/feishu-sync/internal/utils"
)

const remoteCopySuffix = ".remote.md"

// LocalFile is one syncable markdown file with its content digest.
type LocalFile struct {
	Path    string // absolute path
	RelPath string // `/`-separated path relative to the sync root
	Hash    string // SHA-256 of content
}

// skippedDirs are never descended into.
var skippedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
}

// IsSyncable reports whether a file name participates in sync: `.md` files
// that are not conflict copies and not the manifest.
func IsSyncable(name string) bool {
	if name == manifest.FileName {
		return false
	}
	if strings.HasSuffix(name, remoteCopySuffix) {
		return false
	}
	return strings.HasSuffix(name, ".md")
}

// BuildLocalState walks rootDir and returns the syncable files keyed by
// relative path.
func BuildLocalState(ctx context.Context, rootDir string) (map[string]*LocalFile, error) {
	state := make(map[string]*LocalFile)

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != rootDir {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSyncable(d.Name()) {
			return nil
		}

		relPath, err := filepath.Rel(rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		hash, err := utils.FileHash(path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}

		state[relPath] = &LocalFile{
			Path:    path,
			RelPath: relPath,
			Hash:    hash,
		}
		return nil
	}

	if err := filepath.WalkDir(rootDir, walkFn); err != nil {
		return nil, err
	}
	return state, nil
}
