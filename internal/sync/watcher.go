package sync

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rjeczalik/notify"
)

// Watcher turns filesystem notifications under the sync root into local
// change events. Filtering mirrors the walker: markdown only, no conflict
// copies, no manifest, no ignored directories.
type Watcher struct {
	rootDir string
	guard   *EchoGuard
	emit    func(relPath string)
}

func NewWatcher(rootDir string, guard *EchoGuard, emit func(relPath string)) *Watcher {
	return &Watcher{rootDir: rootDir, guard: guard, emit: emit}
}

// Run watches recursively until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	events := make(chan notify.EventInfo, 128)
	watchPath := filepath.Join(w.rootDir, "...")
	if err := notify.Watch(watchPath, events, notify.Create|notify.Write|notify.Remove|notify.Rename); err != nil {
		return err
	}
	defer notify.Stop(events)

	slog.Info("watching for local changes", "dir", w.rootDir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev notify.EventInfo) {
	path := ev.Path()
	if !IsSyncable(filepath.Base(path)) {
		return
	}

	rel, err := filepath.Rel(w.rootDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	rel = filepath.ToSlash(rel)

	for _, part := range strings.Split(rel, "/") {
		if _, skip := skippedDirs[part]; skip {
			return
		}
	}

	if w.guard.Ignoring() {
		slog.Debug("ignoring own write", "file", rel)
		return
	}

	slog.Debug("local change", "file", rel, "event", ev.Event().String())
	w.emit(rel)
}
