package sync

import (
	"sync"
	"sync/atomic"
	"time"
)

// localIgnoreWindow is how long after an engine-driven write the watcher
// still treats file events as echoes of our own writes.
const localIgnoreWindow = 2 * time.Second

// EchoGuard suppresses watcher feedback from the engine's own disk writes.
// Writers flag the window explicitly; the watcher consults it before turning
// a file event into work.
type EchoGuard struct {
	ignoring      atomic.Bool
	mu            sync.Mutex
	lastCompleted time.Time
}

// SetIgnoring flags (or clears) the explicit suppression window around an
// engine-driven write.
func (g *EchoGuard) SetIgnoring(v bool) {
	g.ignoring.Store(v)
}

// Ignoring reports whether the engine is currently writing local files.
func (g *EchoGuard) Ignoring() bool {
	return g.ignoring.Load()
}

// MarkCompleted records the end of a processing action. Local events whose
// modification time falls inside localIgnoreWindow of this instant are
// treated as echoes.
func (g *EchoGuard) MarkCompleted() {
	g.mu.Lock()
	g.lastCompleted = time.Now()
	g.mu.Unlock()
}

// InEchoWindow reports whether mtime is close enough to the last completed
// action to be our own write.
func (g *EchoGuard) InEchoWindow(mtime time.Time) bool {
	g.mu.Lock()
	last := g.lastCompleted
	g.mu.Unlock()
	if last.IsZero() {
		return false
	}
	return mtime.Sub(last) < localIgnoreWindow && time.Since(last) < localIgnoreWindow
}
