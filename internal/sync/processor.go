package sync

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
	"github.com/feishu-sync/feishu-sync/internal/manifest"
	"github.com/feishu-sync/feishu-sync/internal/utils"
)

const (
	// debounceInterval is how long after the last event an action fires.
	debounceInterval = 3 * time.Second
	// dedupeWindow bounds how long an event storm may keep deferring a
	// pending action before the armed timer is left to fire.
	dedupeWindow = 10 * time.Minute
)

type action int

const (
	actionRefresh action = iota
	actionUpload
	actionFullSync
)

func (a action) String() string {
	switch a {
	case actionRefresh:
		return "refresh"
	case actionUpload:
		return "upload"
	default:
		return "fullSync"
	}
}

type msgKind int

const (
	msgRemote msgKind = iota
	msgLocal
	msgFire
	msgScan
	msgFullSync
)

type procMsg struct {
	kind    msgKind
	event   *feishu.FileEvent
	relPath string
	docID   string
	action  action
	reason  string
}

type pendingKey struct {
	docID string
	act   action
}

type pendingState struct {
	firstAt time.Time
	timer   *time.Timer
}

// Processor serializes all change handling through a single consumer
// goroutine: events from every source land in the inbox, get debounced and
// deduplicated per document, and execute one at a time. Manifest and local
// file mutations in daemon mode all happen on this goroutine.
type Processor struct {
	api      RemoteAPI
	transfer *Transfer
	rootDir  string
	spaceID  string
	guard    *EchoGuard

	inbox    chan procMsg
	pending  map[pendingKey]*pendingState
	debounce time.Duration

	// afterFullSync lets the owner subscribe documents that a full pass
	// brought into the manifest. May be nil.
	afterFullSync func(ctx context.Context)
}

func NewProcessor(api RemoteAPI, rootDir, spaceID string, guard *EchoGuard, afterFullSync func(ctx context.Context)) *Processor {
	return &Processor{
		api:           api,
		transfer:      NewTransfer(api),
		rootDir:       rootDir,
		spaceID:       spaceID,
		guard:         guard,
		inbox:         make(chan procMsg, 256),
		pending:       make(map[pendingKey]*pendingState),
		debounce:      debounceInterval,
		afterFullSync: afterFullSync,
	}
}

// HandleRemoteEvent enqueues a drive event from the websocket stream.
func (p *Processor) HandleRemoteEvent(ev *feishu.FileEvent) {
	p.post(procMsg{kind: msgRemote, event: ev})
}

// HandleLocalEvent enqueues a watcher notification for a syncable file.
func (p *Processor) HandleLocalEvent(relPath string) {
	p.post(procMsg{kind: msgLocal, relPath: relPath})
}

// RequestScan enqueues a poller pass over the wiki space.
func (p *Processor) RequestScan() {
	p.post(procMsg{kind: msgScan})
}

// RequestFullSync schedules a debounced full reconciliation.
func (p *Processor) RequestFullSync(reason string) {
	p.post(procMsg{kind: msgFullSync, reason: reason})
}

func (p *Processor) post(msg procMsg) {
	select {
	case p.inbox <- msg:
	default:
		slog.Warn("change inbox full, dropping message", "kind", msg.kind)
	}
}

// Run consumes the inbox until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.stopTimers()
			return ctx.Err()
		case msg := <-p.inbox:
			p.handle(ctx, msg)
		}
	}
}

func (p *Processor) stopTimers() {
	for key, st := range p.pending {
		if st.timer != nil {
			st.timer.Stop()
		}
		delete(p.pending, key)
	}
}

func (p *Processor) handle(ctx context.Context, msg procMsg) {
	switch msg.kind {
	case msgRemote:
		p.handleRemote(msg.event)
	case msgLocal:
		p.handleLocal(msg.relPath)
	case msgFire:
		delete(p.pending, pendingKey{docID: msg.docID, act: msg.action})
		p.execute(ctx, msg.docID, msg.action, msg.reason)
	case msgScan:
		p.scan(ctx)
	case msgFullSync:
		p.schedule("", actionFullSync, msg.reason)
	}
}

func (p *Processor) handleRemote(ev *feishu.FileEvent) {
	if ev == nil || ev.FileToken == "" {
		return
	}
	switch ev.Type {
	case feishu.EventFileTrashed:
		// removal reshapes both sides, let a full pass converge them
		p.schedule("", actionFullSync, "document trashed")
	default:
		p.schedule(ev.FileToken, actionRefresh, string(ev.Type))
	}
}

func (p *Processor) handleLocal(relPath string) {
	path := filepath.Join(p.rootDir, filepath.FromSlash(relPath))
	if info, err := os.Stat(path); err == nil {
		if p.guard.InEchoWindow(info.ModTime()) {
			slog.Debug("ignoring echo of own write", "file", relPath)
			return
		}
	}

	m := manifest.Read(p.rootDir)
	docID, _ := m.EntryByFile(relPath)
	if docID == "" {
		// untracked file appeared or a tracked one vanished
		p.schedule("", actionFullSync, "local change to untracked file")
		return
	}
	p.schedule(docID, actionUpload, "local edit")
}

// schedule arms (or re-arms) the debounce timer for one (document, action)
// pair. Events keep pushing the timer back until dedupeWindow has elapsed
// since the first pending event, after which the armed timer fires as is.
func (p *Processor) schedule(docID string, act action, reason string) {
	key := pendingKey{docID: docID, act: act}
	now := time.Now()

	st := p.pending[key]
	if st == nil {
		st = &pendingState{firstAt: now}
		p.pending[key] = st
	} else if now.Sub(st.firstAt) >= dedupeWindow {
		return
	}

	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(p.debounce, func() {
		p.post(procMsg{kind: msgFire, docID: docID, action: act, reason: reason})
	})
}

func (p *Processor) execute(ctx context.Context, docID string, act action, reason string) {
	defer p.guard.MarkCompleted()
	slog.Debug("processing change", "action", act.String(), "documentId", docID, "reason", reason)

	var err error
	switch act {
	case actionRefresh:
		err = p.refresh(ctx, docID)
	case actionUpload:
		err = p.upload(ctx, docID)
	case actionFullSync:
		err = p.fullSync(ctx, reason)
	}
	if err != nil {
		slog.Error("change processing failed", "action", act.String(), "documentId", docID, "error", err)
	}
}

// refresh pulls one document down and updates the local file when content
// actually moved.
func (p *Processor) refresh(ctx context.Context, docID string) error {
	m := manifest.Read(p.rootDir)
	entry := m.Docs[docID]
	if entry == nil {
		return p.fullSync(ctx, "refresh for unknown document")
	}

	meta, md, err := p.transfer.Download(ctx, docID)
	if err != nil {
		if feishu.IsNotFound(err) {
			return p.fullSync(ctx, "document disappeared during refresh")
		}
		return err
	}

	// follow title renames
	used := make(map[string]struct{}, len(m.Docs))
	for id, e := range m.Docs {
		if id != docID {
			used[e.File] = struct{}{}
		}
	}
	desired := UniqueRelPath(DesiredFileName(meta.Title, docID), used)
	if desired != entry.File {
		oldPath := filepath.Join(p.rootDir, filepath.FromSlash(entry.File))
		newPath := filepath.Join(p.rootDir, filepath.FromSlash(desired))
		if utils.FileExists(oldPath) {
			p.guard.SetIgnoring(true)
			err := os.Rename(oldPath, newPath)
			p.guard.SetIgnoring(false)
			if err != nil {
				return err
			}
		}
		slog.Info("renamed local file to follow title", "from", entry.File, "to", desired)
		entry.File = desired
	}

	hash := utils.ContentHash([]byte(md))
	if hash != entry.Hash {
		path := filepath.Join(p.rootDir, filepath.FromSlash(entry.File))
		if err := utils.EnsureParent(path); err != nil {
			return err
		}
		p.guard.SetIgnoring(true)
		err := os.WriteFile(path, []byte(md), 0o644)
		p.guard.SetIgnoring(false)
		if err != nil {
			return err
		}
		entry.Hash = hash
		slog.Info("refreshed document", "documentId", docID, "file", entry.File)
	}
	entry.RevisionID = meta.RevisionID
	entry.Title = meta.Title

	return manifest.Write(p.rootDir, m)
}

// upload pushes one local file's content to its document.
func (p *Processor) upload(ctx context.Context, docID string) error {
	m := manifest.Read(p.rootDir)
	entry := m.Docs[docID]
	if entry == nil {
		return p.fullSync(ctx, "upload for unknown document")
	}

	path := filepath.Join(p.rootDir, filepath.FromSlash(entry.File))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p.fullSync(ctx, "local file disappeared before upload")
		}
		return err
	}

	hash := utils.ContentHash(data)
	if hash == entry.Hash {
		return nil
	}

	if err := p.transfer.Upload(ctx, docID, string(data)); err != nil {
		if feishu.IsNotFound(err) {
			return p.fullSync(ctx, "document disappeared during upload")
		}
		return err
	}
	meta, err := p.api.GetDocumentMeta(ctx, docID)
	if err != nil {
		return err
	}
	entry.RevisionID = meta.RevisionID
	entry.Title = meta.Title
	entry.Hash = hash
	slog.Info("uploaded document", "documentId", docID, "file", entry.File)

	return manifest.Write(p.rootDir, m)
}

func (p *Processor) fullSync(ctx context.Context, reason string) error {
	slog.Info("running full reconciliation", "reason", reason)
	r := NewReconciler(p.api, p.rootDir, p.spaceID, p.guard)
	if _, err := r.Run(ctx); err != nil {
		return err
	}
	if p.afterFullSync != nil {
		p.afterFullSync(ctx)
	}
	return nil
}

// scan is the poller pass: walk the wiki and trigger a full reconciliation
// when either side drifted from the manifest.
func (p *Processor) scan(ctx context.Context) {
	remote, err := BuildRemoteState(ctx, p.api, p.spaceID)
	if err != nil {
		slog.Error("poll walk failed", "error", err)
		return
	}
	m := manifest.Read(p.rootDir)

	drifted := false
	for docID, doc := range remote {
		entry := m.Docs[docID]
		if entry == nil || entry.RevisionID != doc.RevisionID {
			drifted = true
			break
		}
	}
	if !drifted {
		for docID := range m.Docs {
			if _, alive := remote[docID]; !alive {
				drifted = true
				break
			}
		}
	}
	if drifted {
		p.schedule("", actionFullSync, "poll detected drift")
	}
}
