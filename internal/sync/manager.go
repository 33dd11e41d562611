package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	gosync "sync"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/feishu-sync/feishu-sync/internal/config"
	"github.com/feishu-sync/feishu-sync/internal/feishu"
	"github.com/feishu-sync/feishu-sync/internal/manifest"
	"github.com/feishu-sync/feishu-sync/internal/utils"
)

const lockFileName = ".feishu-sync.lock"

// ErrAlreadyRunning means another daemon holds the sync directory lock.
var ErrAlreadyRunning = errors.New("sync: another instance is already syncing this directory")

// Manager wires the event sources to the processor and runs the daemon:
// lock the directory, reconcile once, subscribe tracked documents, then keep
// the websocket stream, the watcher and the poller feeding the processor.
type Manager struct {
	cfg       *config.Config
	sdk       *feishu.SDK
	api       RemoteAPI
	guard     *EchoGuard
	processor *Processor

	mu         gosync.Mutex
	subscribed map[string]struct{}
}

func NewManager(cfg *config.Config) (*Manager, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	sdk, err := feishu.New(feishu.DefaultBaseURL, token)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:        cfg,
		sdk:        sdk,
		api:        NewRemoteAPI(sdk),
		guard:      &EchoGuard{},
		subscribed: make(map[string]struct{}),
	}
	m.processor = NewProcessor(m.api, cfg.Sync.FolderPath, cfg.WikiSpaceID, m.guard, m.subscribeTracked)
	return m, nil
}

// Run blocks until ctx is cancelled or a source fails fatally.
func (m *Manager) Run(ctx context.Context) error {
	rootDir := m.cfg.Sync.FolderPath
	if err := utils.EnsureDir(rootDir); err != nil {
		return err
	}

	lock := flock.New(filepath.Join(rootDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire sync lock: %w", err)
	}
	if !locked {
		return ErrAlreadyRunning
	}
	defer lock.Unlock()
	defer m.sdk.Close()

	if m.cfg.Sync.InitialSync {
		r := NewReconciler(m.api, rootDir, m.cfg.WikiSpaceID, m.guard)
		if _, err := r.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// the poller converges later, a failed first pass is not fatal
			slog.Error("initial reconciliation failed", "error", err)
		}
	}

	m.subscribeTracked(ctx)

	for _, eventType := range feishu.AllEventTypes {
		if err := m.sdk.Events.Handle(eventType, m.processor.HandleRemoteEvent); err != nil {
			return err
		}
	}
	if err := m.sdk.Events.Connect(ctx); err != nil {
		// reconnect logic only runs on an established stream; without one
		// the poller is the sole remote source
		slog.Error("event stream unavailable, relying on polling", "error", err)
	}

	watcher := NewWatcher(rootDir, m.guard, m.processor.HandleLocalEvent)
	poller := NewPoller(m.pollInterval(), m.processor.RequestScan)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.processor.Run(ctx) })
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return poller.Run(ctx) })

	slog.Info("sync daemon running",
		"dir", rootDir, "spaceId", m.cfg.WikiSpaceID)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (m *Manager) pollInterval() time.Duration {
	return time.Duration(m.cfg.Sync.PollIntervalSeconds * float64(time.Second))
}

// subscribeTracked subscribes every manifested document to drive events,
// once per document per daemon lifetime.
func (m *Manager) subscribeTracked(ctx context.Context) {
	mf := manifest.Read(m.cfg.Sync.FolderPath)
	for docID, entry := range mf.Docs {
		m.subscribe(ctx, docID, entry.FileType)
	}
}

func (m *Manager) subscribe(ctx context.Context, docID, fileType string) {
	m.mu.Lock()
	_, done := m.subscribed[docID]
	if !done {
		m.subscribed[docID] = struct{}{}
	}
	m.mu.Unlock()
	if done {
		return
	}

	if fileType == "" {
		fileType = feishu.FileTypeDocx
	}
	if err := m.api.SubscribeFileEvents(ctx, docID, fileType); err != nil {
		slog.Warn("subscribe document events failed", "documentId", docID, "error", err)
		m.mu.Lock()
		delete(m.subscribed, docID)
		m.mu.Unlock()
	}
}
