package sync

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
	"github.com/feishu-sync/feishu-sync/internal/manifest"
)

func newTestProcessor(t *testing.T, fake *fakeRemote, dir string) (*Processor, *EchoGuard) {
	t.Helper()
	guard := &EchoGuard{}
	p := NewProcessor(fake, dir, testSpaceID, guard, nil)
	p.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return p, guard
}

func pairDoc(t *testing.T, fake *fakeRemote, dir string) {
	t.Helper()
	_, err := NewReconciler(fake, dir, testSpaceID, nil).Run(context.Background())
	require.NoError(t, err)
}

func TestProcessorDebouncesEventBurst(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, _ := newTestProcessor(t, fake, dir)

	fake.setBody(docID, "v2")
	before := fake.blockCalls()
	for i := 0; i < 5; i++ {
		p.HandleRemoteEvent(&feishu.FileEvent{Type: feishu.EventFileEdit, FileToken: docID})
	}

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "Doc.md"))
		return err == nil && string(data) == "# Doc\n\nv2\n"
	}, 2*time.Second, 10*time.Millisecond)

	// the burst collapsed to one download
	assert.Equal(t, before+1, fake.blockCalls())
}

func TestProcessorRefreshSkipsUnchangedContent(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, _ := newTestProcessor(t, fake, dir)

	// revision moves without content change (e.g. a no-op edit)
	fake.setBody(docID, "v1")
	p.HandleRemoteEvent(&feishu.FileEvent{Type: feishu.EventFileEdit, FileToken: docID})

	require.Eventually(t, func() bool {
		return manifest.Read(dir).Docs[docID].RevisionID == fake.revision(docID)
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "# Doc\n\nv1\n", readFile(t, dir, "Doc.md"))
}

func TestProcessorUploadsLocalChange(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, _ := newTestProcessor(t, fake, dir)

	writeFile(t, dir, "Doc.md", "# Doc\n\nlocal edit\n")
	p.HandleLocalEvent("Doc.md")

	require.Eventually(t, func() bool {
		return fake.markdown(docID) == "# Doc\n\nlocal edit\n"
	}, 2*time.Second, 10*time.Millisecond)

	m := manifest.Read(dir)
	assert.Equal(t, fake.revision(docID), m.Docs[docID].RevisionID)
}

func TestProcessorDropsEchoOfOwnWrite(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, guard := newTestProcessor(t, fake, dir)

	// simulate the tail of an engine action: file freshly written, action
	// just completed
	writeFile(t, dir, "Doc.md", "# Doc\n\nengine write\n")
	guard.MarkCompleted()
	p.HandleLocalEvent("Doc.md")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, "# Doc\n\nv1\n", fake.markdown(docID), "echo must not be uploaded")
}

func TestProcessorFallsBackToFullSyncForUnknownDocument(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	// no initial pairing: the event refers to a document the manifest has
	// never seen

	p, _ := newTestProcessor(t, fake, dir)
	p.HandleRemoteEvent(&feishu.FileEvent{Type: feishu.EventFileEdit, FileToken: docID})

	require.Eventually(t, func() bool {
		return manifest.Read(dir).Docs[docID] != nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "Doc.md"))
}

func TestProcessorTrashedEventTriggersFullSync(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, _ := newTestProcessor(t, fake, dir)

	fake.removeDoc(docID)
	p.HandleRemoteEvent(&feishu.FileEvent{Type: feishu.EventFileTrashed, FileToken: docID})

	require.Eventually(t, func() bool {
		return manifest.Read(dir).Docs[docID] == nil
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoFileExists(t, filepath.Join(dir, "Doc.md"))
}

func TestProcessorScanDetectsDrift(t *testing.T) {
	fake := newFakeRemote()
	dir := t.TempDir()
	docID := fake.addDoc("Doc", "v1")
	pairDoc(t, fake, dir)

	p, _ := newTestProcessor(t, fake, dir)

	fake.setBody(docID, "changed behind our back")
	p.RequestScan()

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(dir, "Doc.md"))
		return err == nil && string(data) == "# Doc\n\nchanged behind our back\n"
	}, 2*time.Second, 10*time.Millisecond)
}
