package sync

import (
	"context"
	"fmt"
	gosync "sync"

	"github.com/feishu-sync/feishu-sync/internal/codec"
	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// fakeRemote is an in-memory wiki space. Documents hold real block trees so
// the codec runs for both directions, same as against the live API.
type fakeRemote struct {
	mu gosync.Mutex

	docSeq   int
	blockSeq int

	docs  map[string]*fakeDoc
	nodes map[string]*feishu.WikiNode // keyed by documentId

	deleted        []string
	subscribed     []string
	listBlockCalls int
}

type fakeDoc struct {
	id       string
	title    string
	revision int64
	blocks   []*feishu.Block // page block first
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		docs:  make(map[string]*fakeDoc),
		nodes: make(map[string]*feishu.WikiNode),
	}
}

func (f *fakeRemote) nextBlockID() string {
	f.blockSeq++
	return fmt.Sprintf("blk%d", f.blockSeq)
}

// addDoc creates a wiki document whose body is parsed from markdown.
func (f *fakeRemote) addDoc(title, markdown string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.docSeq++
	id := fmt.Sprintf("doc%d", f.docSeq)
	doc := &fakeDoc{id: id, title: title, revision: 1}
	doc.blocks = []*feishu.Block{{BlockID: f.nextBlockID(), BlockType: feishu.BlockPage}}
	f.docs[id] = doc
	f.setBodyLocked(doc, markdown)
	f.nodes[id] = &feishu.WikiNode{
		NodeToken: "node-" + id,
		ObjToken:  id,
		ObjType:   feishu.FileTypeDocx,
		Title:     title,
	}
	return id
}

// setBody replaces a document's body with blocks parsed from markdown and
// bumps the revision, like a remote edit would.
func (f *fakeRemote) setBody(docID, markdown string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setBodyLocked(f.docs[docID], markdown)
}

func (f *fakeRemote) setBodyLocked(doc *fakeDoc, markdown string) {
	parsed := codec.MarkdownToBlocks(markdown)
	page := doc.blocks[0]
	page.Children = nil
	doc.blocks = doc.blocks[:1]
	for _, b := range parsed.Blocks {
		f.attachLocked(doc, page, len(page.Children), b, true)
	}
	doc.revision++
}

// attachLocked assigns ids and wires one block (plus table cells) into the
// document. fillRows writes cell text straight from the parse-side channel,
// which only the remote-edit simulation wants; the append path leaves cells
// empty for the uploader to fill.
func (f *fakeRemote) attachLocked(doc *fakeDoc, parent *feishu.Block, index int, b *feishu.Block, fillRows bool) *feishu.Block {
	b.BlockID = f.nextBlockID()
	b.ParentID = parent.BlockID
	parent.Children = append(parent.Children, "")
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = b.BlockID
	doc.blocks = append(doc.blocks, b)

	if b.BlockType == feishu.BlockTable && b.Table != nil && b.Table.Property != nil {
		cells := b.Table.Property.RowSize * b.Table.Property.ColumnSize
		for i := 0; i < cells; i++ {
			cell := &feishu.Block{
				BlockID:   f.nextBlockID(),
				BlockType: feishu.BlockTableCell,
				ParentID:  b.BlockID,
			}
			b.Children = append(b.Children, cell.BlockID)
			doc.blocks = append(doc.blocks, cell)
		}
		if !fillRows {
			return b
		}
		for r, row := range b.TableRows {
			for c, text := range row {
				if text == "" {
					continue
				}
				cellID := b.Children[r*b.Table.Property.ColumnSize+c]
				cell := f.blockByIDLocked(doc, cellID)
				f.attachLocked(doc, cell, 0, &feishu.Block{
					BlockType: feishu.BlockText,
					Text: &feishu.TextPayload{
						Elements: []*feishu.TextElement{
							{TextRun: &feishu.TextRun{Content: text}},
						},
					},
				}, false)
			}
		}
	}
	return b
}

func (f *fakeRemote) blockByIDLocked(doc *fakeDoc, id string) *feishu.Block {
	for _, b := range doc.blocks {
		if b.BlockID == id {
			return b
		}
	}
	return nil
}

func (f *fakeRemote) setTitle(docID, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.docs[docID]
	doc.title = title
	doc.revision++
	if node, ok := f.nodes[docID]; ok {
		node.Title = title
	}
}

func (f *fakeRemote) removeDoc(docID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, docID)
	delete(f.nodes, docID)
}

// markdown renders a document's current content.
func (f *fakeRemote) markdown(docID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := f.docs[docID]
	meta := &feishu.Document{DocumentID: doc.id, RevisionID: doc.revision, Title: doc.title}
	return codec.BlocksToMarkdown(meta, doc.blocks)
}

func (f *fakeRemote) blockCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listBlockCalls
}

func (f *fakeRemote) revision(docID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc, ok := f.docs[docID]; ok {
		return doc.revision
	}
	return -1
}

var errFakeNotFound = &feishu.APIError{Code: feishu.CodeDocumentNotFound, Msg: "not found"}

// --- RemoteAPI ---

func (f *fakeRemote) ListSpaceNodes(_ context.Context, _, parentNodeToken string) ([]*feishu.WikiNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if parentNodeToken != "" {
		return nil, nil
	}
	var nodes []*feishu.WikiNode
	for i := 1; i <= f.docSeq; i++ {
		if node, ok := f.nodes[fmt.Sprintf("doc%d", i)]; ok {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func (f *fakeRemote) MoveDocToWiki(_ context.Context, _, _, objToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[objToken]
	if !ok {
		return "", fmt.Errorf("move: %w", errFakeNotFound)
	}
	node := &feishu.WikiNode{
		NodeToken: "node-" + objToken,
		ObjToken:  objToken,
		ObjType:   feishu.FileTypeDocx,
		Title:     doc.title,
	}
	f.nodes[objToken] = node
	return node.NodeToken, nil
}

func (f *fakeRemote) GetDocumentMeta(_ context.Context, documentID string) (*feishu.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("meta: %w", errFakeNotFound)
	}
	return &feishu.Document{DocumentID: doc.id, RevisionID: doc.revision, Title: doc.title}, nil
}

func (f *fakeRemote) ListDocumentBlocks(_ context.Context, documentID string) ([]*feishu.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listBlockCalls++
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("blocks: %w", errFakeNotFound)
	}
	return append([]*feishu.Block(nil), doc.blocks...), nil
}

func (f *fakeRemote) CreateDocument(_ context.Context, title string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docSeq++
	id := fmt.Sprintf("doc%d", f.docSeq)
	doc := &fakeDoc{id: id, title: title, revision: 1}
	doc.blocks = []*feishu.Block{{BlockID: f.nextBlockID(), BlockType: feishu.BlockPage}}
	f.docs[id] = doc
	return id, title != "", nil
}

func (f *fakeRemote) AppendBlockChildren(_ context.Context, documentID, parentID string, index int, children []*feishu.Block) ([]*feishu.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("append: %w", errFakeNotFound)
	}
	parent := f.blockByIDLocked(doc, parentID)
	if parent == nil {
		return nil, fmt.Errorf("append: parent %s missing: %w", parentID, errFakeNotFound)
	}
	var created []*feishu.Block
	for i, b := range children {
		created = append(created, f.attachLocked(doc, parent, index+i, b, false))
	}
	doc.revision++
	return created, nil
}

func (f *fakeRemote) BatchDeleteChildren(_ context.Context, documentID, parentID string, start, end int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return fmt.Errorf("delete children: %w", errFakeNotFound)
	}
	parent := f.blockByIDLocked(doc, parentID)
	if parent == nil || start < 0 || end > len(parent.Children) || start >= end {
		return fmt.Errorf("delete children: bad range [%d, %d)", start, end)
	}
	removed := make(map[string]struct{})
	for _, id := range parent.Children[start:end] {
		removed[id] = struct{}{}
	}
	parent.Children = append(parent.Children[:start], parent.Children[end:]...)

	var kept []*feishu.Block
	for _, b := range doc.blocks {
		if _, gone := removed[b.BlockID]; !gone {
			kept = append(kept, b)
		}
	}
	doc.blocks = kept
	doc.revision++
	return nil
}

func (f *fakeRemote) SubscribeFileEvents(_ context.Context, fileToken, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, fileToken)
	return nil
}

func (f *fakeRemote) DeleteFile(_ context.Context, fileToken, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[fileToken]; !ok {
		return fmt.Errorf("delete file: %w", errFakeNotFound)
	}
	delete(f.docs, fileToken)
	delete(f.nodes, fileToken)
	f.deleted = append(f.deleted, fileToken)
	return nil
}
