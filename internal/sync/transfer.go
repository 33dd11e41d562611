package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feishu-sync/feishu-sync/internal/codec"
	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// Transfer moves one document's content across the wire in either direction.
// Both the reconciler and the event processor go through it.
type Transfer struct {
	api RemoteAPI
}

func NewTransfer(api RemoteAPI) *Transfer {
	return &Transfer{api: api}
}

// Download fetches a document's metadata and blocks and renders Markdown.
func (t *Transfer) Download(ctx context.Context, documentID string) (*feishu.Document, string, error) {
	meta, err := t.api.GetDocumentMeta(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	blocks, err := t.api.ListDocumentBlocks(ctx, documentID)
	if err != nil {
		return nil, "", err
	}
	return meta, codec.BlocksToMarkdown(meta, blocks), nil
}

// Upload replaces a document's body with the given Markdown: every existing
// child of the page block is deleted, then fresh blocks are appended. The
// document title is left alone.
func (t *Transfer) Upload(ctx context.Context, documentID, markdown string) error {
	blocks, err := t.api.ListDocumentBlocks(ctx, documentID)
	if err != nil {
		return err
	}
	page := pageBlock(blocks)
	if page == nil {
		return fmt.Errorf("document %s has no page block", documentID)
	}

	// children shift down after each delete, so always delete from index 0
	remaining := len(page.Children)
	for remaining > 0 {
		n := min(remaining, feishu.MaxChildrenPerCall)
		if err := t.api.BatchDeleteChildren(ctx, documentID, page.BlockID, 0, n); err != nil {
			return fmt.Errorf("clear document %s: %w", documentID, err)
		}
		remaining -= n
	}

	parsed := codec.MarkdownToBlocks(markdown)
	return t.appendBody(ctx, documentID, page.BlockID, parsed.Blocks)
}

// CreateFromLocal creates a new docx from Markdown and attaches it to the
// wiki space. Returns the new document id and its wiki node token.
func (t *Transfer) CreateFromLocal(ctx context.Context, spaceID, markdown string) (string, string, error) {
	parsed := codec.MarkdownToBlocks(markdown)

	documentID, titled, err := t.api.CreateDocument(ctx, parsed.Title)
	if err != nil {
		return "", "", err
	}

	body := parsed.Blocks
	if !titled && parsed.Title != "" {
		// title was rejected at creation, keep it as a leading heading
		heading := &feishu.Block{
			BlockType: feishu.BlockHeading1,
			Heading1: &feishu.TextPayload{
				Elements: []*feishu.TextElement{
					{TextRun: &feishu.TextRun{Content: parsed.Title}},
				},
			},
		}
		body = append([]*feishu.Block{heading}, body...)
	}

	blocks, err := t.api.ListDocumentBlocks(ctx, documentID)
	if err != nil {
		return "", "", err
	}
	page := pageBlock(blocks)
	if page == nil {
		return "", "", fmt.Errorf("new document %s has no page block", documentID)
	}
	if err := t.appendBody(ctx, documentID, page.BlockID, body); err != nil {
		return "", "", err
	}

	nodeToken, err := t.api.MoveDocToWiki(ctx, spaceID, feishu.FileTypeDocx, documentID)
	if err != nil {
		return "", "", fmt.Errorf("move document %s to wiki: %w", documentID, err)
	}
	return documentID, nodeToken, nil
}

// appendBody appends body blocks under the page block in chunks, then fills
// table cells, which only exist after their table is created.
func (t *Transfer) appendBody(ctx context.Context, documentID, pageID string, body []*feishu.Block) error {
	index := 0
	for start := 0; start < len(body); start += feishu.MaxChildrenPerCall {
		chunk := body[start:min(start+feishu.MaxChildrenPerCall, len(body))]
		created, err := t.api.AppendBlockChildren(ctx, documentID, pageID, index, chunk)
		if err != nil {
			return fmt.Errorf("append blocks to %s: %w", documentID, err)
		}
		index += len(chunk)

		for i, b := range chunk {
			if b.BlockType != feishu.BlockTable || len(b.TableRows) == 0 {
				continue
			}
			if i >= len(created) {
				slog.Warn("append response shorter than request, skipping table fill",
					"documentId", documentID)
				continue
			}
			if err := t.fillTable(ctx, documentID, created[i], b); err != nil {
				return err
			}
		}
	}
	return nil
}

// fillTable writes cell text into a freshly created table. Cell block ids
// come back in row-major order on the created table block.
func (t *Transfer) fillTable(ctx context.Context, documentID string, created, src *feishu.Block) error {
	if src.Table == nil || src.Table.Property == nil {
		return nil
	}
	cols := src.Table.Property.ColumnSize

	for r, row := range src.TableRows {
		for c, text := range row {
			if text == "" {
				continue
			}
			i := r*cols + c
			if i >= len(created.Children) {
				continue
			}
			cell := &feishu.Block{
				BlockType: feishu.BlockText,
				Text: &feishu.TextPayload{
					Elements: []*feishu.TextElement{
						{TextRun: &feishu.TextRun{Content: text}},
					},
				},
			}
			if _, err := t.api.AppendBlockChildren(ctx, documentID, created.Children[i], 0, []*feishu.Block{cell}); err != nil {
				return fmt.Errorf("fill table cell in %s: %w", documentID, err)
			}
		}
	}
	return nil
}

func pageBlock(blocks []*feishu.Block) *feishu.Block {
	for _, b := range blocks {
		if b.BlockType == feishu.BlockPage {
			return b
		}
	}
	return nil
}
