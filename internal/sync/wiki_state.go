package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// RemoteDoc is one wiki document with freshly fetched metadata.
type RemoteDoc struct {
	DocumentID string
	NodeToken  string
	Title      string
	FileType   string // doc or docx
	RevisionID int64
}

// BuildRemoteState walks the wiki space depth-first and returns every
// reachable doc/docx node keyed by documentId, with title and revision
// refreshed from document metadata.
func BuildRemoteState(ctx context.Context, api RemoteAPI, spaceID string) (map[string]*RemoteDoc, error) {
	state := make(map[string]*RemoteDoc)

	// iterative DFS over parent node tokens, "" is the space root
	stack := []string{""}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nodes, err := api.ListSpaceNodes(ctx, spaceID, parent)
		if err != nil {
			return nil, fmt.Errorf("walk wiki space %s: %w", spaceID, err)
		}

		for _, node := range nodes {
			if node.HasChild {
				stack = append(stack, node.NodeToken)
			}
			if !feishu.IsDocumentType(node.ObjType) {
				continue
			}
			state[node.ObjToken] = &RemoteDoc{
				DocumentID: node.ObjToken,
				NodeToken:  node.NodeToken,
				Title:      node.Title,
				FileType:   node.ObjType,
			}
		}
	}

	// refresh title and revision per document; node titles lag behind
	for docID, doc := range state {
		meta, err := api.GetDocumentMeta(ctx, docID)
		if err != nil {
			if feishu.IsNotFound(err) {
				slog.Warn("wiki node points at missing document", "documentId", docID)
				delete(state, docID)
				continue
			}
			return nil, fmt.Errorf("document meta %s: %w", docID, err)
		}
		doc.RevisionID = meta.RevisionID
		if meta.Title != "" {
			doc.Title = meta.Title
		}
	}

	return state, nil
}
