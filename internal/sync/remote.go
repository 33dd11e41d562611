package sync

import (
	"context"

	"github.com/feishu-sync/feishu-sync/internal/feishu"
)

// RemoteAPI is the slice of the Feishu API the engine consumes. The SDK
// satisfies it through sdkRemote; tests substitute fakes.
type RemoteAPI interface {
	ListSpaceNodes(ctx context.Context, spaceID, parentNodeToken string) ([]*feishu.WikiNode, error)
	MoveDocToWiki(ctx context.Context, spaceID, objType, objToken string) (string, error)

	GetDocumentMeta(ctx context.Context, documentID string) (*feishu.Document, error)
	ListDocumentBlocks(ctx context.Context, documentID string) ([]*feishu.Block, error)
	CreateDocument(ctx context.Context, title string) (string, bool, error)
	AppendBlockChildren(ctx context.Context, documentID, parentID string, index int, children []*feishu.Block) ([]*feishu.Block, error)
	BatchDeleteChildren(ctx context.Context, documentID, parentID string, start, end int) error

	SubscribeFileEvents(ctx context.Context, fileToken, fileType string) error
	DeleteFile(ctx context.Context, fileToken, fileType string) error
}

// sdkRemote adapts the SDK's API groups onto the flat RemoteAPI surface.
type sdkRemote struct {
	sdk *feishu.SDK
}

// NewRemoteAPI wraps an SDK as a RemoteAPI.
func NewRemoteAPI(sdk *feishu.SDK) RemoteAPI {
	return &sdkRemote{sdk: sdk}
}

func (r *sdkRemote) ListSpaceNodes(ctx context.Context, spaceID, parentNodeToken string) ([]*feishu.WikiNode, error) {
	return r.sdk.Wiki.ListSpaceNodes(ctx, spaceID, parentNodeToken)
}

func (r *sdkRemote) MoveDocToWiki(ctx context.Context, spaceID, objType, objToken string) (string, error) {
	return r.sdk.Wiki.MoveDocToWiki(ctx, spaceID, objType, objToken)
}

func (r *sdkRemote) GetDocumentMeta(ctx context.Context, documentID string) (*feishu.Document, error) {
	return r.sdk.Docs.GetDocumentMeta(ctx, documentID)
}

func (r *sdkRemote) ListDocumentBlocks(ctx context.Context, documentID string) ([]*feishu.Block, error) {
	return r.sdk.Docs.ListDocumentBlocks(ctx, documentID)
}

func (r *sdkRemote) CreateDocument(ctx context.Context, title string) (string, bool, error) {
	return r.sdk.Docs.CreateDocument(ctx, title)
}

func (r *sdkRemote) AppendBlockChildren(ctx context.Context, documentID, parentID string, index int, children []*feishu.Block) ([]*feishu.Block, error) {
	return r.sdk.Docs.AppendBlockChildren(ctx, documentID, parentID, index, children)
}

func (r *sdkRemote) BatchDeleteChildren(ctx context.Context, documentID, parentID string, start, end int) error {
	return r.sdk.Docs.BatchDeleteChildren(ctx, documentID, parentID, start, end)
}

func (r *sdkRemote) SubscribeFileEvents(ctx context.Context, fileToken, fileType string) error {
	return r.sdk.Drive.SubscribeFileEvents(ctx, fileToken, fileType)
}

func (r *sdkRemote) DeleteFile(ctx context.Context, fileToken, fileType string) error {
	return r.sdk.Drive.DeleteFile(ctx, fileToken, fileType)
}
