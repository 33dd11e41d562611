package feishu

import (
	"fmt"
	"runtime"

	"github.com/feishu-sync/feishu-sync/internal/version"
)

const (
	// DefaultBaseURL is the public Feishu OpenAPI endpoint.
	DefaultBaseURL = "https://open.feishu.cn/open-apis"

	HeaderUserAgent = "User-Agent"
)

var UserAgent = fmt.Sprintf("%s/%s (%s; %s/%s)", version.AppName, version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// envelope is the {code, msg, data} wrapper every endpoint responds with.
// code != 0 is a hard error regardless of the HTTP status.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Pagination page sizes per endpoint family.
const (
	pageSizeWikiNodes = 50
	pageSizeBlocks    = 100
)

// MaxChildrenPerCall is the server limit on block children created or
// deleted in one request.
const MaxChildrenPerCall = 100

// File types the engine handles.
const (
	FileTypeDoc  = "doc"
	FileTypeDocx = "docx"
)

// IsDocumentType reports whether a wiki node objType is a document the
// engine pairs with a markdown file.
func IsDocumentType(objType string) bool {
	return objType == FileTypeDoc || objType == FileTypeDocx
}
