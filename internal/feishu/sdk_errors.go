package feishu

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	ErrNoToken             = errors.New("sdk: bearer token missing")
	ErrEventsNotConnected  = errors.New("sdk: events not connected")
	ErrEventsHandlerExists = errors.New("sdk: events handler already registered")
)

// Well-known server codes the engine branches on.
const (
	CodeOK               = 0
	CodeDocumentNotFound = 1770002 // docx: document deleted or never existed
	CodeNodeNotFound     = 230005  // wiki: node does not exist
	CodeRateLimited      = 99991400
)

// APIError is a non-zero `code` in the response envelope. The server message
// is carried verbatim.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: code=%d msg=%q", e.Code, e.Msg)
}

// IsNotFound reports whether err means the remote document is gone, which
// the single-doc paths escalate to a full sync.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeDocumentNotFound || apiErr.Code == CodeNodeNotFound
}

// checkResponse handles the common error pattern: transport errors first,
// then the {code, msg} envelope, then non-JSON/empty bodies.
func checkResponse(resp *req.Response, requestErr error, env *envelope, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	if env != nil && env.Code != CodeOK {
		return fmt.Errorf("%s: %w", operation, &APIError{Code: env.Code, Msg: env.Msg})
	}

	// got a response but no envelope was decoded
	if resp.IsErrorState() {
		return fmt.Errorf("%s: unexpected response: %s", operation, resp.Status)
	}

	return nil
}
