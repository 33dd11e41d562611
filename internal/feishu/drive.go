package feishu

import (
	"context"
	"fmt"

	"github.com/imroc/req/v3"
)

type DriveAPI struct {
	client *req.Client
}

func newDriveAPI(client *req.Client) *DriveAPI {
	return &DriveAPI{client: client}
}

type driveResponse struct {
	envelope
}

// SubscribeFileEvents registers a document for drive.file.* events on the
// event stream. One call per document.
func (d *DriveAPI) SubscribeFileEvents(ctx context.Context, fileToken, fileType string) error {
	var out driveResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("file_type", fileType).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Post(fmt.Sprintf("/drive/v1/files/%s/subscribe", fileToken))

	return checkResponse(resp, err, &out.envelope, "drive subscribe file")
}

// DeleteFile removes a remote document. The endpoint is dispatched by file
// type, which is why manifest entries record it.
func (d *DriveAPI) DeleteFile(ctx context.Context, fileToken, fileType string) error {
	var out driveResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("type", fileType).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Delete(fmt.Sprintf("/drive/v1/files/%s", fileToken))

	return checkResponse(resp, err, &out.envelope, "drive delete file")
}
