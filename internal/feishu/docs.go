package feishu

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/imroc/req/v3"
)

type DocsAPI struct {
	client *req.Client
}

func newDocsAPI(client *req.Client) *DocsAPI {
	return &DocsAPI{client: client}
}

type documentResponse struct {
	envelope
	Data struct {
		Document *Document `json:"document"`
	} `json:"data"`
}

// GetDocumentMeta fetches the title and current revision of a document.
func (d *DocsAPI) GetDocumentMeta(ctx context.Context, documentID string) (*Document, error) {
	var out documentResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Get(fmt.Sprintf("/docx/v1/documents/%s", documentID))

	if err := checkResponse(resp, err, &out.envelope, "docx get document"); err != nil {
		return nil, err
	}
	if out.Data.Document == nil {
		return nil, fmt.Errorf("docx get document: empty document in response")
	}
	return out.Data.Document, nil
}

type listBlocksResponse struct {
	envelope
	Data struct {
		Items     []*Block `json:"items"`
		PageToken string   `json:"page_token"`
		HasMore   bool     `json:"has_more"`
	} `json:"data"`
}

// ListDocumentBlocks fetches the full block list of a document, following
// pagination. Blocks arrive in document order, page block first.
func (d *DocsAPI) ListDocumentBlocks(ctx context.Context, documentID string) ([]*Block, error) {
	var blocks []*Block
	pageToken := ""

	for {
		var out listBlocksResponse
		r := d.client.R().
			SetContext(ctx).
			SetQueryParam("page_size", strconv.Itoa(pageSizeBlocks)).
			SetQueryParam("document_revision_id", "-1").
			SetSuccessResult(&out).
			SetErrorResult(&out)
		if pageToken != "" {
			r.SetQueryParam("page_token", pageToken)
		}

		resp, err := r.Get(fmt.Sprintf("/docx/v1/documents/%s/blocks", documentID))
		if err := checkResponse(resp, err, &out.envelope, "docx list blocks"); err != nil {
			return nil, err
		}

		blocks = append(blocks, out.Data.Items...)
		if !out.Data.HasMore || out.Data.PageToken == "" {
			return blocks, nil
		}
		pageToken = out.Data.PageToken
	}
}

type createDocumentResponse struct {
	envelope
	Data struct {
		Document *Document `json:"document"`
	} `json:"data"`
}

// CreateDocument creates an empty docx document. Returns the new document id
// and whether the server accepted the title; some tenants reject titled
// creation, in which case creation is retried untitled and the caller
// prepends a heading block instead.
func (d *DocsAPI) CreateDocument(ctx context.Context, title string) (string, bool, error) {
	docID, err := d.createDocument(ctx, title)
	if err == nil {
		return docID, title != "", nil
	}

	var apiErr *APIError
	if title != "" && errors.As(err, &apiErr) {
		docID, retryErr := d.createDocument(ctx, "")
		if retryErr != nil {
			return "", false, retryErr
		}
		return docID, false, nil
	}
	return "", false, err
}

func (d *DocsAPI) createDocument(ctx context.Context, title string) (string, error) {
	body := map[string]string{}
	if title != "" {
		body["title"] = title
	}

	var out createDocumentResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(body).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Post("/docx/v1/documents")

	if err := checkResponse(resp, err, &out.envelope, "docx create document"); err != nil {
		return "", err
	}
	if out.Data.Document == nil {
		return "", fmt.Errorf("docx create document: empty document in response")
	}
	return out.Data.Document.DocumentID, nil
}

type appendChildrenResponse struct {
	envelope
	Data struct {
		Children []*Block `json:"children"`
	} `json:"data"`
}

// AppendBlockChildren inserts children under parentID at index. The caller
// batches to MaxChildrenPerCall. The returned blocks carry server-assigned
// ids, including table cell ids.
func (d *DocsAPI) AppendBlockChildren(ctx context.Context, documentID, parentID string, index int, children []*Block) ([]*Block, error) {
	var out appendChildrenResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(map[string]any{
			"index":    index,
			"children": children,
		}).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Post(fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children", documentID, parentID))

	if err := checkResponse(resp, err, &out.envelope, "docx append children"); err != nil {
		return nil, err
	}
	return out.Data.Children, nil
}

type batchDeleteResponse struct {
	envelope
}

// BatchDeleteChildren removes children of parentID in [start, end). The
// caller batches to MaxChildrenPerCall.
func (d *DocsAPI) BatchDeleteChildren(ctx context.Context, documentID, parentID string, start, end int) error {
	var out batchDeleteResponse
	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("document_revision_id", "-1").
		SetBodyJsonMarshal(map[string]int{
			"start_index": start,
			"end_index":   end,
		}).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Delete(fmt.Sprintf("/docx/v1/documents/%s/blocks/%s/children/batch_delete", documentID, parentID))

	return checkResponse(resp, err, &out.envelope, "docx batch delete children")
}
