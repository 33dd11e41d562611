package feishu

import (
	"context"
	"fmt"
	"strconv"

	"github.com/imroc/req/v3"
)

// WikiNode is one node of a wiki space tree.
type WikiNode struct {
	NodeToken string `json:"node_token"`
	ObjToken  string `json:"obj_token"` // documentId for doc/docx nodes
	ObjType   string `json:"obj_type"`
	Title     string `json:"title"`
	HasChild  bool   `json:"has_child"`
}

type WikiAPI struct {
	client *req.Client
}

func newWikiAPI(client *req.Client) *WikiAPI {
	return &WikiAPI{client: client}
}

type listNodesResponse struct {
	envelope
	Data struct {
		Items     []*WikiNode `json:"items"`
		PageToken string      `json:"page_token"`
		HasMore   bool        `json:"has_more"`
	} `json:"data"`
}

// ListSpaceNodes returns the direct children of a node (or of the space
// root when parentNodeToken is empty), following pagination to the end.
func (w *WikiAPI) ListSpaceNodes(ctx context.Context, spaceID, parentNodeToken string) ([]*WikiNode, error) {
	var nodes []*WikiNode
	pageToken := ""

	for {
		var out listNodesResponse
		r := w.client.R().
			SetContext(ctx).
			SetQueryParam("page_size", strconv.Itoa(pageSizeWikiNodes)).
			SetSuccessResult(&out).
			SetErrorResult(&out)
		if parentNodeToken != "" {
			r.SetQueryParam("parent_node_token", parentNodeToken)
		}
		if pageToken != "" {
			r.SetQueryParam("page_token", pageToken)
		}

		resp, err := r.Get(fmt.Sprintf("/wiki/v2/spaces/%s/nodes", spaceID))
		if err := checkResponse(resp, err, &out.envelope, "wiki list nodes"); err != nil {
			return nil, err
		}

		nodes = append(nodes, out.Data.Items...)
		if !out.Data.HasMore || out.Data.PageToken == "" {
			return nodes, nil
		}
		pageToken = out.Data.PageToken
	}
}

type moveDocResponse struct {
	envelope
	Data struct {
		WikiToken string `json:"wiki_token"`
	} `json:"data"`
}

// MoveDocToWiki moves a standalone document into a wiki space and returns
// the new node token.
func (w *WikiAPI) MoveDocToWiki(ctx context.Context, spaceID, objType, objToken string) (string, error) {
	var out moveDocResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(map[string]string{
			"obj_type":  objType,
			"obj_token": objToken,
		}).
		SetSuccessResult(&out).
		SetErrorResult(&out).
		Post(fmt.Sprintf("/wiki/v2/spaces/%s/nodes/move_docs_to_wiki", spaceID))

	if err := checkResponse(resp, err, &out.envelope, "wiki move doc"); err != nil {
		return "", err
	}
	return out.Data.WikiToken, nil
}
